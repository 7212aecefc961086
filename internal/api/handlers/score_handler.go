package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/singalong/internal/metrics"
	"github.com/yoockh/singalong/internal/models"
	"github.com/yoockh/singalong/internal/scoring"
	"github.com/yoockh/singalong/internal/songs"
	"github.com/yoockh/singalong/internal/tokens"
	"github.com/yoockh/singalong/internal/utils"
)

type ScoreHandler struct {
	catalog *songs.Catalog
	scorer  *scoring.Scorer
	tokens  tokens.Store
	log     *logrus.Logger
}

func NewScoreHandler(catalog *songs.Catalog, scorer *scoring.Scorer, store tokens.Store, log *logrus.Logger) *ScoreHandler {
	return &ScoreHandler{catalog: catalog, scorer: scorer, tokens: store, log: log}
}

type scoreRequest struct {
	SongKey string              `json:"song_key" binding:"required"`
	Words   []models.WordTiming `json:"words"`
}

type scoreResponse struct {
	models.ScoreBreakdown
	ScoreID string `json:"score_id"`
}

// Score grades the submitted words against the song and issues a single-use
// token bound to the overall score.
func (h *ScoreHandler) Score(c *gin.Context) {
	const op = "ScoreHandler.Score"

	var req scoreRequest
	if !bindJSON(c, op, &req) {
		return
	}

	if err := scoring.Validate(req.Words); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, err.Error(), err))
		return
	}

	song, ok := h.catalog.Get(req.SongKey)
	if !ok {
		writeError(c, utils.E(utils.CodeNotFound, op, "song not found", nil))
		return
	}

	breakdown := h.scorer.Score(req.Words, song.Words)

	id, err := h.tokens.Issue(c.Request.Context(), breakdown.OverallScore)
	if err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "failed to issue score token", err))
		return
	}
	metrics.ScoresIssuedTotal.Inc()

	h.log.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"song_key":   song.Key,
		"words":      len(req.Words),
		"overall":    breakdown.OverallScore,
	}).Info("score issued")

	c.JSON(http.StatusOK, scoreResponse{ScoreBreakdown: breakdown, ScoreID: id})
}
