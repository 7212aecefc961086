package handlers

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/singalong/internal/leaderboard"
	"github.com/yoockh/singalong/internal/metrics"
	"github.com/yoockh/singalong/internal/tokens"
	"github.com/yoockh/singalong/internal/utils"
)

const maxNameLength = 32

type HighScoreHandler struct {
	board  *leaderboard.Service
	tokens tokens.Store
	log    *logrus.Logger
}

func NewHighScoreHandler(board *leaderboard.Service, store tokens.Store, log *logrus.Logger) *HighScoreHandler {
	return &HighScoreHandler{board: board, tokens: store, log: log}
}

type submitRequest struct {
	Name    string `json:"name" binding:"required"`
	ScoreID string `json:"score_id" binding:"required"`
}

func (h *HighScoreHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.board.Load(c.Request.Context()))
}

// Submit validates the name before redeeming, so a rejected name does not
// burn the token.
func (h *HighScoreHandler) Submit(c *gin.Context) {
	const op = "HighScoreHandler.Submit"

	var req submitRequest
	if !bindJSON(c, op, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "name must be 1-32 characters", nil))
		return
	}

	score, err := h.tokens.Redeem(c.Request.Context(), req.ScoreID)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenNotFound) {
			metrics.HighScoreSubmissionsTotal.WithLabelValues("invalid_token").Inc()
			writeError(c, utils.E(utils.CodeNotFound, op, "invalid or expired score id", err))
			return
		}
		writeError(c, utils.E(utils.CodeUnavailable, op, "failed to redeem score id", err))
		return
	}

	accepted := h.board.Submit(c.Request.Context(), name, score)
	h.log.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"score":      score,
		"accepted":   accepted,
	}).Info("high score submitted")

	c.JSON(http.StatusOK, gin.H{"status": "ok", "accepted": accepted})
}

func (h *HighScoreHandler) Reset(c *gin.Context) {
	if err := h.board.Reset(c.Request.Context()); err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, "HighScoreHandler.Reset", "failed to reset leaderboard", err))
		return
	}
	h.log.WithField("user_id", c.GetString("user_id")).Warn("leaderboard reset")
	c.Status(http.StatusNoContent)
}
