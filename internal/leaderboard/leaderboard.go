// Package leaderboard keeps the top MaxHighScores entries in a single JSON
// object in blob storage.
//
// Submissions are an unguarded read-modify-write against the store: two
// concurrent submissions near the cut-off can lose one update. That gap is
// accepted at this scale.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/singalong/internal/metrics"
	"github.com/yoockh/singalong/internal/models"
	"github.com/yoockh/singalong/internal/storage"
)

const DefaultObjectName = "high_scores.json"

type Service struct {
	store  storage.BlobStore
	object string
	log    *logrus.Entry
}

func New(store storage.BlobStore, object string, log *logrus.Logger) *Service {
	if object == "" {
		object = DefaultObjectName
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store:  store,
		object: object,
		log:    log.WithFields(logrus.Fields{"component": "leaderboard", "object": object}),
	}
}

// Load never fails: a missing, unreadable or corrupt object is an empty board.
func (s *Service) Load(ctx context.Context) []models.HighScoreEntry {
	b, err := s.store.Read(ctx, s.object)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return []models.HighScoreEntry{}
	}
	if err != nil {
		s.log.WithError(err).Warn("failed to read leaderboard, using empty list")
		return []models.HighScoreEntry{}
	}

	var board []models.HighScoreEntry
	if err := json.Unmarshal(b, &board); err != nil {
		s.log.WithError(err).Warn("failed to decode leaderboard, using empty list")
		return []models.HighScoreEntry{}
	}
	if board == nil {
		board = []models.HighScoreEntry{}
	}
	return board
}

// Submit reports whether the entry made the board. A full board whose lowest
// score is >= score is left untouched. Write failures are logged and swallowed.
func (s *Service) Submit(ctx context.Context, name string, score int) bool {
	board := s.Load(ctx)

	next, ok := Merge(board, models.HighScoreEntry{Name: name, Score: score})
	if !ok {
		metrics.HighScoreSubmissionsTotal.WithLabelValues("rejected").Inc()
		return false
	}

	if err := s.save(ctx, next); err != nil {
		metrics.HighScoreSubmissionsTotal.WithLabelValues("write_failed").Inc()
		s.log.WithError(err).WithField("score", score).Error("failed to persist leaderboard")
		return true
	}
	metrics.HighScoreSubmissionsTotal.WithLabelValues("accepted").Inc()
	return true
}

// Reset overwrites the board with an empty list.
func (s *Service) Reset(ctx context.Context) error {
	return s.save(ctx, []models.HighScoreEntry{})
}

func (s *Service) save(ctx context.Context, board []models.HighScoreEntry) error {
	b, err := json.Marshal(board)
	if err != nil {
		return err
	}
	return s.store.Write(ctx, s.object, "application/json", b)
}

// Merge returns board with e inserted, sorted by score descending (earlier
// entries win ties) and truncated to MaxHighScores. ok is false when e does not
// qualify, in which case board is returned as is.
func Merge(board []models.HighScoreEntry, e models.HighScoreEntry) ([]models.HighScoreEntry, bool) {
	if len(board) >= models.MaxHighScores && e.Score <= lowest(board) {
		return board, false
	}

	next := make([]models.HighScoreEntry, 0, len(board)+1)
	next = append(next, board...)
	next = append(next, e)
	sort.SliceStable(next, func(i, j int) bool { return next[i].Score > next[j].Score })
	if len(next) > models.MaxHighScores {
		next = next[:models.MaxHighScores]
	}
	return next, true
}

func lowest(board []models.HighScoreEntry) int {
	lo := board[0].Score
	for _, e := range board[1:] {
		if e.Score < lo {
			lo = e.Score
		}
	}
	return lo
}
