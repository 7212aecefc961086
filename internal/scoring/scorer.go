// Package scoring grades a sung or spoken utterance against a reference lyric
// track.
//
// Alignment is greedy and monotonic: each user word is matched to the first
// identical reference word at or after the cursor left by the previous match.
// Extra and missing words are tolerated; reordering is not. The scan is
// O(len(user) * len(reference)), which is fine for utterances of a few dozen
// words and is not meant for anything longer.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/yoockh/singalong/internal/models"
)

// maxTimingError is the average start-time error (seconds) at which the timing
// score reaches zero.
const maxTimingError = 1.0

const (
	accuracyWeight   = 0.5
	confidenceWeight = 0.3
	timingWeight     = 0.2
)

// Match pairs a user word with the reference word it was aligned to.
type Match struct {
	UserIndex      int
	ReferenceIndex int
	TimingError    float64 // |user relative start - reference relative start|
}

type Alignment struct {
	Matches         []Match
	ConfidenceSum   float64
	TimingErrorSum  float64
	ReferenceLength int
	UserLength      int
}

// Scorer holds the timing resolution applied to word offsets before they are
// compared. The zero value uses whole seconds.
type Scorer struct {
	Resolution models.TimingResolution
}

func New(res models.TimingResolution) *Scorer {
	return &Scorer{Resolution: res}
}

// Score is a convenience for the zero Scorer (whole seconds).
func Score(user, reference []models.WordTiming) models.ScoreBreakdown {
	return (&Scorer{}).Score(user, reference)
}

// ErrInvalidWord is wrapped by Validate for any word that breaks the timing or
// confidence ranges.
var ErrInvalidWord = errors.New("invalid word")

// Validate checks client-supplied words: finite non-negative offsets with
// start <= end, and confidence in [0,1].
func Validate(words []models.WordTiming) error {
	for i, w := range words {
		switch {
		case !finite(w.StartTime) || !finite(w.EndTime) || w.StartTime < 0:
			return fmt.Errorf("%w #%d: offsets must be finite and non-negative", ErrInvalidWord, i)
		case w.StartTime > w.EndTime:
			return fmt.Errorf("%w #%d: startTime after endTime", ErrInvalidWord, i)
		case math.IsNaN(w.Confidence) || w.Confidence < 0 || w.Confidence > 1:
			return fmt.Errorf("%w #%d: confidence must be within [0,1]", ErrInvalidWord, i)
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Normalize lowercases w, drops every rune that is neither a letter, a digit
// nor whitespace, and trims the result.
func Normalize(w string) string {
	var b strings.Builder
	b.Grow(len(w))
	for _, r := range strings.ToLower(w) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func (s *Scorer) Align(user, reference []models.WordTiming) Alignment {
	a := Alignment{UserLength: len(user), ReferenceLength: len(reference)}
	if len(user) == 0 || len(reference) == 0 {
		return a
	}

	userStarts := s.relativeStarts(user)
	refStarts := s.relativeStarts(reference)

	refNorm := make([]string, len(reference))
	for i, w := range reference {
		refNorm[i] = Normalize(w.Word)
	}

	cursor := 0
	for ui, uw := range user {
		word := Normalize(uw.Word)
		if word == "" {
			continue
		}
		for ri := cursor; ri < len(reference); ri++ {
			if refNorm[ri] != word {
				continue
			}
			te := math.Abs(userStarts[ui] - refStarts[ri])
			a.Matches = append(a.Matches, Match{UserIndex: ui, ReferenceIndex: ri, TimingError: te})
			a.ConfidenceSum += clampUnit(uw.Confidence)
			a.TimingErrorSum += te
			cursor = ri + 1
			break
		}
	}
	return a
}

func (s *Scorer) Score(user, reference []models.WordTiming) models.ScoreBreakdown {
	if len(user) == 0 || len(reference) == 0 {
		return models.ScoreBreakdown{}
	}

	a := s.Align(user, reference)
	matches := float64(len(a.Matches))

	accuracy := matches / float64(len(reference)) * 100

	var confidence, timing float64
	if matches > 0 {
		confidence = a.ConfidenceSum / matches * 100
		avgErr := a.TimingErrorSum / matches
		timing = math.Max(0, (1-avgErr/maxTimingError)*100)
	}

	overall := math.Min(100, accuracyWeight*accuracy+confidenceWeight*confidence+timingWeight*timing)

	return models.ScoreBreakdown{
		OverallScore:    clampRound(overall),
		AccuracyScore:   clampRound(accuracy),
		ConfidenceScore: clampRound(confidence),
		TimingScore:     clampRound(timing),
	}
}

// relativeStarts quantizes start times to the configured resolution and
// re-baselines them against the sequence's own first word.
func (s *Scorer) relativeStarts(words []models.WordTiming) []float64 {
	out := make([]float64, len(words))
	base := s.Resolution.Apply(words[0].StartTime)
	for i, w := range words {
		out[i] = s.Resolution.Apply(w.StartTime) - base
	}
	return out
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, 1)
}

func clampRound(v float64) int {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 100:
		return 100
	default:
		return int(math.Round(v))
	}
}
