package models

import "math"

// WordTiming is a single recognized (or reference) word with offsets in seconds
// relative to the start of the utterance.
type WordTiming struct {
	Word       string  `json:"word"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Confidence float64 `json:"confidence"` // [0,1]; zero for reference words
}

// TranscriptSegment is one provider result forwarded to the client.
// Interim segments may be superseded by a later final one covering the same span.
type TranscriptSegment struct {
	Transcript string       `json:"transcript"`
	IsFinal    bool         `json:"isFinal"`
	Words      []WordTiming `json:"words"`
}

type TimingResolution string

const (
	ResolutionFractional   TimingResolution = "fractional"
	ResolutionWholeSeconds TimingResolution = "seconds"
)

func ParseTimingResolution(v string) (TimingResolution, bool) {
	switch TimingResolution(v) {
	case "", ResolutionWholeSeconds:
		return ResolutionWholeSeconds, true
	case ResolutionFractional:
		return ResolutionFractional, true
	default:
		return "", false
	}
}

// Apply quantizes an offset. Whole-second resolution (also the zero value)
// truncates toward zero, matching providers that only report the seconds
// component of a duration.
func (r TimingResolution) Apply(seconds float64) float64 {
	if r == ResolutionFractional {
		return seconds
	}
	return math.Trunc(seconds)
}
