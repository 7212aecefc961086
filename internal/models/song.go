package models

// ReferenceSong is a lyric track with designed word timings. Loaded once at
// startup and never mutated.
type ReferenceSong struct {
	Key             string       `json:"key"`
	DisplayText     string       `json:"displayText"`
	Language        string       `json:"language"` // BCP-47, ex: "en-US"
	DurationSeconds float64      `json:"durationSeconds"`
	Words           []WordTiming `json:"words"`
}

// ReferenceWord is the public view of a reference word; confidence is omitted.
type ReferenceWord struct {
	Word      string  `json:"word"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

type SongSummary struct {
	Key             string  `json:"key"`
	DisplayText     string  `json:"displayText"`
	Language        string  `json:"language"`
	DurationSeconds float64 `json:"durationSeconds"`
}

type SongDetail struct {
	SongSummary
	Words []ReferenceWord `json:"words"`
}

func (s *ReferenceSong) Summary() SongSummary {
	return SongSummary{
		Key:             s.Key,
		DisplayText:     s.DisplayText,
		Language:        s.Language,
		DurationSeconds: s.DurationSeconds,
	}
}

func (s *ReferenceSong) Detail() SongDetail {
	words := make([]ReferenceWord, 0, len(s.Words))
	for _, w := range s.Words {
		words = append(words, ReferenceWord{Word: w.Word, StartTime: w.StartTime, EndTime: w.EndTime})
	}
	return SongDetail{SongSummary: s.Summary(), Words: words}
}
