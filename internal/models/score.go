package models

// MaxHighScores bounds the persisted leaderboard.
const MaxHighScores = 10

type ScoreBreakdown struct {
	OverallScore    int `json:"overallScore"`
	AccuracyScore   int `json:"accuracyScore"`
	ConfidenceScore int `json:"confidenceScore"`
	TimingScore     int `json:"timingScore"`
}

type HighScoreEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}
