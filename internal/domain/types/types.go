// Package types contains common types used across the application
package types

// Entry represents a leaderboard entry
type Entry struct {
	Rank      int     `json:"rank"`
	SubjectID string  `json:"subject_id"`
	Score     float64 `json:"score"`
}

// SubmitResult is the authoritative response for one score submission.
// Rank and Score always reflect the per-game index.
type SubmitResult struct {
	Updated bool    `json:"updated"`
	Rank    int     `json:"rank"`
	Score   float64 `json:"score"`
}

// RankUpdate is the event payload delivered to live subscribers.
type RankUpdate struct {
	GameID    string  `json:"game_id"`
	SubjectID string  `json:"subject_id"`
	Score     float64 `json:"score"`
	Rank      int     `json:"rank"`
}
