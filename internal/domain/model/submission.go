// Package model contains domain models passed between layers.
package model

import "time"

// ScoreSubmission is one raw score submitted for a subject within a game.
// The durable score log persists it verbatim; the rank indexes only keep
// the best value per subject per key.
type ScoreSubmission struct {
	// ID is the durable log row id; zero until the row is persisted.
	ID          int64
	GameID      string
	SubjectID   string
	Score       float64
	SubmittedAt time.Time
}

// SubjectScore captures a subject's best score used for ranking.
type SubjectScore struct {
	SubjectID string
	Score     float64
}
