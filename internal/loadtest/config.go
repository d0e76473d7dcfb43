package loadtest

import "time"

// Config holds configuration for the score load test
type Config struct {
	BaseURL   string        // Base URL of the service
	NumScores int           // Number of scores to generate
	NumGames  int           // Number of distinct games to spread scores over
	Subjects  int           // Number of distinct subjects per game
	TopN      int           // Number of top entries to fetch per leaderboard
	Workers   int           // Number of concurrent workers
	Timeout   time.Duration // HTTP request timeout
	LogFile   string        // Log file for test output
	Verbose   bool          // Enable verbose logging
}

// Submission represents a score to be submitted
type Submission struct {
	GameID    string  `json:"game_id"`
	SubjectID string  `json:"subject_id"`
	Score     float64 `json:"score"`
}

// Entry represents a leaderboard entry
type Entry struct {
	Rank      int     `json:"rank"`
	SubjectID string  `json:"subject_id"`
	Score     float64 `json:"score"`
}

// SubmitResponse represents the response from score submission
type SubmitResponse struct {
	Updated bool    `json:"updated"`
	Rank    int     `json:"rank"`
	Score   float64 `json:"score"`
}

// Stats holds test statistics
type Stats struct {
	ScoresGenerated    int
	ScoresSubmitted    int
	ScoresSuccessful   int
	ScoresImproved     int
	ScoresFailed       int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
