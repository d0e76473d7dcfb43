package repository

import "errors"

// Sentinel kinds for rank index errors.
var (
	ErrNotFound     = errors.New("subject not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrUnavailable  = errors.New("index store unavailable")
)
