package model

import "errors"

// ErrInvalidSubmission indicates a score submission that failed
// validation before reaching the ranking index.
var ErrInvalidSubmission = errors.New("invalid score submission")
