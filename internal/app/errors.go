package service

import (
	"errors"

	"github.com/playdeck/liverank/internal/domain/model"
)

// Service errors.
var (
	// ErrInvalidSubmission indicates a submission that failed validation
	// before reaching the ranking index.
	ErrInvalidSubmission = model.ErrInvalidSubmission

	// ErrNotStarted indicates the service was used before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrRebuildInProgress indicates a rebuild was requested while another
	// rebuild is still running.
	ErrRebuildInProgress = errors.New("rebuild already in progress")
)
