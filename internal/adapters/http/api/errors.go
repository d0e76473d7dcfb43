package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/playdeck/liverank/internal/adapters/repository"
	"github.com/playdeck/liverank/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// NewKind annotates a sentinel kind with the operation that raised it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// Wrap annotates an upstream error with the operation that raised it.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// WrapKind annotates an upstream error with both an operation and a
// sentinel kind so callers can match on either.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// isConflict allows the API to translate an already-running rebuild to 409.
// This stays generic to avoid tight coupling with specific packages.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "already in progress")
}

// classify translates ranking engine errors to HTTP statuses: a missing
// subject is 404, a failed index write or re-read is 503, anything else
// is 500.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidSubmission):
		return 400, "invalid_input"
	case errors.Is(err, repository.ErrNotFound):
		return 404, "not_found"
	case errors.Is(err, repository.ErrUnavailable):
		return 503, "index_unavailable"
	default:
		return 500, "internal_error"
	}
}
