// Package repository defines the rank index store interface and errors.
package repository

import (
	"context"
	"time"
)

// Entry represents one leaderboard row inside a single index key.
type Entry struct {
	Rank      int
	SubjectID string
	Score     float64
}

// UpsertOutcome reports what a conditional-max write did.
type UpsertOutcome struct {
	// Updated is true when the stored score changed (first entry or improvement).
	Updated bool
	// CreatedKey is true when this write created the index key itself.
	CreatedKey bool
}

// Store provides read/write access to the ordered-score indexes. One logical
// index exists per key; keys follow the model.GameKey/GlobalKey/DayKey layout.
type Store interface {
	// UpsertIfBetter stores score for member under key only if it strictly
	// exceeds the current stored value, or no value exists. The comparison and
	// write are a single atomic operation: after any concurrent set of calls
	// for the same (key, member), the stored score is the maximum submitted.
	UpsertIfBetter(ctx context.Context, key, member string, score float64) (UpsertOutcome, error)

	// Score returns the stored score for member under key.
	// Returns ErrNotFound if the member has no entry.
	Score(ctx context.Context, key, member string) (float64, error)

	// RankOf returns the 1-based descending rank and score for member.
	// Among equal scores, the member whose qualifying score was stored
	// earliest ranks first. Returns ErrNotFound for unknown members or keys.
	RankOf(ctx context.Context, key, member string) (Entry, error)

	// TopN returns up to n entries ordered by score descending, ties broken
	// by insertion order. An absent or expired key yields an empty slice.
	TopN(ctx context.Context, key string, n int) ([]Entry, error)

	// Restore is UpsertIfBetter with a caller-supplied tie-break sequence.
	// Replaying the durable log uses the row id, so equal scores come back
	// in their original order no matter how the replay work is scheduled.
	// The store's own sequence counter never falls behind a restored one.
	Restore(ctx context.Context, key, member string, score float64, seq uint64) (UpsertOutcome, error)

	// Expire schedules removal of the entire index at key after ttl.
	// The deadline is fixed by the first call; later calls are no-ops.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Count returns the number of members under key; zero for absent keys.
	Count(ctx context.Context, key string) int

	// Close releases background resources.
	Close() error
}
