// Package service provides the core ranking engine that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/playdeck/liverank/internal/adapters/broadcast"
	"github.com/playdeck/liverank/internal/adapters/repository"
	"github.com/playdeck/liverank/internal/adapters/scorelog"
	"github.com/playdeck/liverank/internal/domain/dedupe"
	"github.com/playdeck/liverank/internal/domain/model"
	"github.com/playdeck/liverank/internal/domain/types"
	"github.com/playdeck/liverank/pkg/logger"
	"github.com/playdeck/liverank/pkg/metrics"
)

// Service implements the API dependencies for the live ranking system.
// Every submission is written to three index keys: the per-game key,
// the global key, and the per-game daily key for the current UTC date.
type Service struct {
	mu sync.RWMutex

	// Core components
	index    repository.Store
	broker   *broadcast.Broker
	scoreLog *scorelog.Log
	deduper  dedupe.Deduper

	// Configuration
	dbPath          string
	retention       time.Duration
	dedupeSize      int
	broadcastBuffer int
	replayWorkers   int
	replayQueueSize int
	clock           clockwork.Clock

	// State
	started    bool
	rebuilding bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDBPath sets the path of the durable score log database.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithRetention sets how long daily ranking windows are kept.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithDedupeSize sets the size of the duplicate-submission cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithBroadcastBuffer sets the per-subscriber update buffer size.
func WithBroadcastBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.broadcastBuffer = size
		}
	}
}

// WithReplayWorkers sets the number of workers used for index rebuilds.
func WithReplayWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.replayWorkers = count
		}
	}
}

// WithReplayQueueSize sets the size of the rebuild row queue.
func WithReplayQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.replayQueueSize = size
		}
	}
}

// WithClock sets the clock used to derive daily window dates.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:          "liverank.db",
		retention:       90 * 24 * time.Hour,
		dedupeSize:      50000,
		broadcastBuffer: 64,
		replayWorkers:   runtime.NumCPU() * 2,
		replayQueueSize: 1024,
		clock:           clockwork.NewRealClock(),
		logger:          nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ranking service...")

	log, err := scorelog.Open(s.dbPath)
	if err != nil {
		return fmt.Errorf("open score log: %w", err)
	}
	s.scoreLog = log

	s.index = repository.NewTreapStore(ctx)
	s.logger.Info(ctx, "using treap store")
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.broker = broadcast.New(
		broadcast.WithBufferSize(s.broadcastBuffer),
		broadcast.WithLogger(s.logger.Named("broadcast")),
	)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.String("dbPath", s.dbPath),
		logger.String("retention", s.retention.String()),
		logger.Int("broadcastBuffer", s.broadcastBuffer),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping ranking service...")

	if s.broker != nil {
		s.broker.Close()
	}
	if s.index != nil {
		_ = s.index.Close()
	}
	if s.scoreLog != nil {
		_ = s.scoreLog.Close()
	}
	if s.deduper != nil {
		s.deduper.Stop()
	}

	s.started = false
	s.logger.Info(context.Background(), "ranking service stopped")
}

// SubmitScore records a score for a subject in a game. The index keeps only
// the best score per subject, so a submission that does not beat the stored
// score leaves the index untouched. Updated reports whether any of the three
// keys changed: a tied best score is a no-op on the all-time keys but still
// creates the subject's first entry in a new daily window. The returned rank
// is always read from the per-game index after the write.
func (s *Service) SubmitScore(ctx context.Context, gameID, subjectID string, score float64) (types.SubmitResult, error) {
	if err := validateSubmission(gameID, subjectID, score); err != nil {
		return types.SubmitResult{}, err
	}

	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return types.SubmitResult{}, ErrNotStarted
	}
	index, scoreLog, broker := s.index, s.scoreLog, s.broker
	deduper := s.deduper
	retention := s.retention
	s.mu.RUnlock()

	metrics.RecordSubmission()
	now := s.clock.Now().UTC()
	sub := model.ScoreSubmission{
		GameID:      gameID,
		SubjectID:   subjectID,
		Score:       score,
		SubmittedAt: now,
	}

	// The durable log is the source of truth for rebuilds; the index can
	// be reconstructed from it, so a log failure must not lose the live
	// ranking update. Identical submissions seen recently are not logged
	// again: replaying one copy of the row converges to the same state.
	// The UTC day stamp is part of the key because a repeat on a new date
	// must land in the log, where the new day window needs it.
	dedupeKey := fmt.Sprintf("%s|%s|%s|%g", gameID, subjectID, model.DayStamp(now), score)
	if !deduper.SeenAndRecord(ctx, dedupeKey) {
		if _, err := scoreLog.Append(ctx, sub); err != nil {
			deduper.Unrecord(ctx, dedupeKey)
			s.logger.Warn(ctx, "durable score append failed",
				logger.String("gameID", gameID),
				logger.String("subjectID", subjectID),
				logger.Error(err),
			)
		}
	}

	gameKey := model.GameKey(gameID)
	gameRes, err := index.UpsertIfBetter(ctx, gameKey, subjectID, score)
	if err != nil {
		return types.SubmitResult{}, fmt.Errorf("update game ranking: %w", err)
	}

	// The per-game key is authoritative; failures on the remaining keys
	// are logged and the submission still succeeds. The keys re-converge
	// on the next better score or on a rebuild.
	globalRes, err := index.UpsertIfBetter(ctx, model.GlobalKey(), subjectID, score)
	if err != nil {
		s.logger.Warn(ctx, "global ranking update failed",
			logger.String("subjectID", subjectID),
			logger.Error(err),
		)
	}
	dayKey := model.DayKey(gameID, now)
	dayRes, err := index.UpsertIfBetter(ctx, dayKey, subjectID, score)
	if err != nil {
		s.logger.Warn(ctx, "daily ranking update failed",
			logger.String("subjectID", subjectID),
			logger.String("day", model.DayStamp(now)),
			logger.Error(err),
		)
	}
	if dayRes.CreatedKey {
		if err := index.Expire(ctx, dayKey, retention); err != nil {
			s.logger.Warn(ctx, "daily window retention not set",
				logger.String("key", dayKey),
				logger.Error(err),
			)
		}
	}

	entry, err := index.RankOf(ctx, gameKey, subjectID)
	if err != nil {
		return types.SubmitResult{}, fmt.Errorf("read rank: %w", err)
	}

	// A resubmitted best score can still open a fresh daily window, so a
	// submission counts as an update when any of the three keys changed.
	updated := gameRes.Updated || globalRes.Updated || dayRes.Updated

	result := types.SubmitResult{
		Updated: updated,
		Rank:    entry.Rank,
		Score:   entry.Score,
	}
	if updated {
		metrics.RecordSubmissionImproved()
		if err := broker.Publish(ctx, types.RankUpdate{
			GameID:    gameID,
			SubjectID: subjectID,
			Score:     entry.Score,
			Rank:      entry.Rank,
		}); err != nil {
			// Live delivery is best effort.
			s.logger.Warn(ctx, "rank update broadcast failed",
				logger.String("gameID", gameID),
				logger.String("subjectID", subjectID),
				logger.Error(err),
			)
		}
	} else {
		metrics.RecordSubmissionRejected()
	}

	return result, nil
}

// maxScore bounds submissions well below the point where the index's
// fixed-point storage saturates and distinct scores compare equal.
const maxScore = 1e12

func validateSubmission(gameID, subjectID string, score float64) error {
	if strings.TrimSpace(gameID) == "" {
		return fmt.Errorf("%w: game id is required", ErrInvalidSubmission)
	}
	if strings.TrimSpace(subjectID) == "" {
		return fmt.Errorf("%w: subject id is required", ErrInvalidSubmission)
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return fmt.Errorf("%w: score must be a finite number", ErrInvalidSubmission)
	}
	if score < 0 {
		return fmt.Errorf("%w: score must not be negative", ErrInvalidSubmission)
	}
	if score > maxScore {
		return fmt.Errorf("%w: score must not exceed %g", ErrInvalidSubmission, float64(maxScore))
	}
	return nil
}

// GameLeaderboard returns the top entries of a single game's ranking.
func (s *Service) GameLeaderboard(ctx context.Context, gameID string, limit int) ([]types.Entry, error) {
	return s.topN(ctx, model.GameKey(gameID), limit)
}

// GlobalLeaderboard returns the top entries across all games.
func (s *Service) GlobalLeaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	return s.topN(ctx, model.GlobalKey(), limit)
}

// DailyLeaderboard returns the top entries of a game's daily window.
// A window that never existed or has already expired yields an empty board.
func (s *Service) DailyLeaderboard(ctx context.Context, gameID string, day time.Time, limit int) ([]types.Entry, error) {
	return s.topN(ctx, model.DayKey(gameID, day), limit)
}

func (s *Service) topN(ctx context.Context, key string, limit int) ([]types.Entry, error) {
	index, err := s.store()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	raw, err := index.TopN(ctx, key, limit)
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	metrics.RecordIndexQueryLatency(float64(time.Since(start).Milliseconds()))

	entries := make([]types.Entry, len(raw))
	for i, e := range raw {
		entries[i] = types.Entry{
			Rank:      e.Rank,
			SubjectID: e.SubjectID,
			Score:     e.Score,
		}
	}
	return entries, nil
}

// SubjectRank returns a subject's current rank in a game.
func (s *Service) SubjectRank(ctx context.Context, gameID, subjectID string) (types.Entry, error) {
	index, err := s.store()
	if err != nil {
		return types.Entry{}, err
	}
	entry, err := index.RankOf(ctx, model.GameKey(gameID), subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return types.Entry{}, err
		}
		return types.Entry{}, fmt.Errorf("read rank: %w", err)
	}
	return types.Entry{
		Rank:      entry.Rank,
		SubjectID: entry.SubjectID,
		Score:     entry.Score,
	}, nil
}

// Subscribe registers a live update subscriber for a room.
func (s *Service) Subscribe(ctx context.Context, room string) (*broadcast.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.broker.Subscribe(ctx, room)
}

// Unsubscribe removes a live update subscriber.
func (s *Service) Unsubscribe(ctx context.Context, sub *broadcast.Subscription) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.broker != nil {
		s.broker.Unsubscribe(ctx, sub)
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"rebuilding": s.rebuilding,
		"retention":  s.retention.String(),
	}
	if s.index != nil {
		if ts, ok := s.index.(*repository.TreapStore); ok {
			ctx := context.Background()
			stats["index_keys"] = ts.Keys(ctx)
			stats["index_entries"] = ts.Entries(ctx)
		}
	}
	if s.broker != nil {
		stats["live_subscribers"] = s.broker.Subscribers()
	}
	if s.scoreLog != nil {
		if n, err := s.scoreLog.Count(context.Background()); err == nil {
			stats["score_rows"] = n
		}
	}
	return stats
}

func (s *Service) store() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.index, nil
}
