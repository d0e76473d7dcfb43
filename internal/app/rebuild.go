package service

import (
	"context"
	"fmt"
	"time"

	"github.com/playdeck/liverank/internal/adapters/replay"
	"github.com/playdeck/liverank/internal/adapters/repository"
	"github.com/playdeck/liverank/internal/domain/model"
	"github.com/playdeck/liverank/pkg/logger"
)

// Rebuild reconstructs the ranking index from the durable score log.
// Rows are replayed into the live index with the same conditional-max
// rule as submissions, so replaying over existing state converges to
// the same rankings. Daily windows older than the retention period are
// skipped; surviving windows get the retention time they have left.
// Rebuilds do not emit live updates.
func (s *Service) Rebuild(ctx context.Context) (int64, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return 0, ErrNotStarted
	}
	if s.rebuilding {
		s.mu.Unlock()
		return 0, ErrRebuildInProgress
	}
	s.rebuilding = true
	index, scoreLog := s.index, s.scoreLog
	workers, queueSize := s.replayWorkers, s.replayQueueSize
	retention := s.retention
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.rebuilding = false
		s.mu.Unlock()
	}()

	s.logger.Info(ctx, "rebuilding ranking index from score log...")
	start := time.Now()

	pipeline := replay.New(
		replay.WithWorkers(workers),
		replay.WithBufferSize(queueSize),
		replay.WithLogger(s.logger.Named("replay")),
	)

	now := s.clock.Now().UTC()
	rows, err := pipeline.Run(ctx, scoreLog.Scan, func(ctx context.Context, sub model.ScoreSubmission) error {
		return replayRow(ctx, index, sub, now, retention)
	})
	if err != nil {
		return rows, fmt.Errorf("rebuild index: %w", err)
	}

	s.logger.Info(ctx, "ranking index rebuilt",
		logger.Int64("rows", rows),
		logger.String("elapsed", time.Since(start).String()),
	)
	return rows, nil
}

// replayRow applies one logged submission to the index. The row id carries
// the tie-break sequence so equal scores keep their logged order no matter
// which worker applies them. The daily window deadline is anchored to the
// original submission time so a rebuild does not extend windows beyond
// their original lifetime.
func replayRow(ctx context.Context, index repository.Store, sub model.ScoreSubmission, now time.Time, retention time.Duration) error {
	seq := uint64(sub.ID)
	if _, err := index.Restore(ctx, model.GameKey(sub.GameID), sub.SubjectID, sub.Score, seq); err != nil {
		return fmt.Errorf("replay game key: %w", err)
	}
	if _, err := index.Restore(ctx, model.GlobalKey(), sub.SubjectID, sub.Score, seq); err != nil {
		return fmt.Errorf("replay global key: %w", err)
	}

	remaining := retention - now.Sub(sub.SubmittedAt)
	if remaining <= 0 {
		return nil
	}
	dayKey := model.DayKey(sub.GameID, sub.SubmittedAt)
	dayRes, err := index.Restore(ctx, dayKey, sub.SubjectID, sub.Score, seq)
	if err != nil {
		return fmt.Errorf("replay day key: %w", err)
	}
	if dayRes.CreatedKey {
		if err := index.Expire(ctx, dayKey, remaining); err != nil {
			return fmt.Errorf("replay day retention: %w", err)
		}
	}
	return nil
}
