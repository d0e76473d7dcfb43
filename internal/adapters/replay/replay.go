// Package replay provides the bounded queue and worker pool used to rebuild
// the rank indexes from the durable score log.
package replay

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/playdeck/liverank/internal/domain/model"
	"github.com/playdeck/liverank/pkg/logger"
	"github.com/playdeck/liverank/pkg/metrics"
)

// Source streams score rows into emit, in log order. Returning an error
// aborts the run.
type Source func(ctx context.Context, emit func(model.ScoreSubmission) error) error

// Apply writes one replayed row into the rank indexes. Replaying the same row
// twice is harmless: a non-improving score is a no-op on every index.
type Apply func(ctx context.Context, sub model.ScoreSubmission) error

// Pipeline fans rows from a Source out to a pool of Apply workers through a
// bounded channel.
type Pipeline struct {
	workers int
	buffer  int
	logger  logger.Logger
}

// New constructs a pipeline with configuration options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		workers: runtime.NumCPU() * 2,
		buffer:  defaultBufferSize,
		logger:  logger.Get().Named("replay"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drains source through the worker pool. It returns the number of rows
// applied and the source error, if any. Individual apply failures are logged
// and counted but do not abort the run; the affected rows simply stay stale
// until a later submission or rebuild corrects them.
func (p *Pipeline) Run(ctx context.Context, source Source, apply Apply) (int64, error) {
	rows := make(chan model.ScoreSubmission, p.buffer)

	var applied atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range rows {
				if err := apply(ctx, sub); err != nil {
					metrics.RecordReplayError()
					p.logger.Error(ctx, "replay apply failed",
						logger.String("game", sub.GameID),
						logger.String("subject", sub.SubjectID),
						logger.Error(err),
					)
					continue
				}
				applied.Add(1)
				metrics.RecordReplayRow()
			}
		}()
	}

	err := source(ctx, func(sub model.ScoreSubmission) error {
		select {
		case rows <- sub:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(rows)
	wg.Wait()

	return applied.Load(), err
}
