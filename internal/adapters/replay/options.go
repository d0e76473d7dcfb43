package replay

import "github.com/playdeck/liverank/pkg/logger"

// defaultBufferSize bounds the in-flight row channel.
const defaultBufferSize = 1024

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithWorkers sets the number of apply workers.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithBufferSize sets the bounded row channel capacity.
func WithBufferSize(size int) Option {
	return func(p *Pipeline) {
		if size > 0 {
			p.buffer = size
		}
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}
