package broadcast

import "github.com/playdeck/liverank/pkg/logger"

// defaultBufferSize bounds each subscriber's delivery channel.
const defaultBufferSize = 64

// Option applies a configuration option to the Broker.
type Option func(*Broker)

// WithBufferSize sets the per-subscriber delivery buffer.
func WithBufferSize(size int) Option {
	return func(b *Broker) {
		if size > 0 {
			b.buffer = size
		}
	}
}

// WithLogger sets a custom logger for the broker.
func WithLogger(l logger.Logger) Option {
	return func(b *Broker) {
		if l != nil {
			b.logger = l
		}
	}
}
