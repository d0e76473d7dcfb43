// Package broadcast implements the in-process pub/sub layer that fans rank
// updates out to live subscribers.
package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/playdeck/liverank/internal/domain/types"
	"github.com/playdeck/liverank/pkg/logger"
	"github.com/playdeck/liverank/pkg/metrics"
)

// GlobalRoom is the channel subscribed to by cross-game leaderboard viewers.
const GlobalRoom = "global"

// GameRoom returns the channel name for one game's leaderboard viewers.
func GameRoom(gameID string) string {
	return "game:" + gameID
}

// Subscription is one subscriber's handle on a room. Its lifetime is tied to
// the consumer's connection; the transport layer must Unsubscribe on close.
type Subscription struct {
	id   string
	room string
	ch   chan types.RankUpdate
}

// Updates returns the channel delivering rank updates for this subscription.
// The channel is closed on Unsubscribe or broker shutdown.
func (s *Subscription) Updates() <-chan types.RankUpdate {
	return s.ch
}

// Room returns the room this subscription is attached to.
func (s *Subscription) Room() string {
	return s.room
}

// Broker delivers published rank updates to room subscribers.
//
// Delivery is at-most-once and best-effort: a subscriber whose buffer is full
// misses the update and is expected to re-query the authoritative index state.
// Updates published for the same room are enqueued in publish-call order.
type Broker struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*Subscription
	buffer int
	closed bool

	logger logger.Logger
}

// New constructs a broker with configuration options.
func New(opts ...Option) *Broker {
	b := &Broker{
		rooms:  make(map[string]map[string]*Subscription),
		buffer: defaultBufferSize,
		logger: logger.Get().Named("broadcast"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe attaches a new subscriber to room.
func (b *Broker) Subscribe(ctx context.Context, room string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := &Subscription{
		id:   uuid.NewString(),
		room: room,
		ch:   make(chan types.RankUpdate, b.buffer),
	}
	if b.rooms[room] == nil {
		b.rooms[room] = make(map[string]*Subscription)
	}
	b.rooms[room][sub.id] = sub

	metrics.UpdateLiveSubscribers(b.subscriberCountLocked())
	b.logger.Debug(ctx, "subscriber joined",
		logger.String("room", room),
		logger.String("id", sub.id),
	)
	return sub, nil
}

// Unsubscribe detaches sub and closes its channel. Safe to call once per
// subscription; callers typically defer it on connection close.
func (b *Broker) Unsubscribe(ctx context.Context, sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.rooms[sub.room]
	if !ok {
		return
	}
	if _, ok := subs[sub.id]; !ok {
		return
	}
	delete(subs, sub.id)
	if len(subs) == 0 {
		delete(b.rooms, sub.room)
	}
	close(sub.ch)

	metrics.UpdateLiveSubscribers(b.subscriberCountLocked())
	b.logger.Debug(ctx, "subscriber left",
		logger.String("room", sub.room),
		logger.String("id", sub.id),
	)
}

// Publish delivers ev to the game room and the global room. A slow subscriber
// is skipped rather than blocking the submission path.
func (b *Broker) Publish(ctx context.Context, ev types.RankUpdate) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	b.deliverLocked(ctx, GameRoom(ev.GameID), ev)
	b.deliverLocked(ctx, GlobalRoom, ev)
	return nil
}

func (b *Broker) deliverLocked(ctx context.Context, room string, ev types.RankUpdate) {
	for _, sub := range b.rooms[room] {
		select {
		case sub.ch <- ev:
			metrics.RecordBroadcastDelivered()
		default:
			metrics.RecordBroadcastDropped()
			b.logger.Debug(ctx, "dropping update for slow subscriber",
				logger.String("room", room),
				logger.String("id", sub.id),
			)
		}
	}
}

// Subscribers returns the current number of attached subscribers.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.subscriberCountLocked()
}

func (b *Broker) subscriberCountLocked() int {
	total := 0
	for _, subs := range b.rooms {
		total += len(subs)
	}
	return total
}

// Close shuts down the broker and closes every subscriber channel.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for room, subs := range b.rooms {
		for _, sub := range subs {
			close(sub.ch)
		}
		delete(b.rooms, room)
	}
	metrics.UpdateLiveSubscribers(0)
	return nil
}
