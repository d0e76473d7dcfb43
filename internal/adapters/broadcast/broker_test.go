package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/playdeck/liverank/internal/adapters/broadcast"
	"github.com/playdeck/liverank/internal/domain/types"
	"github.com/playdeck/liverank/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func recv(t *testing.T, sub *broadcast.Subscription) types.RankUpdate {
	t.Helper()
	select {
	case ev, ok := <-sub.Updates():
		if !ok {
			t.Fatal("subscription channel closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
	}
	return types.RankUpdate{}
}

func TestBroker_GameAndGlobalDelivery(t *testing.T) {
	ctx := context.Background()
	b := broadcast.New()
	defer b.Close()

	gameSub, err := b.Subscribe(ctx, broadcast.GameRoom("g1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	otherSub, err := b.Subscribe(ctx, broadcast.GameRoom("g2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	globalSub, err := b.Subscribe(ctx, broadcast.GlobalRoom)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev := types.RankUpdate{GameID: "g1", SubjectID: "u1", Score: 100, Rank: 1}
	if err := b.Publish(ctx, ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := recv(t, gameSub); got != ev {
		t.Errorf("game subscriber got %+v", got)
	}
	if got := recv(t, globalSub); got != ev {
		t.Errorf("global subscriber got %+v", got)
	}

	select {
	case got := <-otherSub.Updates():
		t.Errorf("g2 subscriber unexpectedly received %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroker_PerRoomOrdering(t *testing.T) {
	ctx := context.Background()
	b := broadcast.New()
	defer b.Close()

	sub, err := b.Subscribe(ctx, broadcast.GameRoom("g1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Sequential publishes must arrive in call order.
	for i := 1; i <= 20; i++ {
		ev := types.RankUpdate{GameID: "g1", SubjectID: "u1", Score: float64(i), Rank: 1}
		if err := b.Publish(ctx, ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for i := 1; i <= 20; i++ {
		got := recv(t, sub)
		if got.Score != float64(i) {
			t.Fatalf("position %d: got score %f", i, got.Score)
		}
	}
}

func TestBroker_SlowSubscriberDropsNotBlocks(t *testing.T) {
	ctx := context.Background()
	b := broadcast.New(broadcast.WithBufferSize(2))
	defer b.Close()

	sub, err := b.Subscribe(ctx, broadcast.GlobalRoom)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_ = b.Publish(ctx, types.RankUpdate{GameID: "g1", SubjectID: "u1", Score: float64(i), Rank: 1})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// The buffer holds the first two updates; the rest were dropped.
	first := recv(t, sub)
	second := recv(t, sub)
	if first.Score != 0 || second.Score != 1 {
		t.Errorf("expected scores 0 and 1, got %f and %f", first.Score, second.Score)
	}
	select {
	case got := <-sub.Updates():
		t.Errorf("expected no further updates, got %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroker_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	b := broadcast.New()
	defer b.Close()

	sub, err := b.Subscribe(ctx, broadcast.GameRoom("g1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := b.Subscribers(); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	b.Unsubscribe(ctx, sub)
	if got := b.Subscribers(); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}
	if _, ok := <-sub.Updates(); ok {
		t.Error("expected closed channel after unsubscribe")
	}

	// Double unsubscribe is harmless.
	b.Unsubscribe(ctx, sub)
}

func TestBroker_Close(t *testing.T) {
	ctx := context.Background()
	b := broadcast.New()

	sub, err := b.Subscribe(ctx, broadcast.GlobalRoom)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := <-sub.Updates(); ok {
		t.Error("expected closed channel after broker close")
	}
	if err := b.Publish(ctx, types.RankUpdate{GameID: "g1"}); err != broadcast.ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := b.Subscribe(ctx, broadcast.GlobalRoom); err != broadcast.ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
