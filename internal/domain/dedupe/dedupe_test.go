package dedupe

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestSeenAndRecord(t *testing.T) {
	d := NewInMemoryDeduper()
	defer d.Stop()
	ctx := context.Background()

	if d.SeenAndRecord(ctx, "tetris|alice|100") {
		t.Fatalf("first sighting reported as seen")
	}
	if !d.SeenAndRecord(ctx, "tetris|alice|100") {
		t.Fatalf("second sighting not reported as seen")
	}
	if d.SeenAndRecord(ctx, "tetris|alice|200") {
		t.Fatalf("different key reported as seen")
	}
	if got := d.Size(); got != 2 {
		t.Fatalf("Size() = %d, want 2", got)
	}
}

func TestUnrecord(t *testing.T) {
	d := NewInMemoryDeduper()
	defer d.Stop()
	ctx := context.Background()

	d.SeenAndRecord(ctx, "k")
	d.Unrecord(ctx, "k")
	if d.SeenAndRecord(ctx, "k") {
		t.Fatalf("unrecorded key still reported as seen")
	}
}

func TestKeysLapse(t *testing.T) {
	d := NewInMemoryDeduper(WithTTL(20 * time.Millisecond))
	defer d.Stop()
	ctx := context.Background()

	d.SeenAndRecord(ctx, "k")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !d.SeenAndRecord(ctx, "k") {
			return // lapsed and was re-recorded
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("key never lapsed")
}

func TestBoundedCapacity(t *testing.T) {
	d := NewInMemoryDeduper(WithMaxSize(10))
	defer d.Stop()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		d.SeenAndRecord(ctx, fmt.Sprintf("key-%d", i))
	}
	if got := d.Size(); got > 10 {
		t.Fatalf("Size() = %d, want at most 10", got)
	}
}
