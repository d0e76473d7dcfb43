package repository

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"
)

const testKey = "leaderboard:game:g1"

func TestTreapStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	if count := store.Count(ctx, testKey); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	out, err := store.UpsertIfBetter(ctx, testKey, "u1", 85.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Updated {
		t.Error("expected first write to update")
	}
	if !out.CreatedKey {
		t.Error("expected first write to create the key")
	}

	out, err = store.UpsertIfBetter(ctx, testKey, "u2", 70)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.CreatedKey {
		t.Error("expected existing key")
	}

	if count := store.Count(ctx, testKey); count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}

	entry, err := store.RankOf(ctx, testKey, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 {
		t.Errorf("expected rank 1, got %d", entry.Rank)
	}
	if entry.Score != 85.5 {
		t.Errorf("expected score 85.5, got %f", entry.Score)
	}

	score, err := store.Score(ctx, testKey, "u2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 70 {
		t.Errorf("expected score 70, got %f", score)
	}

	entries, err := store.TopN(ctx, testKey, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].SubjectID != "u1" || entries[1].SubjectID != "u2" {
		t.Errorf("unexpected order: %+v", entries)
	}
}

func TestTreapStore_StrictImprovementOnly(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	if out, _ := store.UpsertIfBetter(ctx, testKey, "u1", 50); !out.Updated {
		t.Error("expected initial write to update")
	}

	// Lower score is a no-op.
	if out, _ := store.UpsertIfBetter(ctx, testKey, "u1", 40); out.Updated {
		t.Error("expected lower score to be rejected")
	}

	// Equal score is a no-op too: strict >, never >=.
	if out, _ := store.UpsertIfBetter(ctx, testKey, "u1", 50); out.Updated {
		t.Error("expected equal score to be rejected")
	}

	if out, _ := store.UpsertIfBetter(ctx, testKey, "u1", 90); !out.Updated {
		t.Error("expected higher score to update")
	}

	score, err := store.Score(ctx, testKey, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 90 {
		t.Errorf("expected score 90, got %f", score)
	}
}

func TestTreapStore_TieStability(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	// u1 reaches 100 first, u2 arrives later at the same value.
	store.UpsertIfBetter(ctx, testKey, "u1", 100)
	store.UpsertIfBetter(ctx, testKey, "u2", 100)

	e1, err := store.RankOf(ctx, testKey, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e2, err := store.RankOf(ctx, testKey, "u2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e1.Rank != 1 || e2.Rank != 2 {
		t.Errorf("expected u1=1 u2=2, got u1=%d u2=%d", e1.Rank, e2.Rank)
	}

	// u3 climbing to the same value later ranks behind both.
	store.UpsertIfBetter(ctx, testKey, "u3", 40)
	store.UpsertIfBetter(ctx, testKey, "u3", 100)

	e3, err := store.RankOf(ctx, testKey, "u3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e3.Rank != 3 {
		t.Errorf("expected u3 rank 3, got %d", e3.Rank)
	}

	// The earlier holders keep their positions.
	e1, _ = store.RankOf(ctx, testKey, "u1")
	if e1.Rank != 1 {
		t.Errorf("expected u1 to keep rank 1, got %d", e1.Rank)
	}
}

func TestTreapStore_RankBounds(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	const k = 200
	for i := 0; i < k; i++ {
		member := fmt.Sprintf("u%03d", i)
		store.UpsertIfBetter(ctx, testKey, member, rand.Float64()*1000)
	}

	seen := make(map[int]bool, k)
	for i := 0; i < k; i++ {
		member := fmt.Sprintf("u%03d", i)
		entry, err := store.RankOf(ctx, testKey, member)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", member, err)
		}
		if entry.Rank < 1 || entry.Rank > k {
			t.Fatalf("rank %d out of bounds [1,%d]", entry.Rank, k)
		}
		if seen[entry.Rank] {
			t.Fatalf("duplicate rank %d", entry.Rank)
		}
		seen[entry.Rank] = true
	}
}

func TestTreapStore_TopNOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	scores := []float64{85, 95, 75, 100, 80}
	for i, s := range scores {
		store.UpsertIfBetter(ctx, testKey, fmt.Sprintf("u%d", i+1), s)
	}

	entries, err := store.TopN(ctx, testKey, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	want := []struct {
		member string
		score  float64
	}{
		{"u4", 100},
		{"u2", 95},
		{"u1", 85},
	}
	for i, w := range want {
		if entries[i].SubjectID != w.member || entries[i].Score != w.score {
			t.Errorf("position %d: got %+v, want %+v", i, entries[i], w)
		}
		if entries[i].Rank != i+1 {
			t.Errorf("position %d: got rank %d", i, entries[i].Rank)
		}
	}

	// Limit larger than the index returns everything.
	entries, err = store.TopN(ctx, testKey, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != len(scores) {
		t.Errorf("expected %d entries, got %d", len(scores), len(entries))
	}

	if _, err := store.TopN(ctx, testKey, 0); err != ErrInvalidLimit {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestTreapStore_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	store.UpsertIfBetter(ctx, "leaderboard:game:g1", "u1", 100)
	store.UpsertIfBetter(ctx, "leaderboard:game:g2", "u1", 50)
	store.UpsertIfBetter(ctx, "leaderboard:global", "u1", 100)

	s1, _ := store.Score(ctx, "leaderboard:game:g1", "u1")
	s2, _ := store.Score(ctx, "leaderboard:game:g2", "u1")
	if s1 != 100 || s2 != 50 {
		t.Errorf("expected independent scores, got g1=%f g2=%f", s1, s2)
	}

	if keys := store.Keys(ctx); keys != 3 {
		t.Errorf("expected 3 keys, got %d", keys)
	}
	if entries := store.Entries(ctx); entries != 3 {
		t.Errorf("expected 3 entries, got %d", entries)
	}
}

func TestTreapStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	if _, err := store.Score(ctx, testKey, "ghost"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.RankOf(ctx, testKey, "ghost"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	entries, err := store.TopN(ctx, "leaderboard:game:absent", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty result for absent key, got %d entries", len(entries))
	}

	store.UpsertIfBetter(ctx, testKey, "u1", 10)
	if _, err := store.Score(ctx, testKey, "ghost"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTreapStore_ConcurrentMaxConvergence(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	const writers = 32
	const perWriter = 100

	var wg sync.WaitGroup
	max := 0.0
	var maxMu sync.Mutex

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			for i := 0; i < perWriter; i++ {
				v := r.Float64() * 10000
				maxMu.Lock()
				if v > max {
					max = v
				}
				maxMu.Unlock()
				if _, err := store.UpsertIfBetter(ctx, testKey, "u1", v); err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}(int64(w))
	}
	wg.Wait()

	got, err := store.Score(ctx, testKey, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != toFloat(toFixedPoint(max)) {
		t.Errorf("expected max %f, got %f", max, got)
	}
}

func TestTreapStore_ConcurrentPairRace(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	// Two submissions race in either arrival order; the higher always wins.
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("leaderboard:game:race%d", i)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.UpsertIfBetter(ctx, key, "u3", 50)
		}()
		go func() {
			defer wg.Done()
			store.UpsertIfBetter(ctx, key, "u3", 70)
		}()
		wg.Wait()

		got, err := store.Score(ctx, key, "u3")
		if err != nil {
			t.Fatalf("round %d: unexpected error: %v", i, err)
		}
		if got != 70 {
			t.Fatalf("round %d: expected 70, got %f", i, got)
		}
	}
}

func TestTreapStore_RestoreTieOrder(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	// Rows arrive out of log order, as concurrent replay workers deliver
	// them; the supplied sequence decides the tie order regardless.
	if _, err := store.Restore(ctx, testKey, "u3", 100, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Restore(ctx, testKey, "u1", 100, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Restore(ctx, testKey, "u2", 100, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := store.TopN(ctx, testKey, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"u1", "u2", "u3"} {
		if entries[i].SubjectID != want {
			t.Errorf("position %d: expected %s, got %s", i+1, want, entries[i].SubjectID)
		}
	}

	// Restoring a lower score for a known member is still a no-op.
	out, err := store.Restore(ctx, testKey, "u1", 50, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Updated {
		t.Error("expected lower restored score to be rejected")
	}

	// Live writes after a restore sort behind every restored entry: the
	// sequence counter never falls behind a restored sequence.
	if _, err := store.UpsertIfBetter(ctx, testKey, "u4", 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, err := store.RankOf(ctx, testKey, "u4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 4 {
		t.Errorf("expected rank 4 for the late equal score, got %d", entry.Rank)
	}
}

func TestTreapStore_ExpireDropsKey(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	key := "leaderboard:game:g1:20260314"
	store.UpsertIfBetter(ctx, key, "u1", 100)
	if err := store.Expire(ctx, key, 50*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A second Expire never extends the original deadline.
	if err := store.Expire(ctx, key, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.Count(ctx, key) == 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	entries, err := store.TopN(ctx, key, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected expired key to read empty, got %d entries", len(entries))
	}
	if _, err := store.RankOf(ctx, key, "u1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestTreapStore_ClosedStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	if err := store.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Close is idempotent.
	if err := store.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.UpsertIfBetter(ctx, testKey, "u1", 1); err != ErrUnavailable {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if err := store.Expire(ctx, testKey, time.Minute); err != ErrUnavailable {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestFixedPointRoundTrip(t *testing.T) {
	cases := []float64{0, 1, -1, 99.5, 1234.567890, 1e9}
	for _, c := range cases {
		if got := toFloat(toFixedPoint(c)); got != c {
			t.Errorf("round trip %f -> %f", c, got)
		}
	}
	if got := toFixedPoint(0.0000001); got != 0 {
		// Below resolution rounds to zero.
		t.Errorf("expected 0, got %d", got)
	}
}
