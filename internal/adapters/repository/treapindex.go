package repository

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/playdeck/liverank/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// One treap exists per index key. Ordering inside a treap: score DESC, then
// insertion sequence ASC, so in-order traversal produces the leaderboard from
// best to worst with stable tie-breaking. The conditional-max upsert holds the
// index lock across compare, delete and insert, which makes it atomic at the
// store level: concurrent writers for the same (key, member) can never lose
// the higher score.

// scoreScale controls fixed-point scaling from float64.
const scoreScale = 1_000_000 // 6 decimal places

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	if math.IsNaN(x) {
		return 0
	}
	scaled := x * scoreScale
	if scaled > float64(math.MaxInt64) {
		return scoreFP(math.MaxInt64)
	}
	if scaled < float64(math.MinInt64) {
		return scoreFP(math.MinInt64)
	}
	return scoreFP(math.Round(scaled))
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

// record stores the fixed-point score plus the sequence number assigned when
// the qualifying score was stored. Lower sequence wins ties.
type record struct {
	score scoreFP
	seq   uint64
}

// treap node
type node struct {
	member string
	score  scoreFP
	seq    uint64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// ranksBefore reports whether entry a appears before entry b in the
// leaderboard: higher scores first, earlier stores first among ties. The
// member is a final tie-break so every entry has a distinct position even
// if a restored sequence collides with a live one.
func ranksBefore(aScore scoreFP, aSeq uint64, aMember string, bScore scoreFP, bSeq uint64, bMember string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	if aSeq != bSeq {
		return aSeq < bSeq
	}
	return aMember < bMember
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, member string, score scoreFP, seq uint64) *node {
	if n == nil {
		return &node{member: member, score: score, seq: seq, prio: rand.Uint64(), size: 1}
	}
	if ranksBefore(score, seq, member, n.score, n.seq, n.member) {
		n.left = insert(n.left, member, score, seq)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, member, score, seq)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, member string, score scoreFP, seq uint64) *node {
	if n == nil {
		return nil
	}
	if score == n.score && seq == n.seq && member == n.member {
		// Merge children by rotating the higher priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, member, score, seq)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, member, score, seq)
		}
	} else if ranksBefore(score, seq, member, n.score, n.seq, n.member) {
		n.left = deleteNode(n.left, member, score, seq)
	} else {
		n.right = deleteNode(n.right, member, score, seq)
	}
	fix(n)
	return n
}

// rankOfNode returns the 1-based in-order position of the entry using
// subtree sizes, or 0 when absent. O(log n) expected.
func rankOfNode(n *node, member string, score scoreFP, seq uint64) int {
	rank := 0
	for n != nil {
		switch {
		case score == n.score && seq == n.seq && member == n.member:
			return rank + nsize(n.left) + 1
		case ranksBefore(score, seq, member, n.score, n.seq, n.member):
			n = n.left
		default:
			rank += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// collectTopN appends up to limit entries in rank order (best first).
func collectTopN(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, Entry{
			Rank:      len(*out) + 1,
			SubjectID: n.member,
			Score:     toFloat(n.score),
		})
		collectTopN(n.right, limit, out)
	}
}

// rankIndex is one ordered index for a single key.
type rankIndex struct {
	mu       sync.RWMutex
	root     *node
	byMember map[string]record
}

func newRankIndex() *rankIndex {
	return &rankIndex{byMember: make(map[string]record)}
}

// upsertIfBetter is the atomic conditional-max write. nextSeq is invoked only
// when the score qualifies, while the index lock is held, so sequence order
// matches store order within the index.
func (ix *rankIndex) upsertIfBetter(member string, score scoreFP, nextSeq func() uint64) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.byMember[member]; ok {
		if score <= old.score { // strict improvement only
			return false
		}
		ix.root = deleteNode(ix.root, member, old.score, old.seq)
	}
	seq := nextSeq()
	ix.byMember[member] = record{score: score, seq: seq}
	ix.root = insert(ix.root, member, score, seq)
	return true
}

func (ix *rankIndex) score(member string) (scoreFP, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.byMember[member]
	return rec.score, ok
}

func (ix *rankIndex) rank(member string) (Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.byMember[member]
	if !ok {
		return Entry{}, false
	}
	pos := rankOfNode(ix.root, member, rec.score, rec.seq)
	if pos == 0 {
		return Entry{}, false
	}
	return Entry{Rank: pos, SubjectID: member, Score: toFloat(rec.score)}, true
}

func (ix *rankIndex) top(limit int) []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Entry, 0, limit)
	collectTopN(ix.root, limit, &out)
	return out
}

func (ix *rankIndex) count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byMember)
}

// TreapStore implements Store over a map of per-key treaps.
type TreapStore struct {
	mu      sync.RWMutex
	indexes map[string]*rankIndex
	seq     uint64 // last issued insertion sequence
	seqMu   sync.Mutex
	closed  bool

	evictor *WindowEvictor

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		indexes:               make(map[string]*rankIndex),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.evictor = NewWindowEvictor(s.dropKey)
	s.startMetricsUpdater(ctx)
	return s
}

func (s *TreapStore) nextSeq() uint64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seq++
	return s.seq
}

// getIndex returns the index for key, creating it when create is set.
func (s *TreapStore) getIndex(key string, create bool) (*rankIndex, bool, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, false, ErrUnavailable
	}
	ix, ok := s.indexes[key]
	s.mu.RUnlock()
	if ok || !create {
		return ix, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrUnavailable
	}
	if ix, ok = s.indexes[key]; ok {
		return ix, false, nil
	}
	ix = newRankIndex()
	s.indexes[key] = ix
	return ix, true, nil
}

func (s *TreapStore) dropKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexes, key)
}

// UpsertIfBetter implements Store.UpsertIfBetter with O(log n) expected time.
func (s *TreapStore) UpsertIfBetter(ctx context.Context, key, member string, score float64) (UpsertOutcome, error) {
	start := time.Now()
	defer func() {
		metrics.RecordIndexUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	ix, created, err := s.getIndex(key, true)
	if err != nil {
		return UpsertOutcome{}, err
	}
	updated := ix.upsertIfBetter(member, toFixedPoint(score), s.nextSeq)
	return UpsertOutcome{Updated: updated, CreatedKey: created}, nil
}

// Restore implements Store.Restore. The supplied sequence becomes the entry's
// tie-break position, so replaying the durable log in any worker order still
// reproduces the original tie order. The internal counter is advanced to at
// least seq before the write, which keeps live writes that follow a replay
// ranked after every restored entry.
func (s *TreapStore) Restore(ctx context.Context, key, member string, score float64, seq uint64) (UpsertOutcome, error) {
	ix, created, err := s.getIndex(key, true)
	if err != nil {
		return UpsertOutcome{}, err
	}
	s.seqMu.Lock()
	if seq > s.seq {
		s.seq = seq
	}
	s.seqMu.Unlock()
	updated := ix.upsertIfBetter(member, toFixedPoint(score), func() uint64 { return seq })
	return UpsertOutcome{Updated: updated, CreatedKey: created}, nil
}

// Score implements Store.Score.
func (s *TreapStore) Score(ctx context.Context, key, member string) (float64, error) {
	ix, _, err := s.getIndex(key, false)
	if err != nil {
		return 0, err
	}
	if ix == nil {
		return 0, ErrNotFound
	}
	fp, ok := ix.score(member)
	if !ok {
		return 0, ErrNotFound
	}
	return toFloat(fp), nil
}

// RankOf implements Store.RankOf in O(log n) expected time.
func (s *TreapStore) RankOf(ctx context.Context, key, member string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordIndexQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	ix, _, err := s.getIndex(key, false)
	if err != nil {
		return Entry{}, err
	}
	if ix == nil {
		return Entry{}, ErrNotFound
	}
	entry, ok := ix.rank(member)
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

// TopN implements Store.TopN. An absent key yields an empty slice, matching
// the read semantics of expired day windows.
func (s *TreapStore) TopN(ctx context.Context, key string, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordIndexQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		return nil, ErrInvalidLimit
	}
	ix, _, err := s.getIndex(key, false)
	if err != nil {
		return nil, err
	}
	if ix == nil {
		return []Entry{}, nil
	}
	return ix.top(n), nil
}

// Expire implements Store.Expire. The retention window is fixed by the first
// call for a key; subsequent calls never extend it.
func (s *TreapStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrUnavailable
	}
	s.evictor.Schedule(key, ttl)
	return nil
}

// Count implements Store.Count.
func (s *TreapStore) Count(ctx context.Context, key string) int {
	ix, _, err := s.getIndex(key, false)
	if err != nil || ix == nil {
		return 0
	}
	return ix.count()
}

// Keys returns the number of live index keys.
func (s *TreapStore) Keys(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.indexes)
}

// Entries returns the total number of member entries across all keys.
func (s *TreapStore) Entries(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, ix := range s.indexes {
		total += ix.count()
	}
	return total
}

// Close shuts down the evictor and background goroutines.
func (s *TreapStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	s.evictor.Stop()
	return nil
}

// startMetricsUpdater publishes index size gauges on an interval.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateIndexKeys(s.Keys(ctx))
				metrics.UpdateIndexEntries(s.Entries(ctx))
			}
		}
	}()
}
