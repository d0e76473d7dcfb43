package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowEvictor_DropsExpiredKeys(t *testing.T) {
	var mu sync.Mutex
	dropped := []string{}

	e := NewWindowEvictor(func(key string) {
		mu.Lock()
		defer mu.Unlock()
		dropped = append(dropped, key)
	})
	defer e.Stop()

	require.True(t, e.Schedule("day:a", 50*time.Millisecond))
	require.True(t, e.Scheduled("day:a"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(dropped) == 1 && dropped[0] == "day:a"
	}, 2*time.Second, 10*time.Millisecond)

	assert.False(t, e.Scheduled("day:a"))
}

func TestWindowEvictor_RetentionIsSetOnce(t *testing.T) {
	var mu sync.Mutex
	dropped := map[string]time.Time{}

	e := NewWindowEvictor(func(key string) {
		mu.Lock()
		defer mu.Unlock()
		dropped[key] = time.Now()
	})
	defer e.Stop()

	start := time.Now()
	require.True(t, e.Schedule("day:b", 60*time.Millisecond))

	// A later Schedule with a longer retention must not extend the deadline.
	require.False(t, e.Schedule("day:b", time.Hour))

	deadline, ok := e.Deadline("day:b")
	require.True(t, ok)
	assert.WithinDuration(t, start.Add(60*time.Millisecond), deadline, 30*time.Millisecond)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		_, ok := dropped["day:b"]
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	droppedAt := dropped["day:b"]
	mu.Unlock()
	assert.Less(t, droppedAt.Sub(start), time.Second, "eviction must follow the original retention, not the later one")
}

func TestWindowEvictor_UntrackedKey(t *testing.T) {
	e := NewWindowEvictor(func(string) {})
	defer e.Stop()

	assert.False(t, e.Scheduled("ghost"))
	_, ok := e.Deadline("ghost")
	assert.False(t, ok)
}
