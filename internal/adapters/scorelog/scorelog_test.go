package scorelog_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playdeck/liverank/internal/adapters/scorelog"
	"github.com/playdeck/liverank/internal/domain/model"
)

func openTestLog(t *testing.T) *scorelog.Log {
	t.Helper()
	l, err := scorelog.Open(filepath.Join(t.TempDir(), "scores.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLog_AppendAndScan(t *testing.T) {
	ctx := context.Background()
	l := openTestLog(t)

	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	subs := []model.ScoreSubmission{
		{GameID: "g1", SubjectID: "u1", Score: 100, SubmittedAt: base},
		{GameID: "g1", SubjectID: "u2", Score: 90, SubmittedAt: base.Add(time.Minute)},
		{GameID: "g2", SubjectID: "u1", Score: 42.5, SubmittedAt: base.Add(2 * time.Minute)},
	}
	var lastID int64
	for i, sub := range subs {
		id, err := l.Append(ctx, sub)
		require.NoError(t, err)
		assert.Greater(t, id, lastID, "row ids must be monotonic")
		lastID = id
		subs[i].ID = id // Scan reports the assigned row id
	}

	n, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(subs), n)

	var got []model.ScoreSubmission
	require.NoError(t, l.Scan(ctx, func(sub model.ScoreSubmission) error {
		got = append(got, sub)
		return nil
	}))
	assert.Equal(t, subs, got, "scan must return rows in insertion order")
}

func TestLog_ScanAbortsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	l := openTestLog(t)

	for i := 0; i < 5; i++ {
		_, err := l.Append(ctx, model.ScoreSubmission{
			GameID: "g1", SubjectID: "u1", Score: float64(i), SubmittedAt: time.Now(),
		})
		require.NoError(t, err)
	}

	boom := errors.New("boom")
	seen := 0
	err := l.Scan(ctx, func(model.ScoreSubmission) error {
		seen++
		if seen == 2 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, seen)
}

func TestLog_ReopenKeepsRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scores.db")

	l, err := scorelog.Open(path)
	require.NoError(t, err)
	_, err = l.Append(ctx, model.ScoreSubmission{
		GameID: "g1", SubjectID: "u1", Score: 1, SubmittedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l2, err := scorelog.Open(path)
	require.NoError(t, err)
	defer l2.Close()

	n, err := l2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
