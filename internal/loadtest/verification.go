package loadtest

import (
	"context"
	"fmt"
	"log"
	"math"
)

// scoreTolerance absorbs the fixed-point rounding the index applies to
// stored scores.
const scoreTolerance = 1e-5

// verifyLeaderboards fetches every game's leaderboard and checks it
// against the best score computed locally from the generated submissions.
func verifyLeaderboards(ctx context.Context, config *Config, subs []Submission, stats *Stats) error {
	log.Println("🔍 Verifying leaderboards...")

	client := newHTTPClient(config.Timeout)
	best := expectedBest(subs)

	checked := 0
	for game, expected := range best {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		entries, err := fetchLeaderboard(client, config.BaseURL, game, config.TopN)
		if err != nil {
			return fmt.Errorf("game %s: %w", game, err)
		}

		if err := verifyOrdering(entries); err != nil {
			return fmt.Errorf("game %s: %w", game, err)
		}
		if err := verifyConvergence(entries, expected); err != nil {
			return fmt.Errorf("game %s: %w", game, err)
		}

		checked += len(entries)
		if config.Verbose {
			log.Printf("✅ Game %s verified (%d entries)", game, len(entries))
		}
	}

	stats.LeaderboardEntries = checked
	log.Printf("✅ All %d leaderboards verified (%d entries)", len(best), checked)
	return nil
}

// verifyOrdering checks that scores never increase down the board and
// that ranks are sequential from 1.
func verifyOrdering(entries []Entry) error {
	for i, entry := range entries {
		if entry.Rank != i+1 {
			return fmt.Errorf("entry %d has rank %d, want %d", i, entry.Rank, i+1)
		}
		if i > 0 && entry.Score > entries[i-1].Score {
			return fmt.Errorf("entry %d has higher score than entry %d", i, i-1)
		}
	}
	return nil
}

// verifyConvergence checks that every listed subject carries exactly its
// best submitted score, never a later lower one.
func verifyConvergence(entries []Entry, expected map[string]float64) error {
	for _, entry := range entries {
		want, ok := expected[entry.SubjectID]
		if !ok {
			return fmt.Errorf("subject %s on leaderboard but never submitted", entry.SubjectID)
		}
		if math.Abs(entry.Score-want) > scoreTolerance {
			return fmt.Errorf("subject %s has score %.6f, want best %.6f",
				entry.SubjectID, entry.Score, want)
		}
	}
	return nil
}
