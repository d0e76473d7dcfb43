package loadtest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/playdeck/liverank/pkg/logger"
)

// Run executes the complete score load test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting liverank score load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("scores", config.NumScores),
		logger.Int("games", config.NumGames),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate submissions
	subs := generateSubmissions(ctx, config, stats)

	// Step 3: Submit scores concurrently
	if err := submitScores(ctx, config, subs, stats); err != nil {
		return fmt.Errorf("score submission failed: %w", err)
	}

	// Step 4: Fetch each game's leaderboard and verify convergence
	if err := verifyLeaderboards(ctx, config, subs, stats); err != nil {
		return fmt.Errorf("leaderboard verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "load test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != 200 {
		return fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	rate := 0.0
	if stats.Duration > 0 {
		rate = float64(stats.ScoresSubmitted) / stats.Duration.Seconds()
	}

	log.Printf(`📈 Final statistics:
   Generated: %d
   Submitted: %d
   Successful: %d
   Improved: %d
   Failed: %d
   Leaderboard entries checked: %d
   Duration: %s
   Throughput: %.1f scores/sec
`,
		stats.ScoresGenerated,
		stats.ScoresSubmitted,
		stats.ScoresSuccessful,
		stats.ScoresImproved,
		stats.ScoresFailed,
		stats.LeaderboardEntries,
		stats.Duration.Round(time.Millisecond),
		rate,
	)
}
