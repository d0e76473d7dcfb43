package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/playdeck/liverank/internal/loadtest"
)

// Default configuration constants.
const (
	defaultNumScores   = 10000
	defaultNumGames    = 5
	defaultSubjects    = 500
	defaultTopN        = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9090", "Base URL of the service")
		numScores = flag.Int("scores", defaultNumScores, "Number of scores to generate and submit")
		numGames  = flag.Int("games", defaultNumGames, "Number of distinct games")
		subjects  = flag.Int("subjects", defaultSubjects, "Number of distinct subjects per game")
		topN      = flag.Int("top", defaultTopN, "Number of top entries to fetch per leaderboard")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile   = flag.String("log", "", "Log file for test output (default: loadtest_TIMESTAMP.log)")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	// Setup logging
	if err := loadtest.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &loadtest.Config{
		BaseURL:   *baseURL,
		NumScores: *numScores,
		NumGames:  *numGames,
		Subjects:  *subjects,
		TopN:      *topN,
		Workers:   *workers,
		Timeout:   *timeout,
		LogFile:   *logFile,
		Verbose:   *verbose,
	}

	// Run the test
	if err := loadtest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load test failed: " + err.Error() + "\n")
		return
	}
}
