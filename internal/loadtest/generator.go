package loadtest

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/playdeck/liverank/pkg/logger"
)

// Score generation ranges. A small share of subjects are "hot" and submit
// repeatedly, which exercises the conditional-max path with both improving
// and non-improving scores.
const (
	maxScore       = 100000.0
	hotSubjectRate = 0.2
	repeatRate     = 0.5
)

// generateSubmissions creates the configured number of score submissions
// spread over NumGames games and Subjects subjects per game. Subjects may
// repeat, so the durable log sees a realistic mix of improving, tying and
// regressing scores.
func generateSubmissions(ctx context.Context, config *Config, stats *Stats) []Submission {
	logger.Get().Info(ctx, "generating score submissions",
		logger.Int("numScores", config.NumScores),
		logger.Int("games", config.NumGames),
		logger.Int("subjectsPerGame", config.Subjects),
	)

	games := make([]string, config.NumGames)
	for i := range games {
		games[i] = fmt.Sprintf("game-%d", i+1)
	}

	// Pre-allocate subject pools per game
	subjects := make(map[string][]string, config.NumGames)
	for _, game := range games {
		pool := make([]string, config.Subjects)
		for i := range pool {
			pool[i] = uuid.New().String()
		}
		subjects[game] = pool
	}

	subs := make([]Submission, config.NumScores)
	for i := range subs {
		game := games[rand.IntN(len(games))]
		pool := subjects[game]

		// Hot subjects cluster at the front of the pool.
		var subject string
		if rand.Float64() < repeatRate {
			hot := int(float64(len(pool)) * hotSubjectRate)
			if hot < 1 {
				hot = 1
			}
			subject = pool[rand.IntN(hot)]
		} else {
			subject = pool[rand.IntN(len(pool))]
		}

		subs[i] = Submission{
			GameID:    game,
			SubjectID: subject,
			Score:     rand.Float64() * maxScore,
		}
	}

	stats.ScoresGenerated = len(subs)
	return subs
}

// expectedBest folds the generated submissions down to the best score per
// game and subject, which is what the service is expected to converge to.
func expectedBest(subs []Submission) map[string]map[string]float64 {
	best := make(map[string]map[string]float64)
	for _, sub := range subs {
		game, ok := best[sub.GameID]
		if !ok {
			game = make(map[string]float64)
			best[sub.GameID] = game
		}
		if sub.Score > game[sub.SubjectID] {
			game[sub.SubjectID] = sub.Score
		}
	}
	return best
}
