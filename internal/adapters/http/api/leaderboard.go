// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/playdeck/liverank/internal/domain/model"
)

const defaultLimit = 100

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	GameLeaderboard(ctx context.Context, gameID string, limit int) ([]Entry, error)
	GlobalLeaderboard(ctx context.Context, limit int) ([]Entry, error)
	DailyLeaderboard(ctx context.Context, gameID string, day time.Time, limit int) ([]Entry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	if maxLimit <= 0 {
		maxLimit = defaultLimit
	}
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles three read shapes:
//
//	GET /leaderboard/global?limit=N
//	GET /leaderboard/{gameID}?limit=N
//	GET /leaderboard/{gameID}/daily/{yyyymmdd}?limit=N
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit, err := h.parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/leaderboard/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	var entries []Entry
	switch {
	case len(parts) == 1 && parts[0] == "global":
		entries, err = h.deps.GlobalLeaderboard(r.Context(), limit)
	case len(parts) == 1 && parts[0] != "":
		entries, err = h.deps.GameLeaderboard(r.Context(), parts[0], limit)
	case len(parts) == 3 && parts[1] == "daily":
		var day time.Time
		day, err = model.ParseDayStamp(parts[2])
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
			return
		}
		entries, err = h.deps.DailyLeaderboard(r.Context(), parts[0], day, limit)
	default:
		writeError(w, http.StatusBadRequest, "invalid_input", NewKind(op, ErrBadRequest))
		return
	}
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *LeaderboardHandler) parseLimit(r *http.Request) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		if h.maxLimit < defaultLimit {
			return h.maxLimit, nil
		}
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		return 0, NewKind("parse limit", ErrBadRequest)
	}
	if n > h.maxLimit {
		n = h.maxLimit
	}
	return n, nil
}
