// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/playdeck/liverank/internal/domain/types"
)

// ScoreDependencies defines the interface for score submissions.
type ScoreDependencies interface {
	SubmitScore(ctx context.Context, gameID, subjectID string, score float64) (types.SubmitResult, error)
}

// ScoresHandler handles score submission requests.
type ScoresHandler struct {
	deps ScoreDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoreDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// scoreRequest mirrors the JSON schema for POST /scores.
type scoreRequest struct {
	GameID    string  `json:"game_id"`
	SubjectID string  `json:"subject_id"`
	Score     float64 `json:"score"`
}

func (s scoreRequest) validate() error {
	switch {
	case strings.TrimSpace(s.GameID) == "":
		return errors.New("missing game_id")
	case strings.TrimSpace(s.SubjectID) == "":
		return errors.New("missing subject_id")
	case math.IsNaN(s.Score) || math.IsInf(s.Score, 0):
		return errors.New("score must be a finite number")
	case s.Score < 0:
		return errors.New("score must not be negative")
	}
	return nil
}

type scoreResponse struct {
	Updated bool    `json:"updated"`
	Rank    int     `json:"rank"`
	Score   float64 `json:"score"`
}

// HandlePostScore handles POST /scores requests.
func (h *ScoresHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_score"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.SubmitScore(r.Context(), req.GameID, req.SubjectID, req.Score)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, scoreResponse{
		Updated: res.Updated,
		Rank:    res.Rank,
		Score:   res.Score,
	})
}
