package handlers

import (
	"context"
	"net/http"

	"github.com/Dosada05/bracket-engine/middleware"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/services"
)

type MatchHandler struct {
	matches services.MatchService
	results services.ResultService
}

func NewMatchHandler(matches services.MatchService, results services.ResultService) *MatchHandler {
	return &MatchHandler{matches: matches, results: results}
}

// Get returns one match.
// GET /matches/{matchID}
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	match, err := h.matches.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

// ListByTournament returns a tournament's matches, optionally filtered by
// round and state query parameters.
// GET /tournaments/{tournamentID}/matches
func (h *MatchHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var round *int
	if raw := r.URL.Query().Get("round"); raw != "" {
		parsed, err := parsePositiveInt(raw, "round")
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		round = &parsed
	}
	var state *models.MatchState
	if raw := r.URL.Query().Get("state"); raw != "" {
		s := models.MatchState(raw)
		state = &s
	}

	matches, err := h.matches.ListTournamentMatches(r.Context(), tournamentID, round, state)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil)
}

// CheckIn records the calling participant's check-in.
// POST /matches/{matchID}/check-in
func (h *MatchHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	participantID, err := middleware.CallerID(r.Context())
	if err != nil {
		forbiddenResponse(w, r, err.Error())
		return
	}

	match, err := h.matches.ConfirmCheckIn(r.Context(), matchID, participantID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

// Start moves a ready match to live.
// POST /matches/{matchID}/start
func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.matches.StartMatch)
}

// Cancel cancels a match that has not begun.
// POST /matches/{matchID}/cancel
func (h *MatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.matches.CancelMatch)
}

func (h *MatchHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, matchID int) (*models.Match, error)) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	match, err := op(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

type submitResultDTO struct {
	Score1      int     `json:"score1" validate:"gte=0"`
	Score2      int     `json:"score2" validate:"gte=0"`
	EvidenceKey *string `json:"evidence_key,omitempty"`
}

// SubmitResult records the calling participant's claim about the outcome.
// POST /matches/{matchID}/results
func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	participantID, err := middleware.CallerID(r.Context())
	if err != nil {
		forbiddenResponse(w, r, err.Error())
		return
	}

	var input submitResultDTO
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateStruct(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	match, err := h.results.SubmitResult(r.Context(), services.SubmitResultInput{
		MatchID:       matchID,
		ParticipantID: participantID,
		Score1:        input.Score1,
		Score2:        input.Score2,
		EvidenceKey:   input.EvidenceKey,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusAccepted, jsonResponse{"match": match}, nil)
}
