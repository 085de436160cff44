package handlers

import (
	"net/http"

	"github.com/Dosada05/bracket-engine/services"
)

type DisputeHandler struct {
	disputes services.DisputeService
}

func NewDisputeHandler(disputes services.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputes: disputes}
}

// Get returns one dispute.
// GET /disputes/{disputeID}
func (h *DisputeHandler) Get(w http.ResponseWriter, r *http.Request) {
	disputeID, err := idParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	dispute, err := h.disputes.GetDispute(r.Context(), disputeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"dispute": dispute}, nil)
}

// ListByTournament returns a tournament's disputes.
// GET /tournaments/{tournamentID}/disputes
func (h *DisputeHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	disputes, err := h.disputes.ListTournamentDisputes(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"disputes": disputes}, nil)
}

// Review marks a dispute as under review.
// POST /disputes/{disputeID}/review
func (h *DisputeHandler) Review(w http.ResponseWriter, r *http.Request) {
	disputeID, err := idParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	dispute, err := h.disputes.MarkUnderReview(r.Context(), disputeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"dispute": dispute}, nil)
}

type resolveDisputeDTO struct {
	WinnerID   *int   `json:"winner_id,omitempty"`
	Score1     *int   `json:"score1,omitempty" validate:"omitempty,gte=0"`
	Score2     *int   `json:"score2,omitempty" validate:"omitempty,gte=0"`
	Resolution string `json:"resolution" validate:"required,max=2000"`
}

// Resolve records the organizer's ruling and completes the disputed match.
// POST /disputes/{disputeID}/resolve
func (h *DisputeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	disputeID, err := idParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input resolveDisputeDTO
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateStruct(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	dispute, err := h.disputes.ResolveDispute(r.Context(), services.ResolveDisputeInput{
		DisputeID:  disputeID,
		WinnerID:   input.WinnerID,
		Score1:     input.Score1,
		Score2:     input.Score2,
		Resolution: input.Resolution,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"dispute": dispute}, nil)
}
