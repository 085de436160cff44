package handlers

import (
	"net/http"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/services"
)

type BracketHandler struct {
	brackets services.BracketService
}

func NewBracketHandler(brackets services.BracketService) *BracketHandler {
	return &BracketHandler{brackets: brackets}
}

type generateParticipantDTO struct {
	ID          int    `json:"id" validate:"required,gt=0"`
	ExternalRef string `json:"external_ref" validate:"required"`
	RankScore   *int   `json:"rank_score,omitempty"`
}

type generateBracketDTO struct {
	Name          string                   `json:"name" validate:"required,max=120"`
	OrganizerID   int                      `json:"organizer_id" validate:"required,gt=0"`
	Format        models.BracketFormat     `json:"format" validate:"required"`
	SeedingMethod models.SeedingMethod     `json:"seeding_method" validate:"required"`
	StartDate     time.Time                `json:"start_date" validate:"required"`
	Participants  []generateParticipantDTO `json:"participants" validate:"required,min=2,dive"`
	ManualSeeds   map[int]int              `json:"manual_seeds,omitempty"`
}

// Generate builds (or rebuilds) the bracket for a tournament.
// POST /tournaments/{tournamentID}/bracket
func (h *BracketHandler) Generate(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input generateBracketDTO
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateStruct(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	now := time.Now()
	participants := make([]*models.Participant, 0, len(input.Participants))
	for _, p := range input.Participants {
		participants = append(participants, &models.Participant{
			ID:           p.ID,
			TournamentID: tournamentID,
			ExternalRef:  p.ExternalRef,
			RankScore:    p.RankScore,
			RegisteredAt: now,
		})
	}

	bracketID, err := h.brackets.BuildBracket(r.Context(), services.BuildBracketParams{
		Tournament: &models.Tournament{
			ID:            tournamentID,
			Name:          input.Name,
			OrganizerID:   input.OrganizerID,
			Format:        input.Format,
			SeedingMethod: input.SeedingMethod,
			Status:        models.TournamentStatusActive,
			StartDate:     input.StartDate,
		},
		Participants: participants,
		ManualSeeds:  input.ManualSeeds,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	_ = writeJSON(w, http.StatusCreated, jsonResponse{"bracket_id": bracketID}, nil)
}

// Get returns the full bracket snapshot.
// GET /brackets/{bracketID}
func (h *BracketHandler) Get(w http.ResponseWriter, r *http.Request) {
	bracketID, err := idParam(r, "bracketID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.brackets.GetBracketView(r.Context(), bracketID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, view, nil)
}

// GetByTournament returns the tournament's active bracket snapshot.
// GET /tournaments/{tournamentID}/bracket
func (h *BracketHandler) GetByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.brackets.GetTournamentBracketView(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, view, nil)
}

// Standings returns the ranked table of a standings-format tournament.
// GET /tournaments/{tournamentID}/standings
func (h *BracketHandler) Standings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.brackets.ListStandings(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil)
}
