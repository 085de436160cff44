package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Dosada05/bracket-engine/storage"
	"github.com/google/uuid"
)

const maxEvidenceSize = 10 << 20 // 10MB

type EvidenceHandler struct {
	uploader storage.FileUploader
}

func NewEvidenceHandler(uploader storage.FileUploader) *EvidenceHandler {
	return &EvidenceHandler{uploader: uploader}
}

// Upload stores a screenshot or recording backing a result submission and
// returns the key to reference in the submission body.
// POST /matches/{matchID}/evidence
func (h *EvidenceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxEvidenceSize)
	if err := r.ParseMultipartForm(maxEvidenceSize); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse upload: %w", err))
		return
	}
	file, header, err := r.FormFile("evidence")
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("missing evidence file: %w", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("evidence/match-%d/%d-%s%s",
		matchID, time.Now().Unix(), uuid.NewString(), filepath.Ext(header.Filename))

	result, err := h.uploader.Upload(r.Context(), key, contentType, file)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	_ = writeJSON(w, http.StatusCreated, jsonResponse{
		"evidence_key": result.Key,
		"url":          result.Location,
	}, nil)
}
