package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"wikibio/internal/middleware"
)

type videoRequest struct {
	FromHandle string `json:"from_handle"`
}

// Video handles POST /api/video: starts the scene-video stage from a
// completed portrait job and returns the new job handle.
func (a *App) Video(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	if sid == "" {
		a.error(w, http.StatusUnauthorized, "no_session", "no session established")
		return
	}

	var req videoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_body", "could not decode request body")
		return
	}
	if strings.TrimSpace(req.FromHandle) == "" {
		a.error(w, http.StatusBadRequest, "missing_handle", "from_handle is required")
		return
	}

	handle, err := a.Pipeline.StartVideoStage(r.Context(), sid, req.FromHandle)
	if err != nil {
		a.stageError(w, err, "video submission failed")
		return
	}

	a.json(w, http.StatusAccepted, generateResponse{
		Handle:      handle,
		DocumentURL: "/document",
		Status:      "submitted",
	})
}
