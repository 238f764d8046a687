package handlers

import (
	"errors"
	"net/http"
	"strings"

	"wikibio/internal/domain"
	"wikibio/internal/middleware"
)

type statusResponse struct {
	State    string `json:"state"`
	AssetURL string `json:"asset_url,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Status handles GET /api/status?handle=... and answers the poll protocol.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	if sid == "" {
		a.error(w, http.StatusUnauthorized, "no_session", "no session established")
		return
	}
	handle := strings.TrimSpace(r.URL.Query().Get("handle"))
	if handle == "" {
		a.error(w, http.StatusBadRequest, "missing_handle", "handle query parameter is required")
		return
	}

	res, err := a.Pipeline.Check(sid, handle)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "unknown job handle")
			return
		}
		a.Logger.Error().Err(err).Str("handle", handle).Msg("handlers: status check failed")
		a.error(w, http.StatusInternalServerError, "internal", "status check failed")
		return
	}

	a.json(w, http.StatusOK, statusResponse{
		State:    string(res.State),
		AssetURL: res.AssetURL,
		Reason:   res.Reason,
	})
}
