package handlers

import (
	"net/http"

	"wikibio/internal/middleware"
)

// Document handles GET /document and serves the session's current biography
// page, including any patches applied so far.
func (a *App) Document(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	if sid == "" {
		a.error(w, http.StatusUnauthorized, "no_session", "no session established")
		return
	}
	doc, err := a.Store.ReadDocument(sid)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_generated", "no biography has been generated for this session")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: document write failed")
	}
}
