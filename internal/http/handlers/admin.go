package handlers

import (
	"net/http"
	"time"
)

type adminSession struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeen   time.Time `json:"last_seen"`
	Live       bool      `json:"live"`
	ActiveJobs int       `json:"active_jobs"`
	Country    string    `json:"country,omitempty"`
}

// AdminSessions handles GET /admin/sessions and lists every known session
// with a best-effort country annotation from the client IP.
func (a *App) AdminSessions(w http.ResponseWriter, r *http.Request) {
	sessions := a.Sessions.List()
	items := make([]adminSession, 0, len(sessions))
	for _, s := range sessions {
		item := adminSession{
			ID:         s.ID,
			CreatedAt:  s.CreatedAt,
			LastSeen:   s.LastSeen,
			Live:       s.Live,
			ActiveJobs: s.ActiveJobs,
		}
		if a.Geo != nil && s.LastIP != "" {
			if country, err := a.Geo.CountryCode(s.LastIP); err == nil {
				item.Country = country
			}
		}
		items = append(items, item)
	}
	a.json(w, http.StatusOK, map[string]any{
		"sessions": items,
		"total":    len(items),
		"jobs":     a.Pipeline.Jobs().Len(),
	})
}

// AdminClearAll handles POST /admin/clear-all: expires every session, purges
// its jobs and storage, then forgets it.
func (a *App) AdminClearAll(w http.ResponseWriter, r *http.Request) {
	cleared := 0
	for _, s := range a.Sessions.List() {
		a.Sessions.Expire(s.ID)
		if err := a.Pipeline.PurgeSession(s.ID); err != nil {
			a.Logger.Error().Err(err).Str("session_id", s.ID).Msg("admin: purge failed")
			continue
		}
		a.Sessions.Forget(s.ID)
		cleared++
	}
	a.Logger.Info().Int("cleared", cleared).Msg("admin: all sessions cleared")
	a.json(w, http.StatusOK, map[string]int{"cleared": cleared})
}
