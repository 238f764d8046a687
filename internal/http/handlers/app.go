package handlers

import (
	"encoding/json"
	"net/http"

	"wikibio/internal/artifact"
	"wikibio/internal/infra"
	"wikibio/internal/infra/geoip"
	"wikibio/internal/pipeline"
	"wikibio/internal/session"
)

// App bundles the dependencies every handler needs.
type App struct {
	Config   *infra.Config
	Logger   infra.Logger
	Sessions *session.Registry
	Store    *artifact.Store
	Pipeline *pipeline.Pipeline
	Geo      geoip.CountryResolver
}

func NewApp(cfg *infra.Config, logger infra.Logger, sessions *session.Registry, store *artifact.Store, pipe *pipeline.Pipeline, geo geoip.CountryResolver) *App {
	return &App{
		Config:   cfg,
		Logger:   logger,
		Sessions: sessions,
		Store:    store,
		Pipeline: pipe,
		Geo:      geo,
	}
}

func (a *App) json(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: response encode failed")
	}
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
