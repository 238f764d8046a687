package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"wikibio/internal/middleware"
	"wikibio/pkg/zip"
)

// Asset handles GET /assets/{session}/{asset}. Assets are private to their
// owning session; a path naming another session is rejected outright.
func (a *App) Asset(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	if sid == "" {
		a.error(w, http.StatusUnauthorized, "no_session", "no session established")
		return
	}
	pathSession := chi.URLParam(r, "session")
	if pathSession != sid {
		a.error(w, http.StatusForbidden, "forbidden", "asset belongs to another session")
		return
	}
	name := chi.URLParam(r, "asset")

	data, err := a.Store.ReadAsset(sid, name)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "asset not found")
		return
	}

	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		a.Logger.Error().Err(err).Str("asset", name).Msg("handlers: asset write failed")
	}
}

// AssetsArchive handles GET /api/assets/archive and streams a zip of every
// asset the session has generated so far.
func (a *App) AssetsArchive(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	if sid == "" {
		a.error(w, http.StatusUnauthorized, "no_session", "no session established")
		return
	}
	names, err := a.Store.ListAssets(sid)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: asset listing failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not list assets")
		return
	}
	if len(names) == 0 {
		a.error(w, http.StatusNotFound, "no_assets", "no assets have been generated for this session")
		return
	}

	assets := make([]zip.Asset, 0, len(names))
	for _, name := range names {
		data, err := a.Store.ReadAsset(sid, name)
		if err != nil {
			a.Logger.Warn().Err(err).Str("asset", name).Msg("handlers: asset skipped in archive")
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: name,
			MIME:     mime.TypeByExtension(filepath.Ext(name)),
			Data:     data,
		})
	}

	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: archive build failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not build archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "assets-"+sid+".zip"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(archive); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: archive write failed")
	}
}
