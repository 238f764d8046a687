package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"wikibio/internal/domain"
	"wikibio/internal/middleware"
	"wikibio/internal/providers/biography"
)

type generateResponse struct {
	Handle      string `json:"handle"`
	DocumentURL string `json:"document_url"`
	Status      string `json:"status"`
}

// Generate handles POST /api/generate. The biography document is produced
// synchronously; the portrait edit is submitted and the response carries its
// job handle for polling.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	if sid == "" {
		a.error(w, http.StatusUnauthorized, "no_session", "no session established")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.Config.MaxPhotoBytes)
	if err := r.ParseMultipartForm(a.Config.MaxPhotoBytes); err != nil {
		if isBodyTooLarge(err) {
			a.error(w, http.StatusRequestEntityTooLarge, "photo_too_large", "uploaded photo exceeds the size limit")
			return
		}
		a.error(w, http.StatusBadRequest, "invalid_form", "could not parse multipart form")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	job := strings.TrimSpace(r.FormValue("job"))
	place := strings.TrimSpace(r.FormValue("place"))
	if name == "" || job == "" || place == "" {
		a.error(w, http.StatusBadRequest, "missing_fields", "name, job and place are required")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		a.error(w, http.StatusBadRequest, "missing_photo", "photo file is required")
		return
	}
	defer file.Close()
	photo, err := io.ReadAll(file)
	if err != nil {
		if isBodyTooLarge(err) {
			a.error(w, http.StatusRequestEntityTooLarge, "photo_too_large", "uploaded photo exceeds the size limit")
			return
		}
		a.error(w, http.StatusBadRequest, "invalid_photo", "could not read photo file")
		return
	}
	if len(photo) == 0 {
		a.error(w, http.StatusBadRequest, "missing_photo", "photo file is empty")
		return
	}

	attrs := biography.Request{
		Name:   name,
		Job:    job,
		Place:  place,
		Locale: middleware.LocaleFromContext(r.Context()),
	}

	textCtx, cancel := context.WithTimeout(r.Context(), a.Config.TextTimeout)
	defer cancel()
	if err := a.Pipeline.StartTextStage(textCtx, sid, attrs); err != nil {
		a.stageError(w, err, "biography generation failed")
		return
	}

	handle, err := a.Pipeline.StartImageStage(r.Context(), sid, photo)
	if err != nil {
		a.stageError(w, err, "portrait submission failed")
		return
	}

	a.json(w, http.StatusAccepted, generateResponse{
		Handle:      handle,
		DocumentURL: "/document",
		Status:      "submitted",
	})
}

func (a *App) stageError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		a.error(w, http.StatusGone, "session_expired", "session has expired")
	case errors.Is(err, domain.ErrStageNotReady):
		a.error(w, http.StatusConflict, "stage_not_ready", "required earlier stage has not completed")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "referenced job not found")
	default:
		a.Logger.Error().Err(err).Msg("handlers: stage start failed")
		a.error(w, http.StatusBadGateway, "generation_failed", fallback)
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
