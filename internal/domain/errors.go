package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrSessionExpired = errors.New("session expired")
	ErrStageNotReady  = errors.New("stage not ready")
)
