package domain

import "time"

// JobKind enumerates the pipeline stages a job can belong to.
type JobKind string

const (
	JobKindText  JobKind = "text"
	JobKindImage JobKind = "image"
	JobKindVideo JobKind = "video"
)

// JobState enumerates job lifecycle states. Completed and failed are
// terminal; a job never leaves a terminal state.
type JobState string

const (
	JobStateSubmitted JobState = "submitted"
	JobStatePolling   JobState = "polling"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// Job tracks the lifecycle of one external generation call. The background
// watcher is the only writer of State/Reason/AssetKey; the poll protocol
// reads snapshots and flips Patched exactly once.
type Job struct {
	ID        string
	SessionID string
	Kind      JobKind
	RequestID string
	State     JobState
	Reason    string
	Slot      string
	AssetKey  string
	Patched   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
