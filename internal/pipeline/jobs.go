package pipeline

import (
	"sync"
	"time"

	"wikibio/internal/domain"
)

// JobTable is the in-memory registry of generation jobs, keyed by handle.
// Watchers mutate state through it; the poll protocol reads snapshots.
// Terminal states are sticky: once a job is completed or failed, further
// transitions are ignored.
type JobTable struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

// NewJobTable constructs an empty table.
func NewJobTable() *JobTable {
	return &JobTable{jobs: make(map[string]*domain.Job)}
}

// Insert registers a freshly submitted job.
func (t *JobTable) Insert(job *domain.Job) {
	t.mu.Lock()
	t.jobs[job.ID] = job
	t.mu.Unlock()
}

// Get returns a snapshot copy of the job, so callers never share the
// watcher's mutable record.
func (t *JobTable) Get(id string) (domain.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return *job, true
}

// SetPolling moves a submitted job into the polling state.
func (t *JobTable) SetPolling(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[id]; ok && !job.State.Terminal() {
		job.State = domain.JobStatePolling
		job.UpdatedAt = time.Now()
	}
}

// Complete records a successful job and its stored asset.
func (t *JobTable) Complete(id, assetKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[id]; ok && !job.State.Terminal() {
		job.State = domain.JobStateCompleted
		job.AssetKey = assetKey
		job.UpdatedAt = time.Now()
	}
}

// Fail records a terminal failure with a human-readable reason.
func (t *JobTable) Fail(id, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[id]; ok && !job.State.Terminal() {
		job.State = domain.JobStateFailed
		job.Reason = reason
		job.UpdatedAt = time.Now()
	}
}

// MarkPatched flips the job's patched flag and reports whether this call won
// the flip. Only one of any number of concurrent poll observers gets true,
// which keeps the document patch at most once per job.
func (t *JobTable) MarkPatched(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok || job.State != domain.JobStateCompleted || job.Patched {
		return false
	}
	job.Patched = true
	job.UpdatedAt = time.Now()
	return true
}

// DropSession removes every job owned by the session. Called on purge.
func (t *JobTable) DropSession(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, job := range t.jobs {
		if job.SessionID == sessionID {
			delete(t.jobs, id)
		}
	}
}

// Len returns the number of tracked jobs.
func (t *JobTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}
