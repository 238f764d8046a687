package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the registry's record for one browser session. A session owns
// one document and one asset directory in the artifact store, both keyed by
// its ID.
type Session struct {
	ID         string
	CreatedAt  time.Time
	LastSeen   time.Time
	LastIP     string
	Live       bool
	ActiveJobs int
}

// Registry issues and tracks opaque session identifiers. All state is held
// in memory behind a mutex; a process restart forgets every session, which
// is the accepted durability model.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Issue creates a fresh live session and returns its identifier. The
// session's storage directories are allocated lazily by the artifact store
// on first write, not here.
func (r *Registry) Issue() string {
	id := uuid.NewString()
	now := r.now()
	r.mu.Lock()
	r.sessions[id] = &Session{ID: id, CreatedAt: now, LastSeen: now, Live: true}
	r.mu.Unlock()
	return id
}

// Validate reports whether the identifier is registered and live.
func (r *Registry) Validate(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return ok && s.Live
}

// Touch updates last-access bookkeeping. Unknown identifiers are treated as
// not yet seen and ignored.
func (r *Registry) Touch(id, remoteIP string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	s.LastSeen = r.now()
	if remoteIP != "" {
		s.LastIP = remoteIP
	}
}

// Expire marks the session dead. Storage is not reclaimed here; callers run
// ArtifactStore.Purge separately so in-flight watchers can observe expiry
// and abort their local writes instead of racing a delete.
func (r *Registry) Expire(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.Live = false
	}
}

// Forget drops the session record entirely. Only call after Expire and
// storage purge.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// JobStarted increments the session's outstanding-job count.
func (r *Registry) JobStarted(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.ActiveJobs++
	}
}

// JobFinished decrements the session's outstanding-job count.
func (r *Registry) JobFinished(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok && s.ActiveJobs > 0 {
		s.ActiveJobs--
	}
}

// List returns a snapshot of all sessions ordered by creation time.
func (r *Registry) List() []Session {
	r.mu.Lock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ExpireIdle marks live sessions that have been idle longer than maxIdle and
// have no outstanding jobs as expired, returning their identifiers so the
// caller can purge storage. Sessions with in-flight jobs are left alone.
func (r *Registry) ExpireIdle(maxIdle time.Duration) []string {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []string
	for id, s := range r.sessions {
		if s.Live && s.ActiveJobs == 0 && s.LastSeen.Before(cutoff) {
			s.Live = false
			expired = append(expired, id)
		}
	}
	return expired
}
