package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const documentName = "biography.html"

// Store persists each session's document and generated assets on the local
// filesystem, one private directory per session. Document writes and patches
// for the same session serialize on a per-session lock; different sessions
// never contend.
type Store struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore initializes a Store rooted at basePath.
func NewStore(basePath string) (*Store, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("artifact: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: ensure base path: %w", err)
	}
	return &Store{basePath: basePath, locks: make(map[string]*sync.Mutex)}, nil
}

// BasePath returns the configured root directory.
func (s *Store) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// DocumentPath returns where the session's document lives. Pure function of
// the session id; the file may not exist yet.
func (s *Store) DocumentPath(sessionID string) string {
	return filepath.Join(s.basePath, sessionID, documentName)
}

// AssetDir returns the session's private asset directory.
func (s *Store) AssetDir(sessionID string) string {
	return filepath.Join(s.basePath, sessionID, "assets")
}

// WriteDocument overwrites the session's document wholesale. The content is
// written to a temp file and renamed into place so readers never observe a
// half-written document.
func (s *Store) WriteDocument(sessionID string, content []byte) error {
	id, err := sanitizeComponent(sessionID)
	if err != nil {
		return err
	}
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()
	path := s.DocumentPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("artifact: ensure session directory: %w", err)
	}
	return writeFileAtomic(path, content)
}

// ReadDocument returns the session's current document.
func (s *Store) ReadDocument(sessionID string) ([]byte, error) {
	id, err := sanitizeComponent(sessionID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.DocumentPath(id))
	if err != nil {
		return nil, fmt.Errorf("artifact: read document: %w", err)
	}
	return data, nil
}

// PatchSlot rewrites the src reference of the element tagged with slotID in
// the session's document. Returns false when the slot is not present, which
// callers report but do not treat as fatal. The read-modify-write cycle runs
// under the session's lock so patches to different slots never interleave
// destructively.
func (s *Store) PatchSlot(sessionID, slotID, newSrc string) (bool, error) {
	id, err := sanitizeComponent(sessionID)
	if err != nil {
		return false, err
	}
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()
	path := s.DocumentPath(id)
	doc, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("artifact: read document for patch: %w", err)
	}
	patched, ok := RewriteSlot(doc, slotID, newSrc)
	if !ok {
		return false, nil
	}
	if err := writeFileAtomic(path, patched); err != nil {
		return false, err
	}
	return true, nil
}

// WriteAsset stores one generated binary under the session's asset directory
// and returns the canonical asset name.
func (s *Store) WriteAsset(sessionID, name string, data []byte) (string, error) {
	id, err := sanitizeComponent(sessionID)
	if err != nil {
		return "", err
	}
	cleanName, err := sanitizeComponent(name)
	if err != nil {
		return "", err
	}
	dir := s.AssetDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: ensure asset directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, cleanName), data, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write asset: %w", err)
	}
	return cleanName, nil
}

// ReadAsset returns one stored asset's bytes.
func (s *Store) ReadAsset(sessionID, name string) ([]byte, error) {
	path, err := s.AssetPath(sessionID, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: read asset: %w", err)
	}
	return data, nil
}

// AssetPath resolves the on-disk path for a stored asset, rejecting names
// that would escape the session's directory.
func (s *Store) AssetPath(sessionID, name string) (string, error) {
	id, err := sanitizeComponent(sessionID)
	if err != nil {
		return "", err
	}
	cleanName, err := sanitizeComponent(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.AssetDir(id), cleanName), nil
}

// ListAssets returns the session's stored asset names in lexical order.
func (s *Store) ListAssets(sessionID string) ([]string, error) {
	id, err := sanitizeComponent(sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.AssetDir(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("artifact: list assets: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Purge deletes the session's document and asset directory. Only legal after
// the session has been expired in the registry.
func (s *Store) Purge(sessionID string) error {
	id, err := sanitizeComponent(sessionID)
	if err != nil {
		return err
	}
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()
	if err := os.RemoveAll(filepath.Join(s.basePath, id)); err != nil {
		return fmt.Errorf("artifact: purge session: %w", err)
	}
	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

func writeFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("artifact: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("artifact: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("artifact: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("artifact: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("artifact: rename temp file: %w", err)
	}
	return nil
}

// sanitizeComponent validates a single path component and prevents escaping
// the storage root.
func sanitizeComponent(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("artifact: name is required")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return "", fmt.Errorf("artifact: invalid name %q", name)
	}
	return name, nil
}
