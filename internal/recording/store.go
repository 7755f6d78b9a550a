// Package recording drives the audio → upload → transcription pipeline and
// its graceful degradation to manual transcript entry.
package recording

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Store keeps uploaded audio blobs on disk until they are consumed by a
// transcription call. Each handle is consumed exactly once.
type Store struct {
	dir string

	mu    sync.Mutex
	paths map[string]string
}

// NewStore creates a blob store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, paths: make(map[string]string)}
}

// Save writes the blob and returns its upload handle. ext should include the
// leading dot; it defaults to .webm.
func (s *Store) Save(data []byte, ext string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", eris.Wrap(err, "recording: create data dir")
	}
	if ext == "" || !strings.HasPrefix(ext, ".") {
		ext = ".webm"
	}

	handle := uuid.NewString()
	path := filepath.Join(s.dir, "upload_"+handle+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrap(err, "recording: write upload")
	}

	s.mu.Lock()
	s.paths[handle] = path
	s.mu.Unlock()
	return handle, nil
}

// Resolve returns the path for a handle. If the in-memory entry is gone
// (another worker wrote the file, or a restart) it falls back to globbing
// the data dir.
func (s *Store) Resolve(handle string) (string, bool) {
	s.mu.Lock()
	path, ok := s.paths[handle]
	s.mu.Unlock()
	if ok {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, "upload_"+handle+".*"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

// Consume removes the blob and its registration. Called after the one
// transcription attempt that uses the handle.
func (s *Store) Consume(handle string) {
	s.mu.Lock()
	path, ok := s.paths[handle]
	delete(s.paths, handle)
	s.mu.Unlock()

	if !ok {
		if resolved, found := s.Resolve(handle); found {
			path = resolved
			ok = true
		}
	}
	if ok {
		_ = os.Remove(path)
	}
}
