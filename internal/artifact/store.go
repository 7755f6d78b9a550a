package artifact

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Store keeps generated documents on disk, keyed by encounter id, so they
// can be downloaded after confirmation.
type Store struct {
	dir string
}

// NewStore creates a disk store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes the document for an encounter. A re-generated document for
// the same encounter replaces the old one.
func (s *Store) Save(encounterID, filename string, data []byte) error {
	dir := filepath.Join(s.dir, encounterID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "artifact: create store dir")
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return eris.Wrap(err, "artifact: write document")
	}
	return nil
}

// Open returns the stored document and its filename for an encounter. The
// second return is false when no document exists.
func (s *Store) Open(encounterID string) (string, []byte, bool) {
	entries, err := os.ReadDir(filepath.Join(s.dir, encounterID))
	if err != nil || len(entries) == 0 {
		return "", nil, false
	}

	name := entries[0].Name()
	data, err := os.ReadFile(filepath.Join(s.dir, encounterID, name))
	if err != nil {
		return "", nil, false
	}
	return name, data, true
}
