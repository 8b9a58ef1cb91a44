package certificates

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// DiskStore writes artefacts beneath a root directory, grouped by generation
// date so the tree stays browsable: YYYY/MM/DD/<certificate-id>.<format>.
type DiskStore struct {
	root string
}

// NewDiskStore ensures the root directory exists.
func NewDiskStore(root string) (*DiskStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("certificates: storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("certificates: create storage root: %w", err)
	}
	return &DiskStore{root: root}, nil
}

// Root returns the store's base directory, e.g. for mounting a file server.
func (s *DiskStore) Root() string {
	return s.root
}

// SaveArtefact writes the bytes and returns the relative path, using forward
// slashes so the path doubles as a URL suffix.
func (s *DiskStore) SaveArtefact(certificateID, format string, data []byte, at time.Time) (string, error) {
	if certificateID == "" {
		return "", errors.New("certificates: certificate id is required")
	}
	relPath := path.Join(at.Format("2006/01/02"), certificateID+"."+format)

	fullPath := filepath.Join(s.root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("certificates: create artefact directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("certificates: write artefact: %w", err)
	}
	return relPath, nil
}
