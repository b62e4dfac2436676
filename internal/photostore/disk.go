package photostore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Disk stores photos on the local filesystem under a root directory,
// one subdirectory per session.
type Disk struct {
	root string
}

// NewDisk creates a disk store rooted at dir.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{root: dir}, nil
}

// Save writes the photo as <root>/<session_id>/<reg_no>_<uuid>.jpg.
// The uuid component keeps same-second submissions from overwriting
// each other.
func (d *Disk) Save(_ context.Context, sessionID, regNo string, photo []byte) (string, error) {
	dir := filepath.Join(d.root, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.jpg", regNo, uuid.NewString()))
	if err := os.WriteFile(path, photo, 0o644); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	return path, nil
}

// Remove deletes a stored photo.
func (d *Disk) Remove(_ context.Context, path string) error {
	return os.Remove(path)
}
