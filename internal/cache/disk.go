package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/chatattach/internal/filex"
)

// DiskStore persists one file per entry. File names are the hex SHA-256 of
// the attachment ID, which keeps them filesystem-safe for any ID.
type DiskStore struct {
	dir string
}

var _ Store = (*DiskStore)(nil)

func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("disk cache directory is not set")
	}
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &DiskStore{dir: abs}, nil
}

func (d *DiskStore) path(id string) string {
	sum := sha256.Sum256([]byte(id))
	return filepath.Join(d.dir, hex.EncodeToString(sum[:]))
}

func (d *DiskStore) Get(id string) ([]byte, bool) {
	b, err := os.ReadFile(d.path(id))
	if err != nil {
		return nil, false
	}
	return b, true
}

func (d *DiskStore) Put(id string, data []byte) error {
	if err := filex.WriteAtomic(d.path(id), data); err != nil {
		return fmt.Errorf("disk cache put %q: %w", id, err)
	}
	return nil
}

func (d *DiskStore) Contains(id string) bool {
	return filex.Exists(d.path(id))
}

func (d *DiskStore) Clear() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(d.dir, e.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Dir returns the absolute directory backing the store.
func (d *DiskStore) Dir() string {
	return d.dir
}
