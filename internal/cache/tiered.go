package cache

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/chatattach/internal/logging"
)

// TieredStore reads memory then disk and writes through to both.
type TieredStore struct {
	mem    Store
	disk   Store
	logger logging.Logger
}

var _ Store = (*TieredStore)(nil)

func NewTieredStore(mem, disk Store, logger logging.Logger) *TieredStore {
	if logger == nil {
		logger = logging.Discard()
	}
	return &TieredStore{mem: mem, disk: disk, logger: logger}
}

func (t *TieredStore) Get(id string) ([]byte, bool) {
	if b, ok := t.mem.Get(id); ok {
		return b, true
	}
	b, ok := t.disk.Get(id)
	if !ok {
		return nil, false
	}
	if err := t.mem.Put(id, b); err != nil {
		t.logger.Warn(context.Background(), "cache promote failed", "id", id, "error", err)
	}
	return b, true
}

// Put always fills the memory tier; a disk failure is returned but the entry
// stays readable for the life of the process.
func (t *TieredStore) Put(id string, data []byte) error {
	if err := t.mem.Put(id, data); err != nil {
		return err
	}
	return t.disk.Put(id, data)
}

func (t *TieredStore) Contains(id string) bool {
	return t.mem.Contains(id) || t.disk.Contains(id)
}

func (t *TieredStore) Clear() error {
	return errors.Join(t.mem.Clear(), t.disk.Clear())
}
