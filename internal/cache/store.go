package cache

import (
	"fmt"

	"github.com/dmitrijs2005/chatattach/internal/logging"
)

// Store maps attachment IDs to decrypted bytes.
type Store interface {
	Get(id string) ([]byte, bool)
	Put(id string, data []byte) error
	Contains(id string) bool
	// Clear removes every entry from every tier.
	Clear() error
}

const defaultMemoryEntries = 256

// Options configures New.
type Options struct {
	// Dir is the disk tier directory.
	Dir string
	// DisableDisk keeps the store memory-only; nothing survives a restart.
	DisableDisk bool
	// MemoryEntries bounds the memory tier; zero means the default.
	MemoryEntries int
	Logger        logging.Logger
}

// New builds the memory tier and, unless disabled, the disk tier behind it.
func New(opts Options) (Store, error) {
	if opts.MemoryEntries <= 0 {
		opts.MemoryEntries = defaultMemoryEntries
	}

	mem, err := NewMemoryStore(opts.MemoryEntries)
	if err != nil {
		return nil, fmt.Errorf("memory tier: %w", err)
	}

	if opts.DisableDisk {
		return mem, nil
	}

	disk, err := NewDiskStore(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("disk tier: %w", err)
	}

	return NewTieredStore(mem, disk, opts.Logger), nil
}
