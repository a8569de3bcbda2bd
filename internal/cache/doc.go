// Package cache is the two-tier store for decrypted attachment bytes.
//
// # Overview
//
// A Store maps an attachment ID to its decrypted binary. New composes an
// in-memory LRU tier (always on) with an optional on-disk tier; the choice is
// made once at construction, so callers only ever see the Store interface.
//
//	store, _ := cache.New(cache.Options{Dir: "cache", MemoryEntries: 256})
//	_ = store.Put("img-1", data)
//	b, ok := store.Get("img-1")
//
// Lookups check the memory tier first. A disk hit is promoted into memory.
// Entries are only removed by Clear or by LRU pressure on the memory tier;
// the disk tier is bounded by available storage.
//
// All implementations are safe for concurrent use.
package cache
