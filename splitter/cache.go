// splitter/cache.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package splitter

import (
	"os"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mmp/wx/store"
)

// HandleCache is a process-wide, reference-counted cache of open column
// files, keyed by path. An entry is additionally tagged with the inode and
// mtime observed at open time; a later Acquire whose stat disagrees treats
// the cached handle as superseded, closing it once its last reference
// drops, and opens a fresh one in its place. Readers never block on this
// cache; they always either get a valid handle or reopen.
type HandleCache struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, *cacheEntry]
}

type cacheEntry struct {
	mu    sync.Mutex
	file  *store.File
	inode uint64
	mtime int64
	refs  int
	stale bool
}

// NewHandleCache builds a cache holding up to capacity entries (referenced
// or not) before LRU eviction; an evicted entry that is still referenced is
// closed when its last reference is released. Entries additionally expire after ttl of
// disuse. Pass a large ttl (or expirable.NoExpiration semantics via a very
// long duration) to make capacity the only eviction pressure.
func NewHandleCache(capacity int, ttl time.Duration) *HandleCache {
	c := &HandleCache{}
	c.lru = expirable.NewLRU[string, *cacheEntry](capacity, func(_ string, e *cacheEntry) {
		c.markStaleAndMaybeClose(e)
	}, ttl)
	return c
}

// Acquire returns the cached file for path, opening (or reopening, if the
// file was superseded by a rename) as needed. The returned release func
// must be called exactly once when the caller is done with the handle.
func (c *HandleCache) Acquire(path string) (*store.File, func(), error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	ino := inodeOf(fi)
	mtime := fi.ModTime().UnixNano()

	c.mu.Lock()
	if e, ok := c.lru.Get(path); ok {
		e.mu.Lock()
		if !e.stale && e.inode == ino && e.mtime == mtime {
			e.refs++
			e.mu.Unlock()
			c.mu.Unlock()
			return e.file, func() { c.release(e) }, nil
		}
		e.mu.Unlock()
		c.lru.Remove(path)
	}
	c.mu.Unlock()

	f, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}

	ne := &cacheEntry{file: f, inode: ino, mtime: mtime, refs: 1}
	c.mu.Lock()
	c.lru.Add(path, ne)
	c.mu.Unlock()
	return f, func() { c.release(ne) }, nil
}

func (c *HandleCache) release(e *cacheEntry) {
	e.mu.Lock()
	e.refs--
	shouldClose := e.refs <= 0 && e.stale
	e.mu.Unlock()
	if shouldClose {
		e.file.Close()
	}
}

func (c *HandleCache) markStaleAndMaybeClose(e *cacheEntry) {
	e.mu.Lock()
	e.stale = true
	shouldClose := e.refs <= 0
	e.mu.Unlock()
	if shouldClose {
		e.file.Close()
	}
}
