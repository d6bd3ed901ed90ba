//go:build !unix

// store/mmap_other.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package store

import "os"

// mapping on non-unix platforms falls back to a plain in-memory read; there
// is no true page-fault-driven mmap, but the read-only, never-mutated access
// pattern above it is unaffected.
type mapping struct {
	data []byte
}

func mmapFile(f *os.File, size int64) (mapping, error) {
	data := make([]byte, size)
	if _, err := f.ReadAt(data, 0); err != nil && size > 0 {
		return mapping{}, err
	}
	return mapping{data: data}, nil
}

func (m mapping) unmap() error {
	return nil
}

func (m mapping) willNeed(offset, length int64) {
	// No-op without real mmap.
}
