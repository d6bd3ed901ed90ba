//go:build unix

// store/mmap_unix.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package store

import (
	"os"

	"golang.org/x/sys/unix"
)

type mapping struct {
	data []byte
}

func mmapFile(f *os.File, size int64) (mapping, error) {
	if size == 0 {
		return mapping{}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return mapping{}, err
	}
	return mapping{data: data}, nil
}

func (m mapping) unmap() error {
	if m.data == nil {
		return nil
	}
	return unix.Munmap(m.data)
}

// willNeed advises the kernel to prefault the given byte range. Advisory
// only: errors are not surfaced to callers.
func (m mapping) willNeed(offset, length int64) {
	if m.data == nil || length <= 0 {
		return
	}
	end := offset + length
	if end > int64(len(m.data)) {
		end = int64(len(m.data))
	}
	if offset >= end {
		return
	}
	_ = unix.Madvise(m.data[offset:end], unix.MADV_WILLNEED)
}
