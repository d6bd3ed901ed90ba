//go:build !unix

// splitter/inode_other.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package splitter

import "io/fs"

// inodeOf has no portable equivalent outside unix; mtime alone is used to
// detect a superseded file.
func inodeOf(fi fs.FileInfo) uint64 {
	return 0
}
