// splitter/shard.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package splitter

import (
	"fmt"
	"path/filepath"
	"time"
)

// shardWidth is the number of seconds one rolling shard spans.
func (s *Splitter) shardWidth() int64 {
	return int64(s.OmFileLength) * s.DtSeconds
}

// shardIndex returns the rolling shard index covering timestamp t, with
// shards originating at epoch 0.
func (s *Splitter) shardIndex(t int64) int64 {
	w := s.shardWidth()
	if t >= 0 {
		return t / w
	}
	return (t - w + 1) / w
}

// shardBounds returns [start,end) for rolling shard k.
func (s *Splitter) shardBounds(k int64) (start, end int64) {
	w := s.shardWidth()
	return k * w, (k + 1) * w
}

func (s *Splitter) rollingPath(variable string, k int64) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%d.om", variable, k))
}

// yearBounds returns the [start,end) epoch range of the UTC calendar year
// containing t.
func yearBounds(t int64) (start, end int64) {
	y := time.Unix(t, 0).UTC().Year()
	start = time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	end = time.Date(y+1, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	return
}

func (s *Splitter) archivePath(variable string, t int64) string {
	y := time.Unix(t, 0).UTC().Year()
	return filepath.Join(s.Archive, fmt.Sprintf("%s_%d.om", variable, y))
}

// DefaultChunking returns the default chunk geometry for a domain stepping
// every dtSeconds: a fixed 6-location chunk and a time chunk of
// 183*3600/dtSeconds steps (183 steps for hourly data).
func DefaultChunking(dtSeconds int64) (chunkLoc, chunkTime uint32) {
	chunkLoc = 6
	ct := (183 * 3600) / dtSeconds
	if ct < 1 {
		ct = 1
	}
	return chunkLoc, uint32(ct)
}
