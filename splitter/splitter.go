// splitter/splitter.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package splitter shards a logical per-variable time series across
// fixed-length column files and routes reads between a rolling directory
// and an optional yearly long-term archive.
package splitter

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/mmp/wx/domain"
	"github.com/mmp/wx/store"
	"github.com/mmp/wx/util"
)

// Splitter presents an unbounded per-variable time series over a Domain's
// fixed-length shard files.
type Splitter struct {
	Dir          string // rolling shard directory
	Archive      string // optional yearly archive directory; "" disables
	NLocations   int
	OmFileLength int
	DtSeconds    int64
	ChunkLoc     uint32
	ChunkTime    uint32

	cache   *HandleCache
	locks   *shardLocks
	tempReg *util.TempFileRegistry
}

// New builds a Splitter. cache may be shared across Splitters (and
// Domains); pass nil to create a private one.
func New(dir, archive string, nLocations, omFileLength int, dtSeconds int64, cache *HandleCache, tempReg *util.TempFileRegistry) *Splitter {
	chunkLoc, chunkTime := DefaultChunking(dtSeconds)
	if cache == nil {
		cache = NewHandleCache(256, time.Hour)
	}
	return &Splitter{
		Dir: dir, Archive: archive,
		NLocations: nLocations, OmFileLength: omFileLength, DtSeconds: dtSeconds,
		ChunkLoc: chunkLoc, ChunkTime: chunkTime,
		cache: cache, locks: newShardLocks(), tempReg: tempReg,
	}
}

// Read returns timeRange.Count() values for one location, stitched from
// whichever shards overlap timeRange. Gaps (no file, chunk missing) are
// NaN.
func (s *Splitter) Read(variable string, location uint64, timeRange domain.TimeRangeDt) ([]float32, error) {
	if timeRange.DtSeconds != s.DtSeconds {
		return nil, fmt.Errorf("splitter: timeRange step %d != domain step %d", timeRange.DtSeconds, s.DtSeconds)
	}

	n := timeRange.Count()
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.NaN())
	}

	startShard := s.shardIndex(timeRange.Start)
	endShard := s.shardIndex(timeRange.End - timeRange.DtSeconds)

	for k := startShard; k <= endShard; k++ {
		shardStart, shardEnd := s.shardBounds(k)
		overlapStart := maxI64(shardStart, timeRange.Start)
		overlapEnd := minI64(shardEnd, timeRange.End)
		if overlapStart >= overlapEnd {
			continue
		}

		path, ok := s.resolveShardPath(variable, k, shardStart)
		if !ok {
			continue // gap: no rolling or archive file for this shard
		}

		f, release, err := s.cache.Acquire(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("splitter: %s: %w: %w", path, err, ErrIO)
		}

		localStart := (overlapStart - shardStart) / s.DtSeconds
		localCount := (overlapEnd - overlapStart) / s.DtSeconds
		vals, err := f.Read(location, uint64(localStart), uint64(localCount))
		release()
		if errors.Is(err, store.ErrOutOfRange) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("splitter: %s: %w: %w", path, err, ErrIO)
		}
		copy(out[(overlapStart-timeRange.Start)/timeRange.DtSeconds:], vals)
	}
	return out, nil
}

// resolveShardPath returns the file to read shard k from: the rolling
// shard if present, else (when enabled) the yearly archive file covering
// shardStart, else false if neither exists.
func (s *Splitter) resolveShardPath(variable string, k int64, shardStart int64) (string, bool) {
	rolling := s.rollingPath(variable, k)
	if _, err := os.Stat(rolling); err == nil {
		return rolling, true
	}
	if s.Archive == "" {
		return "", false
	}
	archivePath := s.archivePath(variable, shardStart)
	if _, err := os.Stat(archivePath); err == nil {
		return archivePath, true
	}
	return "", false
}

// WillNeed forwards an advisory prefetch through whichever shards overlap
// timeRange.
func (s *Splitter) WillNeed(variable string, location uint64, timeRange domain.TimeRangeDt) {
	startShard := s.shardIndex(timeRange.Start)
	endShard := s.shardIndex(timeRange.End - timeRange.DtSeconds)
	for k := startShard; k <= endShard; k++ {
		shardStart, shardEnd := s.shardBounds(k)
		overlapStart := maxI64(shardStart, timeRange.Start)
		overlapEnd := minI64(shardEnd, timeRange.End)
		if overlapStart >= overlapEnd {
			continue
		}
		path, ok := s.resolveShardPath(variable, k, shardStart)
		if !ok {
			continue
		}
		f, release, err := s.cache.Acquire(path)
		if err != nil {
			continue
		}
		localStart := uint64((overlapStart - shardStart) / s.DtSeconds)
		localCount := uint64((overlapEnd - overlapStart) / s.DtSeconds)
		f.WillNeed(location, 1, localStart, localCount)
		release()
	}
}

// Write overlays values (one row per location in [locStart,locStart+len(values)))
// onto the variable's rolling shards covering timeRange, re-chunking and
// publishing each touched shard atomically. Writers for distinct shards run
// independently; writers for the same shard serialize.
func (s *Splitter) Write(variable string, locStart uint64, timeRange domain.TimeRangeDt, values [][]float32, scalefactor float32) error {
	if timeRange.DtSeconds != s.DtSeconds {
		return fmt.Errorf("splitter: timeRange step %d != domain step %d", timeRange.DtSeconds, s.DtSeconds)
	}

	startShard := s.shardIndex(timeRange.Start)
	endShard := s.shardIndex(timeRange.End - timeRange.DtSeconds)

	for k := startShard; k <= endShard; k++ {
		shardStart, shardEnd := s.shardBounds(k)
		overlapStart := maxI64(shardStart, timeRange.Start)
		overlapEnd := minI64(shardEnd, timeRange.End)
		if overlapStart >= overlapEnd {
			continue
		}
		if err := s.writeShard(variable, k, shardStart, shardEnd, locStart, timeRange.Start, overlapStart, overlapEnd, values, scalefactor); err != nil {
			return err
		}
	}
	return nil
}

func (s *Splitter) writeShard(variable string, k, shardStart, shardEnd int64, locStart uint64, rangeStart, overlapStart, overlapEnd int64, values [][]float32, scalefactor float32) error {
	path := s.rollingPath(variable, k)
	lock := s.locks.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	merged, err := s.loadOrBlankShard(path, shardStart, shardEnd)
	if err != nil {
		return err
	}

	shardLen := int((shardEnd - shardStart) / s.DtSeconds)
	for i, row := range values {
		loc := locStart + uint64(i)
		if loc >= uint64(s.NLocations) {
			continue
		}
		for t := overlapStart; t < overlapEnd; t += s.DtSeconds {
			srcIdx := (t - rangeStart) / s.DtSeconds
			if int(srcIdx) >= len(row) {
				continue
			}
			dstIdx := (t - shardStart) / s.DtSeconds
			if dstIdx < 0 || int(dstIdx) >= shardLen {
				continue
			}
			merged[loc][dstIdx] = row[srcIdx]
		}
	}

	h := store.Header{
		NLocations: uint64(s.NLocations), NTime: uint64(shardLen),
		ChunkLoc: s.ChunkLoc, ChunkTime: s.ChunkTime, Scalefactor: scalefactor,
	}
	if err := store.Create(path, h, merged, s.tempReg); err != nil {
		return fmt.Errorf("splitter: %s: %w: %w", path, err, ErrIO)
	}
	return nil
}

// loadOrBlankShard decodes the existing shard file if present, else
// returns an all-NaN matrix shaped for [shardStart,shardEnd).
func (s *Splitter) loadOrBlankShard(path string, shardStart, shardEnd int64) ([][]float32, error) {
	shardLen := int((shardEnd - shardStart) / s.DtSeconds)
	merged := make([][]float32, s.NLocations)

	f, err := store.Open(path)
	if err != nil {
		for i := range merged {
			row := make([]float32, shardLen)
			for j := range row {
				row[j] = float32(math.NaN())
			}
			merged[i] = row
		}
		return merged, nil
	}
	defer f.Close()

	existing, err := f.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("splitter: %s: %w: %w", path, err, ErrIO)
	}
	for i := range merged {
		if i < len(existing) {
			merged[i] = existing[i]
		} else {
			row := make([]float32, shardLen)
			for j := range row {
				row[j] = float32(math.NaN())
			}
			merged[i] = row
		}
	}
	return merged, nil
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
