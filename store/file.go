// store/file.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package store

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/mmp/wx/util"
)

// File is a read-only, memory-mapped handle to a column file. Zero value is
// not usable; obtain one via Open.
type File struct {
	header      Header
	chunks      []chunkEntry
	payloadBase int64
	mapping     mapping
	f           *os.File
	path        string
}

// Open maps path into memory and validates its header and chunk index.
// Returns ErrFormatInvalid if the magic, version or chunk index are
// malformed or run past the end of the file.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("store: stat %s: %w", path, err)
	}

	m, err := mmapFile(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("store: mmap %s: %w", path, err)
	}

	if len(m.data) < headerSize {
		f.Close()
		return nil, fmt.Errorf("store: %s: %w", path, ErrFormatInvalid)
	}

	h, err := decodeHeader(m.data[:headerSize])
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("store: %s: %w", path, err)
	}

	n := h.nChunks()
	indexEnd := headerSize + n*chunkEntrySize
	if indexEnd > len(m.data) {
		f.Close()
		return nil, fmt.Errorf("store: %s: chunk index runs past EOF: %w", path, ErrFormatInvalid)
	}

	entries, err := decodeChunkIndex(m.data[headerSize:indexEnd], n)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("store: %s: %w", path, err)
	}
	for _, e := range entries {
		if int64(e.Offset)+int64(e.Length) > int64(len(m.data)-indexEnd) {
			f.Close()
			return nil, fmt.Errorf("store: %s: chunk entry out of bounds: %w", path, ErrFormatInvalid)
		}
	}

	return &File{
		header:      h,
		chunks:      entries,
		payloadBase: int64(indexEnd),
		mapping:     m,
		f:           f,
		path:        path,
	}, nil
}

// Header returns the file's immutable shape/quantization descriptor.
func (cf *File) Header() Header { return cf.header }

// Close releases the memory mapping and underlying file descriptor.
func (cf *File) Close() error {
	if err := cf.mapping.unmap(); err != nil {
		return err
	}
	return cf.f.Close()
}

// Read returns timeCount values for one location, starting at timeStart.
// Timesteps beyond nTime are NaN. Returns ErrOutOfRange if location is
// outside nLocations.
func (cf *File) Read(location uint64, timeStart, timeCount uint64) ([]float32, error) {
	if location >= cf.header.NLocations {
		return nil, fmt.Errorf("store: location %d: %w", location, ErrOutOfRange)
	}

	out := make([]float32, timeCount)
	for i := range out {
		out[i] = float32(math.NaN())
	}

	locChunkIdx := int(location / uint64(cf.header.ChunkLoc))
	locOffsetInChunk := int(location % uint64(cf.header.ChunkLoc))
	_, nTimeChunks := cf.header.chunkGrid()

	timeEnd := timeStart + timeCount
	for tc := 0; tc < nTimeChunks; tc++ {
		chunkTimeStart := uint64(tc) * uint64(cf.header.ChunkTime)
		_, timeLen := cf.header.chunkDims(locChunkIdx, tc)
		chunkTimeEnd := chunkTimeStart + uint64(timeLen)
		if chunkTimeEnd <= timeStart || chunkTimeStart >= timeEnd {
			continue
		}

		row, err := cf.decodeRow(locChunkIdx, tc, locOffsetInChunk)
		if err != nil {
			return nil, err
		}

		overlapStart := maxU64(chunkTimeStart, timeStart)
		overlapEnd := minU64(chunkTimeEnd, timeEnd)
		for t := overlapStart; t < overlapEnd; t++ {
			out[t-timeStart] = row[t-chunkTimeStart]
		}
	}
	return out, nil
}

// ReadAll decodes the entire logical [location][time] matrix. Used by the
// splitter's rewrite-on-merge write path, not by the hot per-point query
// path.
func (cf *File) ReadAll() ([][]float32, error) {
	out := make([][]float32, cf.header.NLocations)
	for loc := range out {
		v, err := cf.Read(uint64(loc), 0, cf.header.NTime)
		if err != nil {
			return nil, err
		}
		out[loc] = v
	}
	return out, nil
}

// WillNeed advisory-prefaults the chunks covering the given location and
// time ranges. Never fails user-visibly.
func (cf *File) WillNeed(locStart, locCount, timeStart, timeCount uint64) {
	nLocChunks, nTimeChunks := cf.header.chunkGrid()
	locEnd := locStart + locCount
	timeEnd := timeStart + timeCount

	for lc := 0; lc < nLocChunks; lc++ {
		chunkLocStart := uint64(lc) * uint64(cf.header.ChunkLoc)
		locLen, _ := cf.header.chunkDims(lc, 0)
		chunkLocEnd := chunkLocStart + uint64(locLen)
		if chunkLocEnd <= locStart || chunkLocStart >= locEnd {
			continue
		}
		for tc := 0; tc < nTimeChunks; tc++ {
			chunkTimeStart := uint64(tc) * uint64(cf.header.ChunkTime)
			_, timeLen := cf.header.chunkDims(lc, tc)
			chunkTimeEnd := chunkTimeStart + uint64(timeLen)
			if chunkTimeEnd <= timeStart || chunkTimeStart >= timeEnd {
				continue
			}
			idx := lc*nTimeChunks + tc
			if idx >= len(cf.chunks) {
				continue
			}
			e := cf.chunks[idx]
			if e.Length == 0 {
				continue
			}
			cf.mapping.willNeed(cf.payloadBase+int64(e.Offset), int64(e.Length))
		}
	}
}

// decodeRow decodes chunk (locChunkIdx, timeChunkIdx) and returns the row
// for locOffsetInChunk, dequantized to physical units (divided by the
// scalefactor).
func (cf *File) decodeRow(locChunkIdx, timeChunkIdx, locOffsetInChunk int) ([]float32, error) {
	locLen, timeLen := cf.header.chunkDims(locChunkIdx, timeChunkIdx)
	_, nTimeChunks := cf.header.chunkGrid()
	idx := locChunkIdx*nTimeChunks + timeChunkIdx
	if idx < 0 || idx >= len(cf.chunks) {
		return nil, fmt.Errorf("store: %s: %w", cf.path, ErrFormatInvalid)
	}
	e := cf.chunks[idx]

	row := make([]float32, timeLen)
	if e.Length == 0 {
		for i := range row {
			row[i] = float32(math.NaN())
		}
		return row, nil
	}

	start := cf.payloadBase + int64(e.Offset)
	end := start + int64(e.Length)
	tile, err := decodeChunk(cf.mapping.data[start:end], locLen, timeLen)
	if err != nil {
		return nil, fmt.Errorf("store: %s: %w", cf.path, err)
	}
	for c := 0; c < timeLen; c++ {
		row[c] = dequantize(tile[locOffsetInChunk*timeLen+c], cf.header.Scalefactor)
	}
	return row, nil
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// Create writes a new column file at path containing data (indexed
// [location][time], data[loc] must have length h.NTime), via a sibling temp
// file and atomic rename. Missing cells are NaN. If reg is non-nil, the temp
// path is registered so a SIGINT/SIGTERM during the write still leaves the
// directory clean.
func Create(path string, h Header, data [][]float32, reg *util.TempFileRegistry) error {
	if uint64(len(data)) != h.NLocations {
		return fmt.Errorf("store: %s: %d location rows, header says %d: %w", path, len(data), h.NLocations, ErrFormatInvalid)
	}

	nLocChunks, nTimeChunks := h.chunkGrid()
	entries := make([]chunkEntry, 0, nLocChunks*nTimeChunks)
	var payload []byte

	for lc := 0; lc < nLocChunks; lc++ {
		locStart := lc * int(h.ChunkLoc)
		for tc := 0; tc < nTimeChunks; tc++ {
			locLen, timeLen := h.chunkDims(lc, tc)
			timeStart := tc * int(h.ChunkTime)

			tile := make([]int16, locLen*timeLen)
			allMissing := true
			for r := 0; r < locLen; r++ {
				row := data[locStart+r]
				for c := 0; c < timeLen; c++ {
					q := quantize(row[timeStart+c], h.Scalefactor)
					tile[r*timeLen+c] = q
					if q != missingQ {
						allMissing = false
					}
				}
			}

			if allMissing {
				entries = append(entries, chunkEntry{Offset: uint64(len(payload)), Length: 0})
				continue
			}
			enc := encodeChunk(tile, locLen, timeLen)
			entries = append(entries, chunkEntry{Offset: uint64(len(payload)), Length: uint32(len(enc))})
			payload = append(payload, enc...)
		}
	}

	buf := append(encodeHeader(h), encodeChunkIndex(entries)...)
	buf = append(buf, payload...)

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: %s: %w: %w", path, err, ErrIO)
	}
	tmpPath := tmp.Name()
	if reg != nil {
		reg.RegisterPath(tmpPath)
	}

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("store: write %s: %w: %w", tmpPath, err, ErrIO)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: close %s: %w: %w", tmpPath, err, ErrIO)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: rename %s -> %s: %w: %w", tmpPath, path, err, ErrIO)
	}
	return nil
}
