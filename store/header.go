// store/header.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Magic identifies a column file; Version is the only format version this
// package understands.
const (
	Magic   = "OM"
	Version = 1
)

const headerSize = 4 + 8 + 8 + 4 + 4 + 4 // magic+version, nLocations, nTime, chunkLoc, chunkTime, scalefactor

// chunkEntrySize is the on-disk size of one (offset, length) chunk index
// entry.
const chunkEntrySize = 8 + 4

// Header describes a column file's shape and quantization; it is immutable
// for the life of the file.
type Header struct {
	NLocations  uint64
	NTime       uint64
	ChunkLoc    uint32
	ChunkTime   uint32
	Scalefactor float32
}

// chunkGrid returns the number of chunks along the location and time axes.
func (h Header) chunkGrid() (nLocChunks, nTimeChunks int) {
	nLocChunks = ceilDiv(h.NLocations, uint64(h.ChunkLoc))
	nTimeChunks = ceilDiv(h.NTime, uint64(h.ChunkTime))
	return
}

// nChunks is the total number of entries in the chunk index.
func (h Header) nChunks() int {
	nl, nt := h.chunkGrid()
	return nl * nt
}

// chunkDims returns the location and time span of chunk (locIdx, timeIdx),
// clipped at the array boundary for edge chunks.
func (h Header) chunkDims(locIdx, timeIdx int) (locLen, timeLen int) {
	locStart := uint64(locIdx) * uint64(h.ChunkLoc)
	locLen = int(minU64(uint64(h.ChunkLoc), h.NLocations-locStart))
	timeStart := uint64(timeIdx) * uint64(h.ChunkTime)
	timeLen = int(minU64(uint64(h.ChunkTime), h.NTime-timeStart))
	return
}

func ceilDiv(a, b uint64) int {
	if b == 0 {
		return 0
	}
	return int((a + b - 1) / b)
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

type chunkEntry struct {
	Offset uint64
	Length uint32
}

func encodeHeader(h Header) []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:2], Magic)
	buf[2] = Version
	// buf[3] is reserved, left zero.
	binary.BigEndian.PutUint64(buf[4:12], h.NLocations)
	binary.BigEndian.PutUint64(buf[12:20], h.NTime)
	binary.BigEndian.PutUint32(buf[20:24], h.ChunkLoc)
	binary.BigEndian.PutUint32(buf[24:28], h.ChunkTime)
	binary.BigEndian.PutUint32(buf[28:32], math.Float32bits(h.Scalefactor))
	return buf
}

func decodeHeader(data []byte) (Header, error) {
	if len(data) < headerSize {
		return Header{}, fmt.Errorf("store: truncated header: %w", ErrFormatInvalid)
	}
	if string(data[0:2]) != Magic {
		return Header{}, fmt.Errorf("store: bad magic: %w", ErrFormatInvalid)
	}
	if data[2] != Version {
		return Header{}, fmt.Errorf("store: unsupported version %d: %w", data[2], ErrFormatInvalid)
	}
	h := Header{
		NLocations:  binary.BigEndian.Uint64(data[4:12]),
		NTime:       binary.BigEndian.Uint64(data[12:20]),
		ChunkLoc:    binary.BigEndian.Uint32(data[20:24]),
		ChunkTime:   binary.BigEndian.Uint32(data[24:28]),
		Scalefactor: math.Float32frombits(binary.BigEndian.Uint32(data[28:32])),
	}
	if h.ChunkLoc == 0 || h.ChunkTime == 0 {
		return Header{}, fmt.Errorf("store: zero chunk dimension: %w", ErrFormatInvalid)
	}
	return h, nil
}

func encodeChunkIndex(entries []chunkEntry) []byte {
	buf := make([]byte, len(entries)*chunkEntrySize)
	for i, e := range entries {
		off := i * chunkEntrySize
		binary.BigEndian.PutUint64(buf[off:off+8], e.Offset)
		binary.BigEndian.PutUint32(buf[off+8:off+12], e.Length)
	}
	return buf
}

func decodeChunkIndex(data []byte, n int) ([]chunkEntry, error) {
	if len(data) < n*chunkEntrySize {
		return nil, fmt.Errorf("store: truncated chunk index: %w", ErrFormatInvalid)
	}
	entries := make([]chunkEntry, n)
	for i := range entries {
		off := i * chunkEntrySize
		entries[i] = chunkEntry{
			Offset: binary.BigEndian.Uint64(data[off : off+8]),
			Length: binary.BigEndian.Uint32(data[off+8 : off+12]),
		}
	}
	return entries, nil
}
