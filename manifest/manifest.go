// manifest/manifest.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package manifest tracks, per (domain, variable), which timesteps have
// been written to the backing .om shards, so a server can answer "is this
// forecast hour available" without touching disk. The on-disk format is
// the same msgpack+zstd envelope the core uses for its own serialized
// blobs, with timestamp lists delta-encoded and flate-compressed before
// being handed to msgpack.
package manifest

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mmp/wx/util"
)

// Filename is the standard name for a domain's manifest file, stored
// alongside its .om shards.
const Filename = "manifest.msgpack.zst"

// key identifies one variable within one domain.
type key struct {
	Domain   string
	Variable string
}

// rawManifest is the on-disk storage format: per (domain,variable),
// delta-encoded, flate-compressed int64 Unix timestamps.
type rawManifest map[key][]byte

// Manifest tracks the set of available forecast-valid timestamps for
// every (domain,variable) pair the splitter has written. It is the
// server's fast path for answering availability queries without probing
// shard files.
type Manifest struct {
	data  rawManifest
	cache *expirable.LRU[key, []int64]
}

// New returns an empty Manifest.
func New() *Manifest {
	return &Manifest{
		data:  make(rawManifest),
		cache: expirable.NewLRU[key, []int64](64, nil, 4*time.Hour),
	}
}

// Set records the (sorted ascending) set of available Unix timestamps
// for domain/variable, replacing any prior entry.
func (m *Manifest) Set(domain, variable string, timestamps []int64) error {
	sorted := slices.Clone(timestamps)
	slices.Sort(sorted)
	compressed, err := compressTimestamps(sorted)
	if err != nil {
		return fmt.Errorf("manifest: compress %s/%s: %w", domain, variable, err)
	}
	k := key{domain, variable}
	m.data[k] = compressed
	m.cache.Remove(k)
	return nil
}

// Merge folds newTimestamps into the existing set for domain/variable,
// de-duplicating and re-sorting. Used after an incremental splitter
// write so the manifest never needs a full shard rescan.
func (m *Manifest) Merge(domain, variable string, newTimestamps []int64) error {
	existing, _ := m.Get(domain, variable)
	merged := append(slices.Clone(existing), newTimestamps...)
	slices.Sort(merged)
	merged = slices.Compact(merged)
	return m.Set(domain, variable, merged)
}

// Get returns the available timestamps for domain/variable. Results are
// cached to avoid repeated decompression of hot entries.
func (m *Manifest) Get(domain, variable string) ([]int64, bool) {
	k := key{domain, variable}
	if ts, ok := m.cache.Get(k); ok {
		return ts, true
	}

	compressed, ok := m.data[k]
	if !ok {
		return nil, false
	}

	ts, err := decompressTimestamps(compressed)
	if err != nil {
		return nil, false
	}

	m.cache.Add(k, ts)
	return ts, true
}

// Covers reports whether domain/variable has data at every multiple of
// dtSeconds in [start,end).
func (m *Manifest) Covers(domain, variable string, start, end, dtSeconds int64) bool {
	ts, ok := m.Get(domain, variable)
	if !ok {
		return false
	}
	have := make(map[int64]struct{}, len(ts))
	for _, t := range ts {
		have[t] = struct{}{}
	}
	for t := start; t < end; t += dtSeconds {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}

// Variables returns the sorted list of variable names recorded for domain.
func (m *Manifest) Variables(domain string) []string {
	var names []string
	for k := range m.data {
		if k.Domain == domain {
			names = append(names, k.Variable)
		}
	}
	slices.Sort(names)
	return names
}

// Domains returns the sorted list of distinct domain names in the manifest.
func (m *Manifest) Domains() []string {
	seen := make(map[string]struct{})
	for k := range m.data {
		seen[k.Domain] = struct{}{}
	}
	names := slices.Collect(maps.Keys(seen))
	slices.Sort(names)
	return names
}

// Intervals collapses domain/variable's timestamps into contiguous
// coverage windows, tolerating gaps up to tolerance (a run producing two
// forecast steps back-to-back still reads as one interval even if a
// single update was briefly delayed).
func (m *Manifest) Intervals(domain, variable string, tolerance time.Duration) []util.TimeInterval {
	ts, ok := m.Get(domain, variable)
	if !ok {
		return nil
	}
	times := make([]time.Time, len(ts))
	for i, t := range ts {
		times[i] = time.Unix(t, 0).UTC()
	}
	return util.FindTimeIntervals(times, tolerance)
}

// Load reads a Manifest from r in the standard msgpack+zstd envelope.
func Load(r io.Reader) (*Manifest, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("manifest: zstd reader: %w", err)
	}
	defer zr.Close()

	var entries []rawEntry
	if err := msgpack.NewDecoder(zr).Decode(&entries); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}

	m := New()
	for _, e := range entries {
		m.data[key{e.Domain, e.Variable}] = e.Compressed
	}
	return m, nil
}

// Save writes m to w in the standard msgpack+zstd envelope.
func (m *Manifest) Save(w io.Writer) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("manifest: zstd writer: %w", err)
	}
	defer zw.Close()

	entries := make([]rawEntry, 0, len(m.data))
	for k, v := range m.data {
		entries = append(entries, rawEntry{Domain: k.Domain, Variable: k.Variable, Compressed: v})
	}
	slices.SortFunc(entries, func(a, b rawEntry) int {
		if a.Domain != b.Domain {
			if a.Domain < b.Domain {
				return -1
			}
			return 1
		}
		if a.Variable < b.Variable {
			return -1
		} else if a.Variable > b.Variable {
			return 1
		}
		return 0
	})

	if err := msgpack.NewEncoder(zw).Encode(entries); err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	return zw.Close()
}

// rawEntry is the msgpack wire shape: a flat slice rather than a map
// keyed by a struct, since msgpack has no native support for
// non-string/int map keys.
type rawEntry struct {
	Domain     string
	Variable   string
	Compressed []byte
}

// compressTimestamps delta-encodes and flate-compresses sorted int64
// Unix timestamps.
func compressTimestamps(timestamps []int64) ([]byte, error) {
	deltaEncoded := util.DeltaEncode(timestamps)

	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if err := binary.Write(fw, binary.LittleEndian, deltaEncoded); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompressTimestamps inverts compressTimestamps.
func decompressTimestamps(compressed []byte) ([]int64, error) {
	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, fr); err != nil {
		return nil, err
	}

	data := buf.Bytes()
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("manifest: corrupt timestamp block: %d bytes", len(data))
	}

	deltaEncoded := make([]int64, len(data)/8)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, deltaEncoded); err != nil {
		return nil, err
	}
	return util.DeltaDecode(deltaEncoded), nil
}
