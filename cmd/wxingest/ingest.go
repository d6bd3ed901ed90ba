package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mmp/wx/domain"
	"github.com/mmp/wx/log"
	"github.com/mmp/wx/manifest"
	"github.com/mmp/wx/splitter"
	"github.com/mmp/wx/util"
)

// IngestDirectory reads one flat binary grid frame per forecast-valid
// timestep from sourceDir and writes them into dom's shards for variable.
//
// Actual upstream GRIB/BZ2 fetch and decode is out of scope (see
// Non-goals): a real deployment's fetch step drops files here in this
// format, one per valid time, named "<unix-seconds>.grid". Each file is
// Nx*Ny little-endian float32 values in row-major (y-major) order
// matching dom.Grid, with NaN marking missing points.
func IngestDirectory(dom *domain.Domain, variable, sourceDir string, st StorageBackend, lg *log.Logger) error {
	frames, err := listGridFrames(sourceDir)
	if err != nil {
		return fmt.Errorf("ingest: list %s: %w", sourceDir, err)
	}
	if len(frames) == 0 {
		lg.Infof("ingest: no grid frames found in %s", sourceDir)
		return nil
	}

	v, ok := dom.Variables[variable]
	if !ok {
		return fmt.Errorf("ingest: domain %s has no variable %s", dom.Name, variable)
	}

	n := dom.Grid.Count()
	data := make([][]float32, n)
	for i := range data {
		data[i] = make([]float32, len(frames))
	}

	var timestamps []int64
	for ti, f := range frames {
		vals, err := readGridFrame(f.path, n)
		if err != nil {
			return fmt.Errorf("ingest: %s: %w", f.path, err)
		}
		for loc, x := range vals {
			data[loc][ti] = x
		}
		timestamps = append(timestamps, f.validTime)
	}

	tr := domain.TimeRangeDt{Start: frames[0].validTime, End: frames[len(frames)-1].validTime + dom.DtSeconds, DtSeconds: dom.DtSeconds}

	reg := util.MakeTempFileRegistry(lg)
	cache := splitter.NewHandleCache(256, 10*time.Minute)
	sp := splitter.New(dom.OmfileDirectory, dom.OmfileArchive, n, dom.OmFileLength, dom.DtSeconds, cache, reg)

	if err := sp.Write(variable, 0, tr, data, v.Scalefactor); err != nil {
		return fmt.Errorf("ingest: splitter write: %w", err)
	}

	mf := manifest.New()
	manifestPath := filepath.Join(dom.OmfileDirectory, manifest.Filename)
	if f, err := os.Open(manifestPath); err == nil {
		if loaded, err := manifest.Load(f); err == nil {
			mf = loaded
		}
		f.Close()
	}
	if err := mf.Merge(dom.Name, variable, timestamps); err != nil {
		return fmt.Errorf("ingest: manifest merge: %w", err)
	}
	if err := writeManifestAtomic(mf, manifestPath); err != nil {
		return fmt.Errorf("ingest: manifest save: %w", err)
	}

	lg.Infof("ingest: wrote %d timesteps of %s/%s covering [%d,%d)", len(frames), dom.Name, variable, tr.Start, tr.End)
	return archiveFinishedShards(dom, lg)
}

func writeManifestAtomic(mf *manifest.Manifest, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "manifest-*.tmp")
	if err != nil {
		return err
	}
	if err := mf.Save(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// archiveFinishedShards rolls any yearly archive files for dom's variable
// directory through the Archiver, if one is configured.
func archiveFinishedShards(dom *domain.Domain, lg *log.Logger) error {
	if dom.OmfileArchive == "" || !*doArchive || *dryRun {
		return nil
	}
	arch, err := MakeArchiver(dom.Name, 0, lg)
	if err != nil || arch == nil {
		return err
	}
	entries, err := os.ReadDir(dom.OmfileArchive)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".om") {
			continue
		}
		if err := arch.Archive(filepath.Join(dom.OmfileArchive, e.Name())); err != nil {
			lg.Warnf("archive %s: %v", e.Name(), err)
		}
	}
	return nil
}

type gridFrame struct {
	validTime int64
	path      string
}

// listGridFrames scans dir for "<unix-seconds>.grid" files and returns
// them sorted by valid time.
func listGridFrames(dir string) ([]gridFrame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var frames []gridFrame
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".grid") {
			continue
		}
		stem := strings.TrimSuffix(name, ".grid")
		t, err := strconv.ParseInt(stem, 10, 64)
		if err != nil {
			continue
		}
		frames = append(frames, gridFrame{validTime: t, path: filepath.Join(dir, name)})
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].validTime < frames[j].validTime })
	return frames, nil
}

// readGridFrame reads n little-endian float32 values from path.
func readGridFrame(path string, n int) ([]float32, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(b) != n*4 {
		return nil, fmt.Errorf("expected %d bytes, got %d", n*4, len(b))
	}
	out := make([]float32, n)
	for i := range out {
		bits := binary.LittleEndian.Uint32(b[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}
