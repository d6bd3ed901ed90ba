// cmd/wxserver/server.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmp/wx/config"
	"github.com/mmp/wx/domain"
	"github.com/mmp/wx/grid"
	"github.com/mmp/wx/log"
	"github.com/mmp/wx/mixer"
	"github.com/mmp/wx/reader"
	"github.com/mmp/wx/splitter"
	"github.com/mmp/wx/util"
)

// server holds everything handlers need: the domain registry, shared
// splitter handle cache, and logger. One server instance serves every
// configured domain; per-request state (Readers, Mixer) is built fresh on
// each call, since there are no cross-request mutable caches beyond the OS
// page cache and the splitter's file-handle pool.
type server struct {
	cfg   *config.Config
	cache *splitter.HandleCache
	reg   *util.TempFileRegistry
	lg    *log.Logger
}

func newServer(cfg *config.Config, cache *splitter.HandleCache, reg *util.TempFileRegistry, lg *log.Logger) *server {
	return &server{cfg: cfg, cache: cache, reg: reg, lg: lg}
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// queryParams is the parsed and validated form of
// GET /{model}?latitude=...&longitude=...&hourly=a,b,c&...
type queryParams struct {
	model        string
	lat, lon     float64
	elevation    float64
	hasElev      bool
	hourly       []string
	daily        []string
	forecastDays int
	pastDays     int
	format       string
}

func parseQueryParams(model string, q map[string][]string) (queryParams, error) {
	get := func(name string) string {
		if v, ok := q[name]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}
	getList := func(name string) []string {
		v := get(name)
		if v == "" {
			return nil
		}
		return strings.Split(v, ",")
	}

	p := queryParams{model: model, forecastDays: 7, format: "json"}

	latStr, lonStr := get("latitude"), get("longitude")
	if latStr == "" || lonStr == "" {
		return p, fmt.Errorf("latitude and longitude are required")
	}
	var err error
	if p.lat, err = strconv.ParseFloat(latStr, 64); err != nil {
		return p, fmt.Errorf("invalid latitude: %w", err)
	}
	if p.lon, err = strconv.ParseFloat(lonStr, 64); err != nil {
		return p, fmt.Errorf("invalid longitude: %w", err)
	}
	if math.Abs(p.lat) > 90 {
		return p, fmt.Errorf("latitude out of range [-90,90]")
	}
	if math.Abs(p.lon) > 180 {
		return p, fmt.Errorf("longitude out of range [-180,180]")
	}

	if elevStr := get("elevation"); elevStr != "" {
		if p.elevation, err = strconv.ParseFloat(elevStr, 64); err != nil {
			return p, fmt.Errorf("invalid elevation: %w", err)
		}
		p.hasElev = true
	} else {
		p.elevation = math.NaN()
	}

	p.hourly = getList("hourly")
	p.daily = getList("daily")
	if len(p.hourly) == 0 && len(p.daily) == 0 {
		return p, fmt.Errorf("at least one of hourly or daily is required")
	}
	if len(p.daily) > 0 && get("timezone") == "" {
		return p, fmt.Errorf("daily queries require timezone")
	}

	if fd := get("forecast_days"); fd != "" {
		n, err := strconv.Atoi(fd)
		if err != nil {
			return p, fmt.Errorf("invalid forecast_days: %w", err)
		}
		p.forecastDays = n
	}
	if p.forecastDays <= 0 || p.forecastDays > 16 {
		return p, fmt.Errorf("forecast_days out of range (0,16]")
	}

	if pd := get("past_days"); pd != "" {
		n, err := strconv.Atoi(pd)
		if err != nil {
			return p, fmt.Errorf("invalid past_days: %w", err)
		}
		p.pastDays = n
	}

	if f := get("format"); f != "" {
		if f != "json" && f != "csv" {
			return p, fmt.Errorf("format must be json or csv")
		}
		p.format = f
	}

	return p, nil
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	model := strings.TrimPrefix(r.URL.Path, "/")
	dom, ok := s.cfg.Domains[model]
	if !ok {
		http.Error(w, "unknown model", http.StatusNotFound)
		return
	}

	p, err := parseQueryParams(model, r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	dayStart := now.Truncate(24 * time.Hour).Unix()
	start := dayStart - int64(p.pastDays)*86400
	end := dayStart + int64(p.forecastDays)*86400
	tr := domain.TimeRangeDt{Start: start, End: end, DtSeconds: dom.DtSeconds}

	rd, err := reader.New(dom, s.newSplitter(dom), p.lat, p.lon, p.elevation, grid.Nearest)
	if err != nil {
		s.writeDataError(w, err)
		return
	}
	mx := mixer.NewFromReaders(rd)

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	variables := append(append([]string{}, p.hourly...), p.daily...)
	results := make(map[string][]float32, len(variables))
	units := make(map[string]domain.Unit, len(variables))
	for _, v := range variables {
		vals, unit, err := mx.Get(ctx, v, tr)
		if err != nil {
			s.writeDataError(w, err)
			return
		}
		results[v] = vals
		units[v] = unit
	}

	resp := queryResponse{
		Latitude: p.lat, Longitude: p.lon, Model: model,
		Times: timesISO(tr), Values: results, Units: units,
	}

	if p.format == "csv" {
		writeCSV(w, resp)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *server) newSplitter(dom *domain.Domain) *splitter.Splitter {
	return splitter.New(dom.OmfileDirectory, dom.OmfileArchive, dom.Grid.Count(), dom.OmFileLength, dom.DtSeconds, s.cache, s.reg)
}

func (s *server) writeDataError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, grid.ErrGridMiss):
		http.Error(w, "no data available for this location", http.StatusNotFound)
	case errors.Is(err, reader.ErrCancelled):
		http.Error(w, "request deadline exceeded", http.StatusGatewayTimeout)
	default:
		s.lg.Warnf("query error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

type queryResponse struct {
	Latitude, Longitude float64
	Model                string
	Times                []string
	Values               map[string][]float32
	Units                map[string]domain.Unit
}

func timesISO(tr domain.TimeRangeDt) []string {
	out := make([]string, tr.Count())
	for i := range out {
		out[i] = time.Unix(tr.At(i), 0).UTC().Format(time.RFC3339)
	}
	return out
}

func writeCSV(w http.ResponseWriter, resp queryResponse) {
	w.Header().Set("Content-Type", "text/csv")
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"time"}
	var vars []string
	for v := range resp.Values {
		vars = append(vars, v)
	}
	header = append(header, vars...)
	cw.Write(header)

	for i, t := range resp.Times {
		row := []string{t}
		for _, v := range vars {
			x := resp.Values[v][i]
			if math.IsNaN(float64(x)) {
				row = append(row, "")
			} else {
				row = append(row, strconv.FormatFloat(float64(x), 'f', 3, 32))
			}
		}
		cw.Write(row)
	}
}
