// config/config.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package config loads the domain/variable registry and server/ingest
// settings shared by cmd/wxserver and cmd/wxingest from a layered
// TOML+env+flag configuration, via github.com/spf13/viper.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mmp/wx/domain"
	"github.com/mmp/wx/grid"
)

// Config is the fully-resolved configuration for either binary: the
// Domain registry plus whichever of Server/Ingest applies.
type Config struct {
	Domains map[string]*domain.Domain
	Server  ServerConfig
	Ingest  IngestConfig
}

type ServerConfig struct {
	ListenAddr string
}

type IngestConfig struct {
	Bucket string
}

// rawDomain/rawVariable mirror the TOML shape; they're decoded by viper
// and then translated into domain.Domain/domain.Variable, which carry
// richer (non-serializable) fields like grid elevation arrays. Loading
// does not populate Grid.Elevation; grids built here have no elevation map.
type rawDomain struct {
	Kind            string
	Grid            rawGrid
	DtSeconds       int64
	OmfileDirectory string
	OmfileArchive   string
	OmFileLength    int
	Variables       map[string]rawVariable
}

type rawGrid struct {
	Kind       string
	Nx, Ny     int
	Lat0, Lon0 float64
	Dlat, Dlon float64
	LonMin     float64
	Phi0, Phi1, Phi2, Lambda0 float64
	OriginX, OriginY, Dx, Dy  float64
}

type rawVariable struct {
	Scalefactor    float32
	Interpolation  string
	Unit           string
	Elevation      bool
	BoundsLo       *float32
	BoundsHi       *float32
	PressureLevel  int
	BaseName       string
}

// Load reads configuration from path (a TOML file), merging in
// VICE_WX_-prefixed environment variables and any flags already defined
// on flagSet (nil is fine; callers that don't need flag overrides can
// pass pflag.CommandLine or nil).
func Load(path string, flagSet *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("VICE_WX")
	v.AutomaticEnv()

	if flagSet != nil {
		if err := v.BindPFlags(flagSet); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	v.SetDefault("server.listenaddr", ":8080")
	v.SetDefault("ingest.bucket", "vice-wx")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var raw struct {
		Domains map[string]rawDomain
		Server  ServerConfig
		Ingest  IngestConfig
	}
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg := &Config{
		Domains: make(map[string]*domain.Domain, len(raw.Domains)),
		Server:  raw.Server,
		Ingest:  raw.Ingest,
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = v.GetString("server.listenaddr")
	}
	if cfg.Ingest.Bucket == "" {
		cfg.Ingest.Bucket = v.GetString("ingest.bucket")
	}

	for name, rd := range raw.Domains {
		dom, err := toDomain(name, rd)
		if err != nil {
			return nil, fmt.Errorf("config: domain %s: %w", name, err)
		}
		cfg.Domains[name] = dom
	}
	return cfg, nil
}

func toDomain(name string, rd rawDomain) (*domain.Domain, error) {
	g := &grid.Grid{
		Nx: rd.Grid.Nx, Ny: rd.Grid.Ny,
		Lat0: rd.Grid.Lat0, Lon0: rd.Grid.Lon0,
		Dlat: rd.Grid.Dlat, Dlon: rd.Grid.Dlon,
		LonMin: rd.Grid.LonMin,
	}
	switch rd.Grid.Kind {
	case "", "regular":
		g.Kind = grid.KindRegular
	case "projected":
		g.Kind = grid.KindProjected
		g.Projection = grid.NewLambertProjection(rd.Grid.Phi0, rd.Grid.Phi1, rd.Grid.Phi2, rd.Grid.Lambda0)
		g.OriginX, g.OriginY, g.Dx, g.Dy = rd.Grid.OriginX, rd.Grid.OriginY, rd.Grid.Dx, rd.Grid.Dy
	default:
		return nil, fmt.Errorf("unknown grid kind %q", rd.Grid.Kind)
	}

	kind := domain.KindGlobal
	if rd.Kind == "regional" {
		kind = domain.KindRegional
	}

	dom := &domain.Domain{
		Name: name, Kind: kind, Grid: g, DtSeconds: rd.DtSeconds,
		OmfileDirectory: rd.OmfileDirectory, OmfileArchive: rd.OmfileArchive,
		OmFileLength: rd.OmFileLength,
		Variables:    make(map[string]*domain.Variable, len(rd.Variables)),
	}
	for vname, rv := range rd.Variables {
		v, err := toVariable(vname, rv)
		if err != nil {
			return nil, err
		}
		dom.Variables[vname] = v
	}
	return dom, nil
}

func toVariable(name string, rv rawVariable) (*domain.Variable, error) {
	v := &domain.Variable{
		Name: name, Scalefactor: rv.Scalefactor,
		IsElevationCorrectable: rv.Elevation,
		BaseName:               rv.BaseName,
		PressureLevel:          rv.PressureLevel,
	}
	switch rv.Interpolation {
	case "", "linear":
		v.Interpolation = domain.InterpolationLinear
	case "hermite":
		v.Interpolation = domain.InterpolationHermite
	case "solar":
		v.Interpolation = domain.InterpolationSolarBackwardsAveraged
	default:
		return nil, fmt.Errorf("variable %s: unknown interpolation %q", name, rv.Interpolation)
	}
	switch rv.Unit {
	case "celsius":
		v.Unit = domain.UnitCelsius
	case "percent":
		v.Unit = domain.UnitPercent
	case "hpa":
		v.Unit = domain.UnitHectopascal
	case "pa":
		v.Unit = domain.UnitPascal
	case "mps":
		v.Unit = domain.UnitMetersPerSecond
	case "wpm2":
		v.Unit = domain.UnitWattsPerSquareMeter
	case "mm":
		v.Unit = domain.UnitMillimeters
	case "m":
		v.Unit = domain.UnitMeters
	default:
		v.Unit = domain.UnitUnknown
	}
	if rv.BoundsLo != nil && rv.BoundsHi != nil {
		v.Bounds = &[2]float32{*rv.BoundsLo, *rv.BoundsHi}
	}
	return v, nil
}
