// cmd/wxserver/main.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Command wxserver is the HTTP front end for the weather-forecast storage
// engine: it parses latitude/longitude/elevation and variable-list query
// parameters, builds a per-request Reader for the requested domain wrapped
// in a Mixer, and writes the result as JSON or CSV. It does not
// implement GRIB decode, authentication, or TLS.
package main

import (
	"context"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/mmp/wx/config"
	"github.com/mmp/wx/log"
	"github.com/mmp/wx/splitter"
	"github.com/mmp/wx/util"
)

func main() {
	pflag.String("config", "wxserver.toml", "Path to domain/server configuration file")
	pflag.String("loglevel", "info", "Logging level: debug, info, warn, error")
	pflag.String("logdir", "wxserver-logs", "Directory for log output")
	pflag.Parse()

	configPath, _ := pflag.CommandLine.GetString("config")
	logLevel, _ := pflag.CommandLine.GetString("loglevel")
	logDir, _ := pflag.CommandLine.GetString("logdir")

	lg := log.New(logLevel, logDir)

	cfg, err := config.Load(configPath, pflag.CommandLine)
	if err != nil {
		lg.Errorf("%v", err)
		os.Exit(1)
	}
	if len(cfg.Domains) == 0 {
		lg.Errorf("no domains configured in %s", configPath)
		os.Exit(1)
	}

	cache := splitter.NewHandleCache(1024, time.Hour)
	reg := util.MakeTempFileRegistry(lg)

	srv := newServer(cfg, cache, reg, lg)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealthz)
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	for name := range cfg.Domains {
		mux.HandleFunc("/"+name, srv.handleQuery)
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		lg.Infof("wxserver: listening on %s", cfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Errorf("ListenAndServe: %v", err)
		}
	}()

	<-ctx.Done()
	lg.Infof("wxserver: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		lg.Errorf("Shutdown: %v", err)
	}
}
