package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/mmp/wx/config"
	"github.com/mmp/wx/log"
)

// bucketName is resolved from config at startup; Archiver and GCSBackend
// both read it.
var bucketName string

var (
	dryRun    = flag.Bool("dryrun", false, "Don't upload to GCS or archive local files")
	local     = flag.Bool("local", false, "Store processed files locally instead of in GCS")
	doArchive = flag.Bool("archive", true, "Roll finished yearly shards into the archive tree")
	logLevel  = flag.String("loglevel", "info", "Logging level: debug, info, warn, error")
	logDir    = flag.String("logdir", "wxingest-logs", "Directory for log output")
)

func main() {
	flag.Parse()

	usage := func() {
		fmt.Fprintf(os.Stderr, "usage: wxingest [flags] <domain> <variable> <source-dir>\nwhere [flags] may be:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if len(flag.Args()) != 3 {
		usage()
	}

	lg := log.New(*logLevel, *logDir)
	domainName, variable, sourceDir := flag.Args()[0], flag.Args()[1], flag.Args()[2]

	cfg, err := config.Load(*configPath, nil)
	if err != nil {
		lg.Errorf("%v", err)
		os.Exit(1)
	}
	dom, ok := cfg.Domains[domainName]
	if !ok {
		lg.Errorf("%s: unknown domain", domainName)
		os.Exit(1)
	}
	bucketName = cfg.Ingest.Bucket

	var st StorageBackend
	switch {
	case *dryRun:
		st = &DryRunBackend{}
	case *local:
		lb, err := MakeLocalBackend("wxingest-out", nil, lg)
		if err != nil {
			lg.Errorf("%v", err)
			os.Exit(1)
		}
		st = lb
		if *doArchive {
			lg.Infof("disabling -archive for -local run")
			*doArchive = false
		}
	default:
		gb, err := MakeGCSBackend(bucketName, lg)
		if err != nil {
			lg.Errorf("%v", err)
			os.Exit(1)
		}
		st = gb
	}
	tracked := NewTrackingBackend(st, lg)
	defer tracked.Close()

	launchHTTPServer(lg)

	if err := IngestDirectory(dom, variable, sourceDir, tracked, lg); err != nil {
		lg.Errorf("ingest failed: %v", err)
		os.Exit(1)
	}

	tracked.ReportStats()
	if gb, ok := st.(*GCSBackend); ok {
		gb.ReportClassAOperations()
	}
	if lb, ok := st.(*LocalBackend); ok {
		lb.ReportStats()
	}
}

var configPath = flag.String("config", "wxingest.toml", "Path to domain configuration file")

var startTime time.Time

func launchHTTPServer(lg *log.Logger) {
	startTime = time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	listener, err := net.Listen("tcp", ":8002")
	if err != nil {
		lg.Errorf("unable to start debug HTTP server: %v", err)
		return
	}
	lg.Infof("launching debug HTTP server on port 8002")
	go http.Serve(listener, mux)
}
