package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"foodcatalog_api/config"
	"foodcatalog_api/internal/catalog/source"
	"foodcatalog_api/internal/catalog/storage"
	"foodcatalog_api/internal/importer"
	"foodcatalog_api/internal/perekrestok"
	"foodcatalog_api/metrics"
	"foodcatalog_api/pkg/dbconnect"
	"foodcatalog_api/pkg/dbconnect/postgres"
	"foodcatalog_api/pkg/dbconnect/sqlite"
	"foodcatalog_api/pkg/logger"
	"foodcatalog_api/pkg/progress"
)

func main() {
	skipDiscovery := flag.Bool("skip-discovery", false, "skip the reference discovery pass")
	newOnly := flag.Bool("new-only", false, "import only references with status new or error")
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	runID := uuid.NewString()
	log := logger.NewLogger(os.Stdout, fmt.Sprintf("[import %s]", runID[:8]))

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Criticalf("loading config: %v", err)
		os.Exit(1)
	}

	var connector dbconnect.DbConnector
	switch cfg.Storage.Driver {
	case storage.DriverPostgres:
		connector = postgres.NewPgConnector(cfg.Storage.Postgres)
	case storage.DriverSQLite:
		connector = sqlite.NewSqliteConnector(cfg.Storage.SQLite)
	default:
		log.Criticalf("unknown storage driver %q", cfg.Storage.Driver)
		os.Exit(1)
	}

	db, err := connector.Connect()
	if err != nil {
		log.Criticalf("connecting to %s: %v", cfg.Storage.Driver, err)
		os.Exit(1)
	}
	store := storage.New(db, cfg.Storage.Driver, log)
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A broken schema aborts before either pass touches anything.
	if err := store.InitSchema(ctx); err != nil {
		log.Criticalf("initializing storage: %v", err)
		os.Exit(1)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, metrics.Handler()); err != nil {
				log.Errorf("metrics endpoint: %v", err)
			}
		}()
	}

	sources := []source.Source{
		perekrestok.New(cfg.Perekrestok, log),
	}
	imp := importer.New(sources, store, log)

	if err := run(ctx, imp, log, *skipDiscovery, *newOnly); err != nil {
		reportRunError(log, err)
	}

	log.Log("done")
}

// reportRunError logs an orchestration failure. Cancellation is not a
// failure of the run, only an interruption of it.
func reportRunError(log logger.Logger, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Log("import run interrupted: %v", err)
		return
	}
	log.Criticalf("import run failed: %v", err)
}

func run(ctx context.Context, imp *importer.Importer, log logger.Logger, skipDiscovery, newOnly bool) error {
	if !skipDiscovery {
		log.Log("discovering catalog references")
		if err := imp.DiscoverReferences(ctx, progress.NewLogSink(log, "discovery")); err != nil {
			return err
		}
	}

	log.Log("importing product data")
	return imp.ImportProducts(ctx, progress.NewLogSink(log, "import"), newOnly)
}
