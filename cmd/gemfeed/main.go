// gemfeed imports supplier gemstone feeds into the priced catalog.
//
// Usage:
//   gemfeed run [--type natural] [--type lab]
//   gemfeed serve
//
// `run` executes one import per type and exits; `serve` starts the HTTP API
// with the periodic scheduler. Configuration comes from the environment
// (optionally via a .env file).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/stonelake/gemfeed/internal/catalog"
	"github.com/stonelake/gemfeed/internal/config"
	"github.com/stonelake/gemfeed/internal/feed"
	"github.com/stonelake/gemfeed/internal/importer"
	"github.com/stonelake/gemfeed/internal/loader"
	"github.com/stonelake/gemfeed/internal/logging"
	"github.com/stonelake/gemfeed/internal/observability"
	"github.com/stonelake/gemfeed/internal/store"
	"github.com/stonelake/gemfeed/internal/web"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "gemfeed",
		Usage:   "supplier gemstone feed importer and catalog API",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "execute one import run per stone type, then exit",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "type",
						Usage: "stone type to import (repeatable; default: configured types)",
					},
				},
				Action: runAction,
			},
			{
				Name:   "serve",
				Usage:  "start the HTTP API and the periodic import scheduler",
				Action: serveAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("gemfeed failed", "error", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, sets up logging, and opens the database
// pool. Every command starts here.
func bootstrap(ctx context.Context) (*config.Config, *store.Store, func(), error) {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	observability.Register()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"feed_timeout", cfg.Feed.Timeout,
		"import_types", cfg.Import.Types,
		"batch_size", cfg.Import.BatchSize,
	)

	pool, err := store.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	return cfg, store.New(pool), pool.Close, nil
}

// newRunner wires the pipeline: fetch, extract, parse, normalize, price, load.
func newRunner(cfg *config.Config, st *store.Store) *importer.Runner {
	fetcher := feed.NewFetcher(cfg.Feed)
	ld := loader.New(st.DB(), cfg.Import.BatchSize)
	return importer.New(st, fetcher, ld, cfg.Import)
}

func runAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, st, closePool, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer closePool()

	names := c.StringSlice("type")
	if len(names) == 0 {
		names = cfg.Import.Types
	}

	types := make([]catalog.StoneType, 0, len(names))
	for _, name := range names {
		t, err := catalog.ParseStoneType(name)
		if err != nil {
			return err
		}
		types = append(types, t)
	}

	runner := newRunner(cfg, st)

	var failed int
	for _, t := range types {
		job, err := runner.Run(ctx, t)
		if err != nil {
			slog.Error("import run failed", "type", t, "error", err)
			failed++
			continue
		}
		slog.Info("import run finished",
			"type", t,
			"job_id", job.ID,
			"status", job.Status,
			"total", job.TotalRecords,
			"created", job.CreatedRecords,
			"updated", job.UpdatedRecords,
			"skipped", job.SkippedRecords,
		)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d import runs failed", failed, len(types))
	}
	return nil
}

func serveAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, st, closePool, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer closePool()

	runner := newRunner(cfg, st)
	server := web.NewServer(st, runner, cfg)

	if cfg.Import.SyncInterval > 0 {
		go runner.StartScheduler(ctx, cfg.Import.SyncInterval, cfg.Import.Types)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
