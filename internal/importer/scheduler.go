package importer

// scheduler.go drives periodic imports in serve mode. Each configured stone
// type gets a run immediately on start, then on every tick. A type whose
// previous run is still active is skipped for that tick; the feed is a full
// dump, so a missed tick costs freshness, not data.

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/stonelake/gemfeed/internal/catalog"
)

// StartScheduler runs imports for types every interval until ctx is
// cancelled. Intended to be launched as a goroutine from main.
func (r *Runner) StartScheduler(ctx context.Context, interval time.Duration, types []string) {
	slog.Info("import scheduler started",
		"interval", interval,
		"types", types,
	)

	r.runAll(ctx, types)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("import scheduler stopped")
			return
		case <-ticker.C:
			r.runAll(ctx, types)
		}
	}
}

// runAll executes one run per type, sequentially. Types are independent and
// could run concurrently, but the sequential pass keeps peak memory bounded
// to one decompressed dump at a time.
func (r *Runner) runAll(ctx context.Context, types []string) {
	for _, t := range types {
		if ctx.Err() != nil {
			return
		}

		_, err := r.Run(ctx, catalog.StoneType(t))
		switch {
		case err == nil:
		case errors.Is(err, catalog.ErrRunActive):
			slog.Debug("scheduled run skipped, already active", "type", t)
		default:
			slog.Error("scheduled run failed", "type", t, "error", err)
		}
	}
}
