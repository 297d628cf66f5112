// Package scheduler runs the periodic catalog sweep that physically removes
// rows past their freshness window. Reads never see expired rows, so the
// sweep only reclaims space; its cadence does not affect correctness.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"onstream/internal/middleware"
	"onstream/internal/observability"
	"onstream/internal/repository"
)

// Sweeper owns the cron loop for expired-row cleanup.
type Sweeper struct {
	cron *cron.Cron
	repo *repository.CatalogRepository
}

func NewSweeper(repo *repository.CatalogRepository) *Sweeper {
	return &Sweeper{
		cron: cron.New(),
		repo: repo,
	}
}

// Start registers the sweep on the given cron schedule and starts the loop.
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	middleware.Logger.Info("sweep scheduled", slog.String("schedule", schedule))
	return nil
}

// RunOnce performs a single sweep pass.
func (s *Sweeper) RunOnce(ctx context.Context) {
	items, bundles, err := s.repo.SweepExpired(ctx)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "sweep failed", slog.String("error", err.Error()))
		return
	}

	observability.SweepDeletedRows.WithLabelValues("catalog_items").Add(float64(items))
	observability.SweepDeletedRows.WithLabelValues("stream_bundles").Add(float64(bundles))

	if items > 0 || bundles > 0 {
		middleware.Logger.InfoContext(ctx, "sweep completed",
			slog.Int64("items_deleted", items),
			slog.Int64("bundles_deleted", bundles))
	}
}

// Stop halts the cron loop, waiting for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
