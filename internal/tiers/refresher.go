package tiers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sl "redirect_service/internal/lib/logger/sl"
	"redirect_service/internal/models"

	"golang.org/x/sync/errgroup"
)

type TierLister interface {
	SubscriptionTiers(ctx context.Context) ([]models.TierRow, error)
}

type PriceLookup interface {
	PlanAmount(ctx context.Context, plan string) (int64, error)
}

type Refresher struct {
	log         *slog.Logger
	cache       *Cache
	lister      TierLister
	prices      PriceLookup
	interval    time.Duration
	concurrency int
	trigger     chan struct{}
}

func NewRefresher(
	log *slog.Logger,
	cache *Cache,
	lister TierLister,
	prices PriceLookup,
	interval time.Duration,
	concurrency int,
) *Refresher {
	if concurrency < 1 {
		concurrency = 1
	}

	return &Refresher{
		log:         log,
		cache:       cache,
		lister:      lister,
		prices:      prices,
		interval:    interval,
		concurrency: concurrency,
		trigger:     make(chan struct{}, 1),
	}
}

// Trigger asks Run for an extra refresh. Requests made while one is already
// pending are coalesced.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes once, then on every tick and Trigger until ctx is done.
// A zero interval disables the ticker. A panicking refresh is logged and the
// loop carries on with the previous snapshot.
func (r *Refresher) Run(ctx context.Context) {
	const op = "tiers.Refresher.Run"

	log := r.log.With(slog.String("op", op))

	r.safeRefresh(ctx, log)

	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("tier refresher stopped")
			return
		case <-tick:
		case <-r.trigger:
			log.Info("tier refresh requested")
		}

		r.safeRefresh(ctx, log)
	}
}

func (r *Refresher) safeRefresh(ctx context.Context, log *slog.Logger) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("tier refresh panicked", slog.Any("panic", p))
		}
	}()

	if err := r.Refresh(ctx); err != nil {
		log.Error("tier refresh failed", sl.Err(err))
	}
}

// Refresh rebuilds the snapshot. A failure to list the tiers or a ctx that is
// done before the lookups finish is returned and the previous snapshot stays
// in place. A tier whose price lookup fails is published with a nil price.
func (r *Refresher) Refresh(ctx context.Context) error {
	const op = "tiers.Refresher.Refresh"

	log := r.log.With(slog.String("op", op))

	rows, err := r.lister.SubscriptionTiers(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	list := make([]Tier, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, row := range rows {
		list[i] = Tier{
			ID:         row.ID,
			Name:       row.Name,
			VisitLimit: row.VisitLimit,
		}

		if row.ID == FreeTierID {
			var zero int64
			list[i].MonthlyPrice = &zero
			continue
		}

		if row.StripePlan == nil || *row.StripePlan == "" {
			continue
		}

		plan := *row.StripePlan
		list[i].StripePlan = plan

		i := i // per-iteration copy (go directive < 1.22)
		g.Go(func() error {
			amount, err := r.prices.PlanAmount(gctx, plan)
			if err != nil {
				log.Warn("failed to price tier",
					slog.Int("tier_id", int(list[i].ID)),
					slog.String("plan", plan),
					sl.Err(err),
				)

				return nil
			}

			list[i].MonthlyPrice = &amount

			return nil
		})
	}

	// lookups never return errors, so Wait only joins them
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.cache.Replace(list)

	log.Debug("tier cache refreshed", slog.Int("tiers", len(list)))

	return nil
}
