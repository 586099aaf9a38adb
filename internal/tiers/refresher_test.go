package tiers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"redirect_service/internal/lib/logger/handlers/slogdiscard"
	"redirect_service/internal/models"
)

type mockLister struct {
	SubscriptionTiersFunc func(ctx context.Context) ([]models.TierRow, error)
}

func (m *mockLister) SubscriptionTiers(ctx context.Context) ([]models.TierRow, error) {
	return m.SubscriptionTiersFunc(ctx)
}

type mockPrices struct {
	PlanAmountFunc func(ctx context.Context, plan string) (int64, error)

	mu    sync.Mutex
	plans []string
}

func (m *mockPrices) PlanAmount(ctx context.Context, plan string) (int64, error) {
	m.mu.Lock()
	m.plans = append(m.plans, plan)
	m.mu.Unlock()

	return m.PlanAmountFunc(ctx, plan)
}

func ptr[T any](v T) *T { return &v }

func rows() []models.TierRow {
	return []models.TierRow{
		{ID: 0, Name: "Free", VisitLimit: ptr(int32(1000))},
		{ID: 1, Name: "Basic", StripePlan: ptr("plan_basic"), VisitLimit: ptr(int32(10000))},
		{ID: 2, Name: "Pro", StripePlan: ptr("plan_pro")},
		{ID: 3, Name: "Legacy"},
	}
}

func TestRefreshFailedLookupLeavesNilPrice(t *testing.T) {
	cache := NewCache()
	prices := &mockPrices{PlanAmountFunc: func(_ context.Context, plan string) (int64, error) {
		if plan == "plan_pro" {
			return 0, errors.New("provider unavailable")
		}
		return 500, nil
	}}
	r := NewRefresher(slogdiscard.NewDiscardLogger(), cache,
		&mockLister{SubscriptionTiersFunc: func(context.Context) ([]models.TierRow, error) { return rows(), nil }},
		prices, 0, 4)

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := cache.Snapshot()
	if len(got) != 4 {
		t.Fatalf("snapshot has %d tiers, want 4", len(got))
	}

	want := map[int32]*int64{0: ptr(int64(0)), 1: ptr(int64(500)), 2: nil, 3: nil}
	for _, tier := range got {
		w := want[tier.ID]
		switch {
		case w == nil && tier.MonthlyPrice != nil:
			t.Errorf("tier %d price = %d, want nil", tier.ID, *tier.MonthlyPrice)
		case w != nil && (tier.MonthlyPrice == nil || *tier.MonthlyPrice != *w):
			t.Errorf("tier %d price = %v, want %d", tier.ID, tier.MonthlyPrice, *w)
		}
	}

	if len(prices.plans) != 2 {
		t.Errorf("price lookups = %v, want one per tier with a plan", prices.plans)
	}
	if basic, _ := cache.Get(1); basic.StripePlan != "plan_basic" {
		t.Errorf("tier 1 plan = %q", basic.StripePlan)
	}
}

func TestRefreshListFailureKeepsSnapshot(t *testing.T) {
	cache := NewCache()
	previous := []Tier{{ID: 0, Name: "Free"}}
	cache.Replace(previous)

	listErr := errors.New("database down")
	r := NewRefresher(slogdiscard.NewDiscardLogger(), cache,
		&mockLister{SubscriptionTiersFunc: func(context.Context) ([]models.TierRow, error) { return nil, listErr }},
		&mockPrices{}, 0, 4)

	if err := r.Refresh(context.Background()); !errors.Is(err, listErr) {
		t.Fatalf("expected list error, got %v", err)
	}

	got := cache.Snapshot()
	if len(got) != 1 || got[0].Name != "Free" {
		t.Fatalf("snapshot changed: %+v", got)
	}
}

func TestRefreshCancelledKeepsSnapshot(t *testing.T) {
	cache := NewCache()
	cache.Replace([]Tier{{ID: 1, Name: "Basic", MonthlyPrice: ptr(int64(500))}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prices := &mockPrices{PlanAmountFunc: func(ctx context.Context, _ string) (int64, error) {
		cancel()
		return 0, ctx.Err()
	}}
	r := NewRefresher(slogdiscard.NewDiscardLogger(), cache,
		&mockLister{SubscriptionTiersFunc: func(context.Context) ([]models.TierRow, error) { return rows(), nil }},
		prices, 0, 1)

	if err := r.Refresh(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	got, ok := cache.Get(1)
	if !ok || got.MonthlyPrice == nil || *got.MonthlyPrice != 500 {
		t.Fatalf("snapshot changed: %+v", cache.Snapshot())
	}
	if len(cache.Snapshot()) != 1 {
		t.Fatalf("snapshot has %d tiers, want 1", len(cache.Snapshot()))
	}
}

func TestRefreshLookupsRunConcurrently(t *testing.T) {
	const n = 3

	var (
		inFlight atomic.Int32
		peak     atomic.Int32
		release  = make(chan struct{})
	)

	prices := &mockPrices{PlanAmountFunc: func(ctx context.Context, _ string) (int64, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		if cur == n {
			close(release)
		}
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		return 100, nil
	}}

	list := make([]models.TierRow, 0, n)
	for i := 1; i <= n; i++ {
		list = append(list, models.TierRow{ID: int32(i), StripePlan: ptr("plan")})
	}

	cache := NewCache()
	r := NewRefresher(slogdiscard.NewDiscardLogger(), cache,
		&mockLister{SubscriptionTiersFunc: func(context.Context) ([]models.TierRow, error) { return list, nil }},
		prices, 0, n)

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	if peak.Load() != n {
		t.Fatalf("peak concurrent lookups = %d, want %d", peak.Load(), n)
	}
	if len(cache.Snapshot()) != n {
		t.Fatalf("snapshot has %d tiers", len(cache.Snapshot()))
	}
}

func TestCacheEmptyBeforeFirstRefresh(t *testing.T) {
	cache := NewCache()

	if got := cache.Snapshot(); got == nil || len(got) != 0 {
		t.Fatalf("Snapshot() = %#v, want empty non-nil slice", got)
	}
	if _, ok := cache.Get(0); ok {
		t.Fatal("Get found a tier in an empty cache")
	}
}

func TestRunRefreshesOnTrigger(t *testing.T) {
	var calls atomic.Int32
	refreshed := make(chan struct{}, 4)

	lister := &mockLister{SubscriptionTiersFunc: func(context.Context) ([]models.TierRow, error) {
		calls.Add(1)
		refreshed <- struct{}{}
		return []models.TierRow{{ID: 0, Name: "Free"}}, nil
	}}
	r := NewRefresher(slogdiscard.NewDiscardLogger(), NewCache(), lister, &mockPrices{}, 0, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	wait := func() {
		select {
		case <-refreshed:
		case <-time.After(2 * time.Second):
			t.Fatal("refresh did not happen")
		}
	}

	wait()
	r.Trigger()
	wait()

	cancel()
	<-done

	if calls.Load() != 2 {
		t.Fatalf("refreshes = %d, want 2", calls.Load())
	}
}

func TestRunSurvivesPanickingRefresh(t *testing.T) {
	var calls atomic.Int32
	refreshed := make(chan struct{}, 4)

	lister := &mockLister{SubscriptionTiersFunc: func(context.Context) ([]models.TierRow, error) {
		n := calls.Add(1)
		refreshed <- struct{}{}
		if n == 1 {
			panic("bad row")
		}
		return []models.TierRow{{ID: 0, Name: "Free"}}, nil
	}}
	cache := NewCache()
	r := NewRefresher(slogdiscard.NewDiscardLogger(), cache, lister, &mockPrices{}, 0, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	wait := func() {
		select {
		case <-refreshed:
		case <-time.After(2 * time.Second):
			t.Fatal("refresh did not happen")
		}
	}

	wait()
	r.Trigger()
	wait()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := cache.Get(0); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot after recovered panic = %+v", cache.Snapshot())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	<-done
}
