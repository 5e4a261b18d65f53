// Package dashboard loads dashboard views from the order store and keeps polled feeds of
// them for screens that refresh on a timer.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"karavanCanteen/internal/apperr"
	"karavanCanteen/internal/telemetry"
	"karavanCanteen/internal/visibility"
	"karavanCanteen/models"
	"karavanCanteen/repository"
)

// DefaultPollInterval is how often a Feed refetches when none is configured.
const DefaultPollInterval = 20 * time.Second

// OrderQuerier is the read path dashboards use.
type OrderQuerier interface {
	QueryOrders(ctx context.Context, f repository.OrderFilter) ([]models.Order, error)
	QueryOrderItems(ctx context.Context, f repository.ItemFilter) ([]models.OrderItem, error)
}

type Service struct {
	store OrderQuerier
	log   *slog.Logger
}

func NewService(store OrderQuerier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = telemetry.Discard()
	}
	return &Service{store: store, log: logger.With("component", "dashboard")}
}

// Load returns the orders of view as seen by actor, each with its line items. An empty
// view is an empty slice; a failed query is ErrStoreUnavailable.
func (s *Service) Load(ctx context.Context, view visibility.View, actor models.Actor) ([]models.Order, error) {
	if err := visibility.Authorize(view, actor.Role); err != nil {
		return nil, err
	}
	f, err := visibility.Filter(view, actor.UserID)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.QueryOrders(ctx, f)
	if err != nil {
		s.log.ErrorContext(ctx, "load view failed", "view", view, "err", err)
		return nil, apperr.Store("query orders", err)
	}
	out, err := visibility.Project(orders, view, actor.UserID)
	if err != nil || len(out) == 0 {
		return out, err
	}
	if err := s.attachItems(ctx, out); err != nil {
		s.log.ErrorContext(ctx, "load view items failed", "view", view, "err", err)
		return nil, apperr.Store("query order items", err)
	}
	return out, nil
}

// attachItems loads the lines of orders in one query.
func (s *Service) attachItems(ctx context.Context, orders []models.Order) error {
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := s.store.QueryOrderItems(ctx, repository.ItemFilter{OrderIDs: ids})
	if err != nil {
		return err
	}
	byOrder := make(map[int64][]models.OrderItem, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return nil
}

// Snapshot is one applied fetch of a view.
type Snapshot struct {
	View      visibility.View
	Seq       uint64
	Orders    []models.Order
	FetchedAt time.Time
}

// Loader loads a view for an actor. *Service loads from the store; remote clients
// implement it over the wire.
type Loader interface {
	Load(ctx context.Context, view visibility.View, actor models.Actor) ([]models.Order, error)
}

// Feed polls one view for one actor. Each fetch takes a sequence number when it starts;
// a result is applied only if no later fetch has been applied already, so a slow
// response never overwrites a newer one.
type Feed struct {
	src      Loader
	log      *slog.Logger
	view     visibility.View
	actor    models.Actor
	interval time.Duration
	now      func() time.Time

	// OnUpdate, if set, is called with every applied snapshot.
	OnUpdate func(Snapshot)
	// OnError, if set, is called with every failed fetch during Run.
	OnError func(error)

	mu      sync.Mutex
	issued  uint64
	current Snapshot

	// deliverMu serialises OnUpdate calls.
	deliverMu sync.Mutex
}

func NewFeed(src Loader, view visibility.View, actor models.Actor, interval time.Duration) *Feed {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	log := telemetry.Discard()
	if s, ok := src.(*Service); ok {
		log = s.log
	}
	return &Feed{src: src, log: log, view: view, actor: actor, interval: interval, now: time.Now, current: Snapshot{View: view}}
}

// Current returns the last applied snapshot. Seq is 0 before the first success.
func (f *Feed) Current() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Refresh fetches the view now. It reports whether the result was applied; a result
// older than the current snapshot is dropped. On error the current snapshot is kept.
func (f *Feed) Refresh(ctx context.Context) (Snapshot, bool, error) {
	f.mu.Lock()
	f.issued++
	seq := f.issued
	f.mu.Unlock()

	orders, err := f.src.Load(ctx, f.view, f.actor)
	if err != nil {
		return f.Current(), false, err
	}

	snap := Snapshot{View: f.view, Seq: seq, Orders: orders, FetchedAt: f.now()}
	f.mu.Lock()
	if seq <= f.current.Seq {
		cur := f.current
		f.mu.Unlock()
		f.log.DebugContext(ctx, "dropping stale fetch", "view", f.view, "seq", seq, "applied", cur.Seq)
		return cur, false, nil
	}
	f.current = snap
	f.mu.Unlock()

	f.deliver(ctx, snap)
	return snap, true, nil
}

// deliver hands snap to OnUpdate unless a newer snapshot was applied meanwhile, so the
// last rendered snapshot is always the current one.
func (f *Feed) deliver(ctx context.Context, snap Snapshot) {
	if f.OnUpdate == nil {
		return
	}
	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()
	if cur := f.Current(); cur.Seq != snap.Seq {
		f.log.DebugContext(ctx, "skipping superseded update", "view", f.view, "seq", snap.Seq, "applied", cur.Seq)
		return
	}
	f.OnUpdate(snap)
}

// Run refreshes immediately and then on every tick until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		if _, _, err := f.Refresh(ctx); err != nil && ctx.Err() == nil {
			f.log.WarnContext(ctx, "feed refresh failed", "view", f.view, "err", err)
			if f.OnError != nil {
				f.OnError(err)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
