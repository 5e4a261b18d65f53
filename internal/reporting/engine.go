// Package reporting builds sales and menu reports from the order store. Reports are
// recomputed from source rows on every call; nothing is cached.
package reporting

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"karavanCanteen/internal/apperr"
	"karavanCanteen/internal/telemetry"
	"karavanCanteen/models"
	"karavanCanteen/repository"

	"github.com/shopspring/decimal"
)

const (
	dailyTopItems   = 10
	weeklyTopItems  = 10
	monthlyTopItems = 15
	menuTopItems    = 10
	menuLowItems    = 5
)

// Source is the order read path reports use.
type Source interface {
	QueryOrders(ctx context.Context, f repository.OrderFilter) ([]models.Order, error)
	QueryOrderItems(ctx context.Context, f repository.ItemFilter) ([]models.OrderItem, error)
}

// Catalog resolves the current category of menu items.
type Catalog interface {
	CategoriesFor(ctx context.Context, ids []int64) (map[int64]string, error)
}

type Engine struct {
	orders  Source
	catalog Catalog
	loc     *time.Location
	log     *slog.Logger
}

// NewEngine builds a report engine. Calendar boundaries are taken in loc (UTC if nil).
func NewEngine(orders Source, catalog Catalog, loc *time.Location, logger *slog.Logger) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = telemetry.Discard()
	}
	return &Engine{orders: orders, catalog: catalog, loc: loc, log: logger.With("component", "reporting")}
}

// Location is the zone calendar periods are resolved in.
func (e *Engine) Location() *time.Location { return e.loc }

// window is everything fetched for one period.
type window struct {
	orders []models.Order     // all statuses
	items  []models.OrderItem // delivered orders only
	cats   map[int64]string
}

func (e *Engine) fetch(ctx context.Context, p models.Period) (*window, error) {
	orders, err := e.orders.QueryOrders(ctx, repository.OrderFilter{From: &p.Start, To: &p.End, Sort: repository.SortAsc})
	if err != nil {
		return nil, e.fail(ctx, "query orders", err)
	}
	items, err := e.orders.QueryOrderItems(ctx, repository.ItemFilter{
		From: &p.Start, To: &p.End, StatusIn: []models.OrderStatus{models.OrderStatusDelivered},
	})
	if err != nil {
		return nil, e.fail(ctx, "query order items", err)
	}
	cats, err := e.catalog.CategoriesFor(ctx, menuItemIDs(items))
	if err != nil {
		return nil, e.fail(ctx, "lookup categories", err)
	}
	return &window{orders: orders, items: items, cats: cats}, nil
}

func (e *Engine) previousRevenue(ctx context.Context, p models.Period) (decimal.Decimal, error) {
	orders, err := e.orders.QueryOrders(ctx, repository.OrderFilter{
		StatusIn: []models.OrderStatus{models.OrderStatusDelivered}, From: &p.Start, To: &p.End, Sort: repository.SortAsc,
	})
	if err != nil {
		return decimal.Zero, e.fail(ctx, "query previous orders", err)
	}
	return deliveredRevenue(orders), nil
}

func (e *Engine) fail(ctx context.Context, op string, err error) error {
	e.log.ErrorContext(ctx, "report fetch failed", "op", op, "err", err)
	return apperr.Store(op, err)
}

// DailySalesReport covers the calendar day containing date.
func (e *Engine) DailySalesReport(ctx context.Context, date time.Time) (*models.DailySalesReport, error) {
	cur, _, err := ResolvePeriod(date, models.PeriodDaily, e.loc)
	if err != nil {
		return nil, err
	}
	w, err := e.fetch(ctx, cur)
	if err != nil {
		return nil, err
	}
	summary := summarize(w.orders)
	return &models.DailySalesReport{
		Date:             cur.Start.Format("2006-01-02"),
		Period:           cur,
		Summary:          summary,
		CancellationRate: percent(decimal.NewFromInt(int64(summary.CancelledOrders)), decimal.NewFromInt(int64(summary.TotalOrders))),
		PopularItems:     top(rankItems(w.items), dailyTopItems),
		Categories:       categoryPerformance(w.items, w.cats),
		HourlyBreakdown:  hourlyBuckets(cur, e.loc, w.orders),
	}, nil
}

// WeeklySalesReport covers the ISO week containing date and compares it with the week before.
func (e *Engine) WeeklySalesReport(ctx context.Context, date time.Time) (*models.WeeklySalesReport, error) {
	cur, prev, err := ResolvePeriod(date, models.PeriodWeekly, e.loc)
	if err != nil {
		return nil, err
	}
	w, err := e.fetch(ctx, cur)
	if err != nil {
		return nil, err
	}
	prevRevenue, err := e.previousRevenue(ctx, prev)
	if err != nil {
		return nil, err
	}
	summary := summarize(w.orders)
	return &models.WeeklySalesReport{
		Period:           cur,
		PreviousPeriod:   prev,
		Summary:          summary,
		PreviousRevenue:  prevRevenue,
		GrowthPercentage: growth(summary.TotalRevenue, prevRevenue),
		PopularItems:     top(rankItems(w.items), weeklyTopItems),
		Categories:       categoryPerformance(w.items, w.cats),
		DailyBreakdown:   dailyBuckets(cur, w.orders),
	}, nil
}

// MonthlySalesReport covers the calendar month containing date and compares it with the
// previous calendar month.
func (e *Engine) MonthlySalesReport(ctx context.Context, date time.Time) (*models.MonthlySalesReport, error) {
	cur, prev, err := ResolvePeriod(date, models.PeriodMonthly, e.loc)
	if err != nil {
		return nil, err
	}
	w, err := e.fetch(ctx, cur)
	if err != nil {
		return nil, err
	}
	prevRevenue, err := e.previousRevenue(ctx, prev)
	if err != nil {
		return nil, err
	}
	summary := summarize(w.orders)
	return &models.MonthlySalesReport{
		Month:            cur.Start.Format("2006-01"),
		Period:           cur,
		PreviousPeriod:   prev,
		Summary:          summary,
		PreviousRevenue:  prevRevenue,
		GrowthPercentage: growth(summary.TotalRevenue, prevRevenue),
		PopularItems:     top(rankItems(w.items), monthlyTopItems),
		Categories:       categoryPerformance(w.items, w.cats),
		WeeklyBreakdown:  weekOfMonthBuckets(cur, w.orders),
	}, nil
}

// MenuPerformanceReport ranks items and categories sold in [start, end).
func (e *Engine) MenuPerformanceReport(ctx context.Context, start, end time.Time) (*models.MenuPerformanceReport, error) {
	if !end.After(start) {
		return nil, apperr.Validation("report range end must be after start")
	}
	p := models.Period{Start: start.In(e.loc), End: end.In(e.loc)}
	w, err := e.fetch(ctx, p)
	if err != nil {
		return nil, err
	}
	ranked := rankItems(w.items)
	perf := categoryPerformance(w.items, w.cats)

	rep := &models.MenuPerformanceReport{
		Period:            p,
		TotalRevenue:      decimal.Zero,
		TopItems:          top(ranked, menuTopItems),
		LowPerforming:     bottom(ranked, menuLowItems),
		Categories:        perf,
		RevenueByCategory: categoryShares(perf),
	}
	for _, it := range w.items {
		rep.TotalRevenue = rep.TotalRevenue.Add(it.TotalPrice)
		rep.TotalItemsSold += it.Quantity
	}
	rep.TotalRevenue = round(rep.TotalRevenue)
	return rep, nil
}

func menuItemIDs(items []models.OrderItem) []int64 {
	seen := map[int64]struct{}{}
	var out []int64
	for _, it := range items {
		if _, ok := seen[it.MenuItemID]; ok {
			continue
		}
		seen[it.MenuItemID] = struct{}{}
		out = append(out, it.MenuItemID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
