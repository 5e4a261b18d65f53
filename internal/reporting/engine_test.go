package reporting

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"karavanCanteen/internal/apperr"
	"karavanCanteen/internal/db"
	"karavanCanteen/internal/testutil"
	"karavanCanteen/models"
	"karavanCanteen/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource answers queries from in-memory rows with the same filter semantics as the
// SQL store.
type fakeSource struct {
	orders []models.Order
	items  []models.OrderItem
	cats   map[int64]string
	calls  int

	ordersErr, itemsErr, catsErr error
}

func (f *fakeSource) QueryOrders(_ context.Context, flt repository.OrderFilter) ([]models.Order, error) {
	f.calls++
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	out := []models.Order{}
	for _, o := range f.orders {
		if matches(o, flt.StatusIn, flt.From, flt.To) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeSource) QueryOrderItems(_ context.Context, flt repository.ItemFilter) ([]models.OrderItem, error) {
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	byID := map[int64]models.Order{}
	for _, o := range f.orders {
		byID[o.ID] = o
	}
	out := []models.OrderItem{}
	for _, it := range f.items {
		if matches(byID[it.OrderID], flt.StatusIn, flt.From, flt.To) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeSource) CategoriesFor(_ context.Context, ids []int64) (map[int64]string, error) {
	if f.catsErr != nil {
		return nil, f.catsErr
	}
	out := map[int64]string{}
	for _, id := range ids {
		if c, ok := f.cats[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func matches(o models.Order, statuses []models.OrderStatus, from, to *time.Time) bool {
	if from != nil && o.CreatedAt.Before(*from) {
		return false
	}
	if to != nil && !o.CreatedAt.Before(*to) {
		return false
	}
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == o.Status {
			return true
		}
	}
	return false
}

func (f *fakeSource) addOrder(status models.OrderStatus, total string, at time.Time, lines ...models.OrderItem) int64 {
	id := int64(len(f.orders) + 1)
	f.orders = append(f.orders, models.Order{ID: id, Status: status, TotalAmount: decimal.RequireFromString(total), CreatedAt: at})
	for _, l := range lines {
		l.OrderID = id
		f.items = append(f.items, l)
	}
	return id
}

func line(menuID int64, name string, qty int, unit string) models.OrderItem {
	u := decimal.RequireFromString(unit)
	return models.OrderItem{MenuItemID: menuID, ItemName: name, Quantity: qty, UnitPrice: u, TotalPrice: u.Mul(decimal.NewFromInt(int64(qty)))}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msg ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s got %s %v", want, got, msg)
}

var day = time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)

func TestDailySalesReportScenario(t *testing.T) {
	src := &fakeSource{}
	src.addOrder(models.OrderStatusDelivered, "100", day.Add(9*time.Hour))
	src.addOrder(models.OrderStatusDelivered, "200", day.Add(9*time.Hour+30*time.Minute))
	src.addOrder(models.OrderStatusDelivered, "300", day.Add(13*time.Hour))
	src.addOrder(models.OrderStatusCancelled, "500", day.Add(10*time.Hour))
	// Outside the day.
	src.addOrder(models.OrderStatusDelivered, "999", day.Add(-time.Minute))
	src.addOrder(models.OrderStatusDelivered, "999", day.Add(24*time.Hour))

	rep, err := NewEngine(src, src, time.UTC, nil).DailySalesReport(context.Background(), day.Add(15*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "2024-03-06", rep.Date)
	assertDec(t, "600", rep.Summary.TotalRevenue)
	assert.Equal(t, 4, rep.Summary.TotalOrders)
	assert.Equal(t, 3, rep.Summary.DeliveredOrders)
	assert.Equal(t, 1, rep.Summary.CancelledOrders)
	assertDec(t, "200", rep.Summary.AverageOrderValue)
	assertDec(t, "25", rep.CancellationRate)

	require.Len(t, rep.HourlyBreakdown, 24)
	assert.Equal(t, "09", rep.HourlyBreakdown[9].Label)
	assert.Equal(t, 2, rep.HourlyBreakdown[9].Orders)
	assertDec(t, "300", rep.HourlyBreakdown[9].Revenue)
	assert.Equal(t, 0, rep.HourlyBreakdown[10].Orders, "cancelled orders never enter trend buckets")
	assert.Equal(t, 1, rep.HourlyBreakdown[13].Orders)
}

func TestReportsNeverDivideByZero(t *testing.T) {
	src := &fakeSource{}
	src.addOrder(models.OrderStatusCancelled, "80", day.Add(time.Hour))
	e := NewEngine(src, src, time.UTC, nil)

	daily, err := e.DailySalesReport(context.Background(), day)
	require.NoError(t, err)
	assertDec(t, "0", daily.Summary.AverageOrderValue)
	assertDec(t, "0", daily.Summary.TotalRevenue)

	weekly, err := e.WeeklySalesReport(context.Background(), day)
	require.NoError(t, err)
	assertDec(t, "0", weekly.GrowthPercentage)

	empty, err := NewEngine(&fakeSource{}, &fakeSource{}, time.UTC, nil).DailySalesReport(context.Background(), day)
	require.NoError(t, err)
	assertDec(t, "0", empty.CancellationRate)
	assert.NotNil(t, empty.PopularItems)
	assert.Empty(t, empty.PopularItems)
}

func TestWeeklySalesReportGrowthAndDays(t *testing.T) {
	src := &fakeSource{}
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	src.addOrder(models.OrderStatusDelivered, "100", monday.Add(-3*24*time.Hour)) // previous week
	src.addOrder(models.OrderStatusCancelled, "400", monday.Add(-2*24*time.Hour)) // previous week, not revenue
	src.addOrder(models.OrderStatusDelivered, "90", monday.Add(12*time.Hour))
	src.addOrder(models.OrderStatusDelivered, "60", monday.Add(6*24*time.Hour+23*time.Hour)) // Sunday night

	rep, err := NewEngine(src, src, time.UTC, nil).WeeklySalesReport(context.Background(), day)
	require.NoError(t, err)

	assertDec(t, "150", rep.Summary.TotalRevenue)
	assertDec(t, "100", rep.PreviousRevenue)
	assertDec(t, "50", rep.GrowthPercentage)
	require.Len(t, rep.DailyBreakdown, 7)
	assert.Equal(t, "2024-03-04", rep.DailyBreakdown[0].Label)
	assert.Equal(t, 1, rep.DailyBreakdown[0].Orders)
	assert.Equal(t, "2024-03-10", rep.DailyBreakdown[6].Label)
	assertDec(t, "60", rep.DailyBreakdown[6].Revenue)
}

func TestGrowthRounding(t *testing.T) {
	assertDec(t, "-33.33", growth(dec("200"), dec("300")))
	assertDec(t, "0", growth(dec("200"), decimal.Zero))
	assertDec(t, "66.67", ratio(dec("200"), dec("3")))
}

func TestMonthlySalesReportWeekBuckets(t *testing.T) {
	src := &fakeSource{}
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	src.addOrder(models.OrderStatusDelivered, "10", feb.AddDate(0, 0, 7))  // Feb 8 -> week 2
	src.addOrder(models.OrderStatusDelivered, "20", feb.AddDate(0, 0, 28)) // Feb 29 -> week 5
	src.addOrder(models.OrderStatusDelivered, "40", feb.AddDate(0, -1, 3)) // January

	rep, err := NewEngine(src, src, time.UTC, nil).MonthlySalesReport(context.Background(), feb.AddDate(0, 0, 14))
	require.NoError(t, err)

	assert.Equal(t, "2024-02", rep.Month)
	require.Len(t, rep.WeeklyBreakdown, 5)
	assert.Equal(t, "Week 2", rep.WeeklyBreakdown[1].Label)
	assert.Equal(t, 1, rep.WeeklyBreakdown[1].Orders)
	assert.Equal(t, 1, rep.WeeklyBreakdown[4].Orders)
	assertDec(t, "30", rep.Summary.TotalRevenue)
	assertDec(t, "40", rep.PreviousRevenue)
	assertDec(t, "-25", rep.GrowthPercentage)

	// February 2023 has exactly four weeks.
	buckets := weekOfMonthBuckets(models.Period{Start: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)}, nil)
	assert.Len(t, buckets, 4)
}

func TestPopularItemsRankingAndLimits(t *testing.T) {
	src := &fakeSource{}
	at := day.Add(12 * time.Hour)
	for i := 0; i < 16; i++ {
		src.addOrder(models.OrderStatusDelivered, "1", at, line(int64(100+i), fmt.Sprintf("item-%02d", i), 1, "1"))
	}
	// Ties on quantity are broken by revenue, then by name.
	src.addOrder(models.OrderStatusDelivered, "16", at, line(1, "Soup", 2, "5"), line(2, "Bread", 3, "2"))
	src.addOrder(models.OrderStatusDelivered, "5", at, line(1, "Soup", 1, "5"))
	// Items of cancelled orders never count.
	src.addOrder(models.OrderStatusCancelled, "500", at, line(3, "Cake", 50, "10"))

	e := NewEngine(src, src, time.UTC, nil)
	daily, err := e.DailySalesReport(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, daily.PopularItems, 10)
	assert.Equal(t, "Soup", daily.PopularItems[0].ItemName)
	assert.Equal(t, 3, daily.PopularItems[0].QuantitySold)
	assert.Equal(t, 2, daily.PopularItems[0].OrderCount)
	assertDec(t, "15", daily.PopularItems[0].Revenue)
	assert.Equal(t, "Bread", daily.PopularItems[1].ItemName)
	assert.Equal(t, "item-00", daily.PopularItems[2].ItemName)
	for _, it := range daily.PopularItems {
		assert.NotEqual(t, "Cake", it.ItemName)
	}

	monthly, err := e.MonthlySalesReport(context.Background(), day)
	require.NoError(t, err)
	assert.Len(t, monthly.PopularItems, 15)
}

func TestCategoryPerformanceUsesCurrentCatalog(t *testing.T) {
	src := &fakeSource{cats: map[int64]string{1: "mains", 2: "drinks"}}
	at := day.Add(12 * time.Hour)
	src.addOrder(models.OrderStatusDelivered, "23", at, line(1, "Soup", 2, "7.50"), line(2, "Tea", 4, "2"))
	src.addOrder(models.OrderStatusDelivered, "7.5", at, line(1, "Soup", 1, "7.50"))
	src.addOrder(models.OrderStatusDelivered, "3", at, line(77, "Retired special", 1, "3"))

	rep, err := NewEngine(src, src, time.UTC, nil).DailySalesReport(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, rep.Categories, 3)

	mains := rep.Categories[0]
	assert.Equal(t, "mains", mains.Category)
	assertDec(t, "22.5", mains.Revenue)
	assert.Equal(t, 2, mains.OrderCount)
	assert.Equal(t, 3, mains.ItemCount)
	assertDec(t, "7.5", mains.AveragePrice)

	assert.Equal(t, "drinks", rep.Categories[1].Category)
	assert.Equal(t, models.UncategorizedCategory, rep.Categories[2].Category)

	// Re-categorising a menu item changes historical reports.
	src.cats[2] = "hot drinks"
	again, err := NewEngine(src, src, time.UTC, nil).DailySalesReport(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, "hot drinks", again.Categories[1].Category)
}

func TestMenuPerformanceReport(t *testing.T) {
	src := &fakeSource{cats: map[int64]string{1: "mains", 2: "drinks", 3: "desserts"}}
	at := day.Add(12 * time.Hour)
	src.addOrder(models.OrderStatusDelivered, "80", at, line(1, "Curry", 5, "10"), line(2, "Tea", 10, "2"), line(3, "Cake", 2, "5"))
	src.addOrder(models.OrderStatusPreparing, "50", at, line(1, "Curry", 5, "10"))

	rep, err := NewEngine(src, src, time.UTC, nil).MenuPerformanceReport(context.Background(), day, day.AddDate(0, 0, 7))
	require.NoError(t, err)

	assertDec(t, "80", rep.TotalRevenue)
	assert.Equal(t, 17, rep.TotalItemsSold)
	require.Len(t, rep.TopItems, 3)
	assert.Equal(t, "Tea", rep.TopItems[0].ItemName)
	require.Len(t, rep.LowPerforming, 3)
	assert.Equal(t, "Cake", rep.LowPerforming[0].ItemName)

	require.Len(t, rep.RevenueByCategory, 3)
	shares := map[string]string{}
	for _, s := range rep.RevenueByCategory {
		shares[s.Category] = s.Percentage.String()
	}
	assert.Equal(t, map[string]string{"mains": "62.5", "drinks": "25", "desserts": "12.5"}, shares)

	empty, err := NewEngine(&fakeSource{}, &fakeSource{}, time.UTC, nil).MenuPerformanceReport(context.Background(), day, day.Add(time.Hour))
	require.NoError(t, err)
	assertDec(t, "0", empty.TotalRevenue)
	assert.Empty(t, empty.RevenueByCategory)

	_, err = NewEngine(src, src, time.UTC, nil).MenuPerformanceReport(context.Background(), day, day)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCategorySharesZeroTotal(t *testing.T) {
	shares := categoryShares([]models.CategoryPerformance{{Category: "mains", Revenue: decimal.Zero}})
	require.Len(t, shares, 1)
	assertDec(t, "0", shares[0].Percentage)
}

func TestLowPerformingTakesBottomFive(t *testing.T) {
	src := &fakeSource{}
	at := day.Add(12 * time.Hour)
	for i := 1; i <= 8; i++ {
		src.addOrder(models.OrderStatusDelivered, "1", at, line(int64(i), fmt.Sprintf("item-%d", i), i, "1"))
	}
	rep, err := NewEngine(src, src, time.UTC, nil).MenuPerformanceReport(context.Background(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, rep.LowPerforming, 5)
	for i, it := range rep.LowPerforming {
		assert.Equal(t, i+1, it.QuantitySold)
	}
	assert.Equal(t, 8, rep.TopItems[0].QuantitySold)
}

func TestFetchFailureAbortsReport(t *testing.T) {
	boom := errors.New("store offline")
	tests := []struct {
		name string
		set  func(f *fakeSource)
	}{
		{"orders", func(f *fakeSource) { f.ordersErr = boom }},
		{"items", func(f *fakeSource) { f.itemsErr = boom }},
		{"categories", func(f *fakeSource) { f.catsErr = boom }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{}
			src.addOrder(models.OrderStatusDelivered, "10", day.Add(time.Hour), line(1, "Tea", 1, "10"))
			tt.set(src)
			e := NewEngine(src, src, time.UTC, nil)

			daily, err := e.DailySalesReport(context.Background(), day)
			assert.Nil(t, daily)
			assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
			assert.ErrorIs(t, err, boom)

			menu, err := e.MenuPerformanceReport(context.Background(), day, day.AddDate(0, 0, 1))
			assert.Nil(t, menu)
			assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
		})
	}
}

func TestReportsAreIdempotentAndUncached(t *testing.T) {
	src := &fakeSource{cats: map[int64]string{1: "mains"}}
	src.addOrder(models.OrderStatusDelivered, "12.34", day.Add(8*time.Hour), line(1, "Soup", 2, "6.17"))
	e := NewEngine(src, src, time.UTC, nil)

	first, err := e.DailySalesReport(context.Background(), day)
	require.NoError(t, err)
	callsAfterFirst := src.calls
	second, err := e.DailySalesReport(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Greater(t, src.calls, callsAfterFirst, "every call re-reads the store")
}

func TestDailySalesReportAgainstSQLite(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "reporting_sqlite")
	uid := testutil.SeedUser(t, d, "teacher", models.RoleTeacher)
	soup := testutil.SeedMenuItem(t, d, "Soup", "100", "mains")

	clock := day.Add(9 * time.Hour)
	orders := repository.NewOrderRepository(d, db.SQLite).WithClock(func() time.Time { return clock })
	menu := repository.NewMenuRepository(d, db.SQLite)
	ctx := context.Background()

	place := func(number string, qty int, final models.OrderStatus) {
		clock = clock.Add(time.Hour)
		items := []models.OrderItem{models.NewOrderItem(soup, qty)}
		o, err := orders.CreateWithItems(ctx, &models.Order{
			OrderNumber: number, UserID: uid, TotalAmount: models.SumLineTotals(items),
			DeliveryLocation: "Lab", PaymentMethod: models.PaymentCash,
		}, items)
		require.NoError(t, err)
		_, err = d.Exec(`UPDATE orders SET status = ? WHERE id = ?`, string(final), o.ID)
		require.NoError(t, err)
	}
	place("R-1", 1, models.OrderStatusDelivered)
	place("R-2", 2, models.OrderStatusDelivered)
	place("R-3", 3, models.OrderStatusDelivered)
	place("R-4", 5, models.OrderStatusCancelled)

	rep, err := NewEngine(orders, menu, time.UTC, nil).DailySalesReport(ctx, day)
	require.NoError(t, err)
	assertDec(t, "600", rep.Summary.TotalRevenue)
	assert.Equal(t, 4, rep.Summary.TotalOrders)
	assertDec(t, "200", rep.Summary.AverageOrderValue)
	require.Len(t, rep.PopularItems, 1)
	assert.Equal(t, 6, rep.PopularItems[0].QuantitySold)
	require.Len(t, rep.Categories, 1)
	assert.Equal(t, "mains", rep.Categories[0].Category)
}
