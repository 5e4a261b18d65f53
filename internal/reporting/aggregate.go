package reporting

import (
	"fmt"
	"sort"
	"time"

	"karavanCanteen/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func round(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// ratio returns num/den rounded to 2 places, or 0 when den is 0.
func ratio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return round(num.Div(den))
}

// percent returns num/den*100 rounded to 2 places, or 0 when den is 0.
func percent(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return round(num.Mul(hundred).Div(den))
}

// growth is the relative revenue change from prev to cur in percent; 0 when prev is 0.
func growth(cur, prev decimal.Decimal) decimal.Decimal {
	return percent(cur.Sub(prev), prev)
}

func isDelivered(o models.Order) bool { return o.Status == models.OrderStatusDelivered }

// summarize counts every order but takes revenue from delivered orders only.
func summarize(orders []models.Order) models.SalesSummary {
	s := models.SalesSummary{TotalRevenue: decimal.Zero}
	for _, o := range orders {
		s.TotalOrders++
		switch o.Status {
		case models.OrderStatusDelivered:
			s.DeliveredOrders++
			s.TotalRevenue = s.TotalRevenue.Add(o.TotalAmount)
		case models.OrderStatusCancelled:
			s.CancelledOrders++
		}
	}
	s.AverageOrderValue = ratio(s.TotalRevenue, decimal.NewFromInt(int64(s.DeliveredOrders)))
	s.TotalRevenue = round(s.TotalRevenue)
	return s
}

func deliveredRevenue(orders []models.Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		if isDelivered(o) {
			total = total.Add(o.TotalAmount)
		}
	}
	return round(total)
}

// rankItems groups line items by item name. The result is sorted by quantity sold
// descending, then revenue descending, then name.
func rankItems(items []models.OrderItem) []models.PopularItem {
	type acc struct {
		item   models.PopularItem
		orders map[int64]struct{}
	}
	byName := map[string]*acc{}
	for _, it := range items {
		a, ok := byName[it.ItemName]
		if !ok {
			a = &acc{item: models.PopularItem{ItemName: it.ItemName, Revenue: decimal.Zero}, orders: map[int64]struct{}{}}
			byName[it.ItemName] = a
		}
		a.item.QuantitySold += it.Quantity
		a.item.Revenue = a.item.Revenue.Add(it.TotalPrice)
		a.orders[it.OrderID] = struct{}{}
	}
	out := make([]models.PopularItem, 0, len(byName))
	for _, a := range byName {
		a.item.OrderCount = len(a.orders)
		a.item.Revenue = round(a.item.Revenue)
		out = append(out, a.item)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.QuantitySold != b.QuantitySold {
			return a.QuantitySold > b.QuantitySold
		}
		if c := a.Revenue.Cmp(b.Revenue); c != 0 {
			return c > 0
		}
		return a.ItemName < b.ItemName
	})
	return out
}

func top(ranked []models.PopularItem, n int) []models.PopularItem {
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return append([]models.PopularItem{}, ranked...)
}

// bottom returns the n weakest items, weakest first.
func bottom(ranked []models.PopularItem, n int) []models.PopularItem {
	out := make([]models.PopularItem, 0, n)
	for i := len(ranked) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, ranked[i])
	}
	return out
}

// categoryPerformance groups line items by the menu item's current category. Items
// missing from cats count as uncategorized.
func categoryPerformance(items []models.OrderItem, cats map[int64]string) []models.CategoryPerformance {
	type acc struct {
		perf   models.CategoryPerformance
		orders map[int64]struct{}
	}
	byCat := map[string]*acc{}
	for _, it := range items {
		c, ok := cats[it.MenuItemID]
		if !ok || c == "" {
			c = models.UncategorizedCategory
		}
		a, ok := byCat[c]
		if !ok {
			a = &acc{perf: models.CategoryPerformance{Category: c, Revenue: decimal.Zero}, orders: map[int64]struct{}{}}
			byCat[c] = a
		}
		a.perf.Revenue = a.perf.Revenue.Add(it.TotalPrice)
		a.perf.ItemCount += it.Quantity
		a.orders[it.OrderID] = struct{}{}
	}
	out := make([]models.CategoryPerformance, 0, len(byCat))
	for _, a := range byCat {
		a.perf.OrderCount = len(a.orders)
		a.perf.AveragePrice = ratio(a.perf.Revenue, decimal.NewFromInt(int64(a.perf.ItemCount)))
		a.perf.Revenue = round(a.perf.Revenue)
		out = append(out, a.perf)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// categoryShares expresses each category's revenue as a percentage of the total.
func categoryShares(perf []models.CategoryPerformance) []models.CategoryShare {
	total := decimal.Zero
	for _, p := range perf {
		total = total.Add(p.Revenue)
	}
	out := make([]models.CategoryShare, 0, len(perf))
	for _, p := range perf {
		out = append(out, models.CategoryShare{Category: p.Category, Revenue: p.Revenue, Percentage: percent(p.Revenue, total)})
	}
	return out
}

// bucketize adds delivered orders to the bucket whose [Start, next Start) holds their
// creation time; the last bucket ends at end.
func bucketize(buckets []models.TrendBucket, end time.Time, orders []models.Order) []models.TrendBucket {
	for _, o := range orders {
		if !isDelivered(o) {
			continue
		}
		for i := range buckets {
			next := end
			if i+1 < len(buckets) {
				next = buckets[i+1].Start
			}
			if !o.CreatedAt.Before(buckets[i].Start) && o.CreatedAt.Before(next) {
				buckets[i].Orders++
				buckets[i].Revenue = buckets[i].Revenue.Add(o.TotalAmount)
				break
			}
		}
	}
	for i := range buckets {
		buckets[i].Revenue = round(buckets[i].Revenue)
	}
	return buckets
}

// hourlyBuckets splits a day into 24 local-hour buckets labelled 00..23.
func hourlyBuckets(p models.Period, loc *time.Location, orders []models.Order) []models.TrendBucket {
	y, m, d := p.Start.In(loc).Date()
	out := make([]models.TrendBucket, 24)
	for h := range out {
		out[h] = models.TrendBucket{Label: fmt.Sprintf("%02d", h), Start: time.Date(y, m, d, h, 0, 0, 0, loc), Revenue: decimal.Zero}
	}
	return bucketize(out, p.End, orders)
}

// dailyBuckets has one bucket per calendar day of p, labelled YYYY-MM-DD.
func dailyBuckets(p models.Period, orders []models.Order) []models.TrendBucket {
	var out []models.TrendBucket
	for day := p.Start; day.Before(p.End); day = day.AddDate(0, 0, 1) {
		out = append(out, models.TrendBucket{Label: day.Format("2006-01-02"), Start: day, Revenue: decimal.Zero})
	}
	return bucketize(out, p.End, orders)
}

// weekOfMonthBuckets splits a month into 7-day chunks from the 1st: week n covers days
// 7(n-1)+1 through 7n, so a month has 4 or 5 buckets and the last may be short.
func weekOfMonthBuckets(p models.Period, orders []models.Order) []models.TrendBucket {
	var out []models.TrendBucket
	for n, start := 1, p.Start; start.Before(p.End); n, start = n+1, start.AddDate(0, 0, 7) {
		out = append(out, models.TrendBucket{Label: fmt.Sprintf("Week %d", n), Start: start, Revenue: decimal.Zero})
	}
	return bucketize(out, p.End, orders)
}
