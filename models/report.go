package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodKind selects the calendar window of a sales report.
type PeriodKind string

const (
	PeriodDaily   PeriodKind = "daily"
	PeriodWeekly  PeriodKind = "weekly"
	PeriodMonthly PeriodKind = "monthly"
)

// Period is a half-open time range [Start, End).
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// SalesSummary holds the headline numbers of a sales report.
// Revenue only counts delivered orders; TotalOrders counts every order placed in the period.
type SalesSummary struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalOrders       int             `json:"total_orders"`
	DeliveredOrders   int             `json:"delivered_orders"`
	CancelledOrders   int             `json:"cancelled_orders"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

// PopularItem aggregates delivered line items sharing an item name.
type PopularItem struct {
	ItemName     string          `json:"item_name"`
	QuantitySold int             `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
	OrderCount   int             `json:"order_count"`
}

// CategoryPerformance aggregates delivered line items by current catalog category.
type CategoryPerformance struct {
	Category     string          `json:"category"`
	Revenue      decimal.Decimal `json:"revenue"`
	OrderCount   int             `json:"order_count"`
	ItemCount    int             `json:"item_count"`
	AveragePrice decimal.Decimal `json:"average_price"`
}

// CategoryShare is a category's share of total revenue, in percent.
type CategoryShare struct {
	Category   string          `json:"category"`
	Revenue    decimal.Decimal `json:"revenue"`
	Percentage decimal.Decimal `json:"percentage"`
}

// TrendBucket is one point of a time series. Label is "00".."23" for hours,
// a YYYY-MM-DD date for days, or "Week N" for weeks of a month.
type TrendBucket struct {
	Label   string          `json:"label"`
	Start   time.Time       `json:"start"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// DailySalesReport covers one calendar day.
type DailySalesReport struct {
	Date             string                `json:"date"`
	Period           Period                `json:"period"`
	Summary          SalesSummary          `json:"summary"`
	CancellationRate decimal.Decimal       `json:"cancellation_rate"`
	PopularItems     []PopularItem         `json:"popular_items"`
	Categories       []CategoryPerformance `json:"categories"`
	HourlyBreakdown  []TrendBucket         `json:"hourly_breakdown"`
}

// WeeklySalesReport covers one ISO week (Monday to Sunday).
type WeeklySalesReport struct {
	Period           Period                `json:"period"`
	PreviousPeriod   Period                `json:"previous_period"`
	Summary          SalesSummary          `json:"summary"`
	PreviousRevenue  decimal.Decimal       `json:"previous_revenue"`
	GrowthPercentage decimal.Decimal       `json:"growth_percentage"`
	PopularItems     []PopularItem         `json:"popular_items"`
	Categories       []CategoryPerformance `json:"categories"`
	DailyBreakdown   []TrendBucket         `json:"daily_breakdown"`
}

// MonthlySalesReport covers one calendar month.
type MonthlySalesReport struct {
	Month            string                `json:"month"`
	Period           Period                `json:"period"`
	PreviousPeriod   Period                `json:"previous_period"`
	Summary          SalesSummary          `json:"summary"`
	PreviousRevenue  decimal.Decimal       `json:"previous_revenue"`
	GrowthPercentage decimal.Decimal       `json:"growth_percentage"`
	PopularItems     []PopularItem         `json:"popular_items"`
	Categories       []CategoryPerformance `json:"categories"`
	WeeklyBreakdown  []TrendBucket         `json:"weekly_breakdown"`
}

// MenuPerformanceReport ranks menu items and categories over an explicit range.
type MenuPerformanceReport struct {
	Period            Period                `json:"period"`
	TotalRevenue      decimal.Decimal       `json:"total_revenue"`
	TotalItemsSold    int                   `json:"total_items_sold"`
	TopItems          []PopularItem         `json:"top_items"`
	LowPerforming     []PopularItem         `json:"low_performing"`
	Categories        []CategoryPerformance `json:"categories"`
	RevenueByCategory []CategoryShare       `json:"revenue_by_category"`
}
