package models

import "github.com/shopspring/decimal"

// UncategorizedCategory is reported for line items whose menu item no longer exists
// or has no category.
const UncategorizedCategory = "uncategorized"

// MenuItem is a live catalog entry. Orders never reference it for display; they keep
// a snapshot in OrderItem.
type MenuItem struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Image       string          `db:"image" json:"image"`
	Category    string          `db:"category" json:"category"`
	Available   bool            `db:"available" json:"available"`
}
