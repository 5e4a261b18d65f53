package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the current progress of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// AllOrderStatuses lists every status in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, v := range AllOrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// PaymentMethod is how the requester intends to pay at pickup/delivery.
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentCard    PaymentMethod = "card"
	PaymentAccount PaymentMethod = "account"
)

// Valid reports whether p is a known payment method.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentAccount:
		return true
	}
	return false
}

// Order represents a canteen order placed by a teacher (UserID).
// TotalAmount is the sum of the line totals at creation time; ServiceFee is kept apart.
type Order struct {
	ID                  int64           `db:"id" json:"id"`
	OrderNumber         string          `db:"order_number" json:"order_number"`
	UserID              int64           `db:"user_id" json:"user_id"`
	Status              OrderStatus     `db:"status" json:"status"`
	TotalAmount         decimal.Decimal `db:"total_amount" json:"total_amount"`
	ServiceFee          decimal.Decimal `db:"service_fee" json:"service_fee"`
	DeliveryLocation    string          `db:"delivery_location" json:"delivery_location"`
	SpecialInstructions *string         `db:"special_instructions" json:"special_instructions,omitempty"`
	PaymentMethod       PaymentMethod   `db:"payment_method" json:"payment_method"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
	// Nullable in DB; set on confirmation and delivery respectively.
	EstimatedReadyTime *time.Time `db:"estimated_ready_time" json:"estimated_ready_time,omitempty"`
	DeliveredAt        *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`

	Items []OrderItem `json:"items,omitempty"`
}

// GrandTotal is what the requester pays: line totals plus the service fee.
func (o *Order) GrandTotal() decimal.Decimal {
	return o.TotalAmount.Add(o.ServiceFee)
}

// OrderItem is an immutable line of an order. ItemName, ItemDescription, ItemImage and
// UnitPrice are a snapshot of the menu item when the order was placed.
type OrderItem struct {
	ID              int64           `db:"id" json:"id"`
	OrderID         int64           `db:"order_id" json:"order_id"`
	MenuItemID      int64           `db:"menu_item_id" json:"menu_item_id"`
	Quantity        int             `db:"quantity" json:"quantity"`
	UnitPrice       decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice      decimal.Decimal `db:"total_price" json:"total_price"`
	ItemName        string          `db:"item_name" json:"item_name"`
	ItemDescription string          `db:"item_description" json:"item_description"`
	ItemImage       string          `db:"item_image" json:"item_image"`
}

// NewOrderItem snapshots a menu item into a line of the given quantity.
func NewOrderItem(m MenuItem, quantity int) OrderItem {
	return OrderItem{
		MenuItemID:      m.ID,
		Quantity:        quantity,
		UnitPrice:       m.Price,
		TotalPrice:      m.Price.Mul(decimal.NewFromInt(int64(quantity))),
		ItemName:        m.Name,
		ItemDescription: m.Description,
		ItemImage:       m.Image,
	}
}

// SumLineTotals adds up TotalPrice over items.
func SumLineTotals(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalPrice)
	}
	return total
}
