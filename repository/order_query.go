package repository

import (
	"context"
	"strings"
	"time"

	"karavanCanteen/internal/db"
	"karavanCanteen/models"
)

// SortOrder is the created_at direction of a query.
type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// OrderFilter selects orders. Zero fields do not constrain the query.
// From is inclusive and To is exclusive.
type OrderFilter struct {
	StatusIn []models.OrderStatus
	UserID   *int64
	From     *time.Time
	To       *time.Time
	Sort     SortOrder
}

// QueryOrders returns orders matching f ordered by created_at (then id) in f.Sort direction.
func (r *OrderRepository) QueryOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var where []string
	var args []any

	if len(f.StatusIn) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.StatusIn))+")")
		for _, s := range f.StatusIn {
			args = append(args, string(s))
		}
	}
	if f.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, db.FormatTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "created_at < ?")
		args = append(args, db.FormatTime(*f.To))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Sort == SortAsc {
		query += " ORDER BY created_at ASC, id ASC"
	} else {
		query += " ORDER BY created_at DESC, id DESC"
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ItemFilter selects order items. OrderID or OrderIDs pick specific orders' lines; the
// parent order's created_at window and status narrow further.
type ItemFilter struct {
	OrderID  *int64
	OrderIDs []int64
	From     *time.Time
	To       *time.Time
	StatusIn []models.OrderStatus
}

// QueryOrderItems returns line items matching f, joined through their parent order.
func (r *OrderRepository) QueryOrderItems(ctx context.Context, f ItemFilter) ([]models.OrderItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var where []string
	var args []any
	if f.OrderID != nil {
		where = append(where, "oi.order_id = ?")
		args = append(args, *f.OrderID)
	}
	if len(f.OrderIDs) > 0 {
		where = append(where, "oi.order_id IN ("+placeholders(len(f.OrderIDs))+")")
		for _, id := range f.OrderIDs {
			args = append(args, id)
		}
	}
	if len(f.StatusIn) > 0 {
		where = append(where, "o.status IN ("+placeholders(len(f.StatusIn))+")")
		for _, s := range f.StatusIn {
			args = append(args, string(s))
		}
	}
	if f.From != nil {
		where = append(where, "o.created_at >= ?")
		args = append(args, db.FormatTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "o.created_at < ?")
		args = append(args, db.FormatTime(*f.To))
	}

	query := `SELECT oi.id, oi.order_id, oi.menu_item_id, oi.quantity, oi.unit_price, oi.total_price, oi.item_name, oi.item_description, oi.item_image
FROM order_items oi
JOIN orders o ON o.id = oi.order_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY oi.order_id ASC, oi.id ASC"

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.OrderItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
