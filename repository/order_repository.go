package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"karavanCanteen/internal/db"
	"karavanCanteen/models"

	"github.com/shopspring/decimal"
)

// ErrDuplicateOrderNumber is returned when an insert collides with an existing order_number.
var ErrDuplicateOrderNumber = errors.New("duplicate order number")

// OrderRepository is the core repository for Order and OrderItem entities.
// It handles inserts, conditional status updates and query building.
type OrderRepository struct {
	db      *sql.DB
	dialect db.Dialect
	now     func() time.Time
}

// NewOrderRepository creates a new OrderRepository for the given dialect.
func NewOrderRepository(d *sql.DB, dialect db.Dialect) *OrderRepository {
	if dialect == "" {
		dialect = db.SQLite
	}
	return &OrderRepository{db: d, dialect: dialect, now: time.Now}
}

// WithClock overrides the clock used for created_at/updated_at. Tests use it to place
// orders at fixed instants.
func (r *OrderRepository) WithClock(now func() time.Time) *OrderRepository {
	r.now = now
	return r
}

const orderColumns = `id, order_number, user_id, status, total_amount, service_fee, delivery_location, special_instructions, payment_method, created_at, updated_at, estimated_ready_time, delivered_at`

const itemColumns = `id, order_id, menu_item_id, quantity, unit_price, total_price, item_name, item_description, item_image`

// execer is the subset shared by *sql.DB and *sql.Tx.
type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateOrder inserts one order row. ID, CreatedAt and UpdatedAt are assigned by the store.
// Status defaults to 'pending' if empty.
func (r *OrderRepository) CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error) {
	if o == nil {
		return nil, errors.New("order is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	out := *o
	if err := r.insertOrder(ctx, r.db, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrderItems bulk-inserts line items for orderID and returns them with IDs assigned.
func (r *OrderRepository) CreateOrderItems(ctx context.Context, orderID int64, items []models.OrderItem) ([]models.OrderItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	out, err := r.insertItems(ctx, tx, orderID, items)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateWithItems inserts an order and its line items in a single transaction.
func (r *OrderRepository) CreateWithItems(ctx context.Context, o *models.Order, items []models.OrderItem) (*models.Order, error) {
	if o == nil {
		return nil, errors.New("order is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := *o
	if err := r.insertOrder(ctx, tx, &out); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	saved, err := r.insertItems(ctx, tx, out.ID, items)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out.Items = saved
	return &out, nil
}

func (r *OrderRepository) insertOrder(ctx context.Context, q execer, o *models.Order) error {
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	now := r.now().UTC().Truncate(time.Microsecond)
	o.CreatedAt, o.UpdatedAt = now, now
	err := q.QueryRowContext(ctx, r.dialect.Rebind(`INSERT INTO orders (order_number, user_id, status, total_amount, service_fee, delivery_location, special_instructions, payment_method, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?) RETURNING id`),
		o.OrderNumber, o.UserID, string(o.Status), o.TotalAmount.String(), o.ServiceFee.String(),
		o.DeliveryLocation, o.SpecialInstructions, string(o.PaymentMethod), db.FormatTime(now), db.FormatTime(now)).
		Scan(&o.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateOrderNumber, o.OrderNumber)
		}
		return err
	}
	return nil
}

func (r *OrderRepository) insertItems(ctx context.Context, q execer, orderID int64, items []models.OrderItem) ([]models.OrderItem, error) {
	out := make([]models.OrderItem, 0, len(items))
	query := r.dialect.Rebind(`INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price, total_price, item_name, item_description, item_image)
VALUES (?,?,?,?,?,?,?,?) RETURNING id`)
	for _, it := range items {
		it.OrderID = orderID
		if err := q.QueryRowContext(ctx, query, orderID, it.MenuItemID, it.Quantity, it.UnitPrice.String(), it.TotalPrice.String(),
			it.ItemName, it.ItemDescription, it.ItemImage).Scan(&it.ID); err != nil {
			return nil, fmt.Errorf("insert item %q: %w", it.ItemName, err)
		}
		out = append(out, it)
	}
	return out, nil
}

// GetByID fetches an order by its ID. It returns (nil, nil) when the order does not exist.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT `+orderColumns+` FROM orders WHERE id = ?`), id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

// GetWithItems fetches an order together with its line items.
func (r *OrderRepository) GetWithItems(ctx context.Context, id int64) (*models.Order, error) {
	o, err := r.GetByID(ctx, id)
	if err != nil || o == nil {
		return o, err
	}
	items, err := r.QueryOrderItems(ctx, ItemFilter{OrderID: &o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

// StatusUpdate carries the fields written together with a status change.
type StatusUpdate struct {
	Status             models.OrderStatus
	UpdatedAt          time.Time
	EstimatedReadyTime *time.Time
	DeliveredAt        *time.Time
}

// UpdateStatus moves order id from status `from` to u.Status in one conditional update.
// It reports false when no row matched, i.e. the order is gone or no longer in `from`.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, from models.OrderStatus, u StatusUpdate) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`UPDATE orders
SET status = ?, updated_at = ?,
    estimated_ready_time = COALESCE(?, estimated_ready_time),
    delivered_at = COALESCE(?, delivered_at)
WHERE id = ? AND status = ?`),
		string(u.Status), db.FormatTime(u.UpdatedAt), nullableTime(u.EstimatedReadyTime), nullableTime(u.DeliveredAt),
		id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes an order by ID; its line items go with it.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM orders WHERE id = ?`), id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanOrder is a helper to scan one row into an Order.
func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var status, total, fee, payment, createdAt, updatedAt string
	var instructions, eta, deliveredAt sql.NullString
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &status, &total, &fee, &o.DeliveryLocation,
		&instructions, &payment, &createdAt, &updatedAt, &eta, &deliveredAt); err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	o.PaymentMethod = models.PaymentMethod(payment)
	var err error
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("order %d total_amount: %w", o.ID, err)
	}
	if o.ServiceFee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("order %d service_fee: %w", o.ID, err)
	}
	if o.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	if instructions.Valid {
		v := instructions.String
		o.SpecialInstructions = &v
	}
	if o.EstimatedReadyTime, err = parseNullTime(eta); err != nil {
		return nil, err
	}
	if o.DeliveredAt, err = parseNullTime(deliveredAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func scanItem(row rowScanner) (*models.OrderItem, error) {
	var it models.OrderItem
	var unit, total string
	if err := row.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Quantity, &unit, &total,
		&it.ItemName, &it.ItemDescription, &it.ItemImage); err != nil {
		return nil, err
	}
	var err error
	if it.UnitPrice, err = decimal.NewFromString(unit); err != nil {
		return nil, fmt.Errorf("order item %d unit_price: %w", it.ID, err)
	}
	if it.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("order item %d total_price: %w", it.ID, err)
	}
	return &it, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := db.ParseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return db.FormatTime(*t)
}
