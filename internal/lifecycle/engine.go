package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"karavanCanteen/internal/apperr"
	"karavanCanteen/internal/events"
	"karavanCanteen/internal/telemetry"
	"karavanCanteen/models"
	"karavanCanteen/repository"

	"github.com/shopspring/decimal"
)

// DefaultPrepTime is added to the confirmation instant to estimate when an order is ready.
const DefaultPrepTime = 30 * time.Minute

// maxNumberAttempts bounds retries after an order number collides in the store.
const maxNumberAttempts = 3

// Store is the order persistence the engine needs.
type Store interface {
	CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, orderID int64, items []models.OrderItem) ([]models.OrderItem, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	GetWithItems(ctx context.Context, id int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, from models.OrderStatus, u repository.StatusUpdate) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// TxStore is implemented by stores that can insert an order and its items atomically.
type TxStore interface {
	CreateWithItems(ctx context.Context, o *models.Order, items []models.OrderItem) (*models.Order, error)
}

// NumberSource hands out order numbers.
type NumberSource interface {
	Next(ctx context.Context) (string, error)
}

// Line is one cart line handed to checkout: the menu item as seen by the requester and
// how many of it.
type Line struct {
	Item     models.MenuItem
	Quantity int
}

// Checkout is everything needed to place an order.
type Checkout struct {
	Lines               []Line
	DeliveryLocation    string
	SpecialInstructions string
	PaymentMethod       models.PaymentMethod
}

// Validate rejects checkouts that must never reach the store.
func (c Checkout) Validate() error {
	if len(c.Lines) == 0 {
		return apperr.Validation("cart is empty")
	}
	if strings.TrimSpace(c.DeliveryLocation) == "" {
		return apperr.Validation("delivery location is required")
	}
	for _, l := range c.Lines {
		if l.Quantity <= 0 {
			return apperr.Validation("quantity for %q must be positive", l.Item.Name)
		}
	}
	if c.PaymentMethod != "" && !c.PaymentMethod.Valid() {
		return apperr.Validation("unknown payment method %q", c.PaymentMethod)
	}
	return nil
}

// Engine applies status transitions and places orders.
type Engine struct {
	store   Store
	numbers NumberSource
	events  events.Publisher
	log     *slog.Logger
	now     func() time.Time

	PrepTime   time.Duration
	Policy     Policy
	ServiceFee decimal.Decimal
}

// NewEngine wires an engine. A nil publisher disables events and a nil logger discards logs.
func NewEngine(store Store, numbers NumberSource, pub events.Publisher, logger *slog.Logger) *Engine {
	if pub == nil {
		pub = events.Noop{}
	}
	if logger == nil {
		logger = telemetry.Discard()
	}
	return &Engine{
		store:    store,
		numbers:  numbers,
		events:   pub,
		log:      logger.With("component", "lifecycle"),
		now:      time.Now,
		PrepTime: DefaultPrepTime,
	}
}

// WithClock overrides the engine clock.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Transition moves order orderID to target on behalf of actor with one conditional
// update. Errors: ErrNotFound, ErrInvalidTransition (checked first), ErrForbidden,
// ErrStaleState when the order moved on concurrently, ErrStoreUnavailable.
func (e *Engine) Transition(ctx context.Context, orderID int64, target models.OrderStatus, actor models.Actor) (*models.Order, error) {
	o, err := e.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Store("get order", err)
	}
	if o == nil {
		return nil, fmt.Errorf("%w: order %d", apperr.ErrNotFound, orderID)
	}
	from := o.Status
	if !CanTransition(from, target) {
		if !CanView(o, actor) {
			return nil, fmt.Errorf("%w: order %d cannot move to %s", apperr.ErrInvalidTransition, o.ID, target)
		}
		return nil, fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, from, target)
	}
	if err := e.Policy.Authorize(o, target, actor); err != nil {
		return nil, err
	}

	now := e.now().UTC().Truncate(time.Microsecond)
	u := repository.StatusUpdate{Status: target, UpdatedAt: now}
	switch {
	case from == models.OrderStatusPending && target == models.OrderStatusConfirmed:
		eta := now.Add(e.PrepTime)
		u.EstimatedReadyTime = &eta
	case target == models.OrderStatusDelivered:
		u.DeliveredAt = &now
	}

	ok, err := e.store.UpdateStatus(ctx, o.ID, from, u)
	if err != nil {
		return nil, apperr.Store("update order status", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: order %d is no longer %s", apperr.ErrStaleState, o.ID, from)
	}

	o.Status = target
	o.UpdatedAt = now
	if u.EstimatedReadyTime != nil {
		o.EstimatedReadyTime = u.EstimatedReadyTime
	}
	if u.DeliveredAt != nil {
		o.DeliveredAt = u.DeliveredAt
	}
	e.log.InfoContext(ctx, "order transitioned", "order_id", o.ID, "from", from, "to", target, "actor_id", actor.UserID)
	e.publish(ctx, events.Event{
		Type: events.TypeOrderStatusChanged, OrderID: o.ID, OrderNumber: o.OrderNumber, UserID: o.UserID,
		From: from, To: target, ActorID: actor.UserID, At: now,
	})
	return o, nil
}

// PlaceOrder validates c, snapshots its lines and persists a pending order with its
// items. The store write is atomic: a transaction when the store offers one, otherwise a
// saga that deletes the order if its items cannot be written.
func (e *Engine) PlaceOrder(ctx context.Context, userID int64, c Checkout) (*models.Order, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	items := make([]models.OrderItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, models.NewOrderItem(l.Item, l.Quantity))
	}
	draft := &models.Order{
		UserID:           userID,
		Status:           models.OrderStatusPending,
		TotalAmount:      models.SumLineTotals(items),
		ServiceFee:       e.ServiceFee,
		DeliveryLocation: strings.TrimSpace(c.DeliveryLocation),
		PaymentMethod:    c.PaymentMethod,
	}
	if draft.PaymentMethod == "" {
		draft.PaymentMethod = models.PaymentCash
	}
	if s := strings.TrimSpace(c.SpecialInstructions); s != "" {
		draft.SpecialInstructions = &s
	}

	var saved *models.Order
	var err error
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		if draft.OrderNumber, err = e.numbers.Next(ctx); err != nil {
			return nil, apperr.Store("generate order number", err)
		}
		saved, err = e.persist(ctx, draft, items)
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			break
		}
		e.log.WarnContext(ctx, "order number collision, retrying", "order_number", draft.OrderNumber, "attempt", attempt)
	}
	if err != nil {
		return nil, apperr.Store("create order", err)
	}

	e.log.InfoContext(ctx, "order placed", "order_id", saved.ID, "order_number", saved.OrderNumber, "user_id", userID, "total", saved.TotalAmount.StringFixed(2))
	e.publish(ctx, events.Event{
		Type: events.TypeOrderCreated, OrderID: saved.ID, OrderNumber: saved.OrderNumber, UserID: userID,
		To: saved.Status, ActorID: userID, At: saved.CreatedAt,
	})
	return saved, nil
}

func (e *Engine) persist(ctx context.Context, draft *models.Order, items []models.OrderItem) (*models.Order, error) {
	if tx, ok := e.store.(TxStore); ok {
		return tx.CreateWithItems(ctx, draft, items)
	}
	orderStep := &createOrderStep{store: e.store, draft: draft}
	itemsStep := &createItemsStep{store: e.store, order: orderStep, items: items}
	s := &saga{steps: []Step{orderStep, itemsStep}, log: e.log}
	if err := s.run(ctx); err != nil {
		return nil, err
	}
	out := *orderStep.saved
	out.Items = itemsStep.saved
	return &out, nil
}

// Get returns an order with its items if actor may see it.
func (e *Engine) Get(ctx context.Context, orderID int64, actor models.Actor) (*models.Order, error) {
	o, err := e.store.GetWithItems(ctx, orderID)
	if err != nil {
		return nil, apperr.Store("get order", err)
	}
	if o == nil {
		return nil, fmt.Errorf("%w: order %d", apperr.ErrNotFound, orderID)
	}
	if !CanView(o, actor) {
		return nil, fmt.Errorf("%w: order %d belongs to another user", apperr.ErrForbidden, orderID)
	}
	return o, nil
}

// publish is best effort: the order is already committed.
func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if err := e.events.Publish(ctx, ev); err != nil {
		e.log.WarnContext(ctx, "publish event failed", "type", ev.Type, "order_id", ev.OrderID, "err", err)
	}
}
