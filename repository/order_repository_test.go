package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"karavanCanteen/internal/db"
	"karavanCanteen/internal/testutil"
	"karavanCanteen/models"

	"github.com/shopspring/decimal"
)

func newOrder(userID int64, number string) *models.Order {
	return &models.Order{
		OrderNumber:      number,
		UserID:           userID,
		TotalAmount:      decimal.RequireFromString("12.50"),
		ServiceFee:       decimal.RequireFromString("1.00"),
		DeliveryLocation: "Room 101",
		PaymentMethod:    models.PaymentCash,
	}
}

func TestOrderRepository_CreateWithItemsAndGet(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "orderrepo_create")
	uid := testutil.SeedUser(t, d, "alice", models.RoleTeacher)
	menu := testutil.SeedMenuItem(t, d, "Soup", "6.25", "mains")

	at := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	repo := NewOrderRepository(d, db.SQLite).WithClock(func() time.Time { return at })
	ctx := context.Background()

	note := "no onions"
	o := newOrder(uid, "ORD-1")
	o.SpecialInstructions = &note
	created, err := repo.CreateWithItems(ctx, o, []models.OrderItem{models.NewOrderItem(menu, 2)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 || created.Status != models.OrderStatusPending {
		t.Fatalf("unexpected created order: %+v", created)
	}
	if len(created.Items) != 1 || created.Items[0].ID == 0 || created.Items[0].OrderID != created.ID {
		t.Fatalf("unexpected items: %+v", created.Items)
	}

	got, err := repo.GetWithItems(ctx, created.ID)
	if err != nil || got == nil {
		t.Fatalf("get: %v %+v", err, got)
	}
	if !got.CreatedAt.Equal(at) || !got.UpdatedAt.Equal(at) {
		t.Fatalf("timestamps not round-tripped: %v %v", got.CreatedAt, got.UpdatedAt)
	}
	if !got.TotalAmount.Equal(decimal.RequireFromString("12.5")) || !got.ServiceFee.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("money not round-tripped: %s %s", got.TotalAmount, got.ServiceFee)
	}
	if got.SpecialInstructions == nil || *got.SpecialInstructions != note {
		t.Fatalf("instructions lost: %+v", got.SpecialInstructions)
	}
	if got.EstimatedReadyTime != nil || got.DeliveredAt != nil {
		t.Fatalf("expected nil optional times, got %+v", got)
	}
	if len(got.Items) != 1 || got.Items[0].ItemName != "Soup" || !got.Items[0].TotalPrice.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected items: %+v", got.Items)
	}

	missing, err := repo.GetByID(ctx, 9999)
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for missing order, got %+v %v", missing, err)
	}
}

func TestOrderRepository_DuplicateOrderNumber(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "orderrepo_dup")
	uid := testutil.SeedUser(t, d, "bob", models.RoleTeacher)
	repo := NewOrderRepository(d, db.SQLite)
	ctx := context.Background()

	if _, err := repo.CreateOrder(ctx, newOrder(uid, "ORD-DUP")); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := repo.CreateWithItems(ctx, newOrder(uid, "ORD-DUP"), nil)
	if !errors.Is(err, ErrDuplicateOrderNumber) {
		t.Fatalf("expected ErrDuplicateOrderNumber, got %v", err)
	}
	all, err := repo.QueryOrders(ctx, OrderFilter{})
	if err != nil || len(all) != 1 {
		t.Fatalf("expected the failed insert to leave one order, got %d (%v)", len(all), err)
	}
}

func TestOrderRepository_ItemsRollBackWithOrder(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "orderrepo_rollback")
	uid := testutil.SeedUser(t, d, "carol", models.RoleTeacher)
	repo := NewOrderRepository(d, db.SQLite)
	ctx := context.Background()

	bad := models.OrderItem{MenuItemID: 1, Quantity: 0, UnitPrice: decimal.NewFromInt(1), TotalPrice: decimal.Zero, ItemName: "Broken"}
	if _, err := repo.CreateWithItems(ctx, newOrder(uid, "ORD-RB"), []models.OrderItem{bad}); err == nil {
		t.Fatalf("expected quantity check to fail")
	}
	all, err := repo.QueryOrders(ctx, OrderFilter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no orphan order, got %+v", all)
	}
}

func TestOrderRepository_UpdateStatusIsConditional(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "orderrepo_update")
	uid := testutil.SeedUser(t, d, "dave", models.RoleTeacher)
	repo := NewOrderRepository(d, db.SQLite)
	ctx := context.Background()

	o, err := repo.CreateOrder(ctx, newOrder(uid, "ORD-UPD"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	eta := now.Add(30 * time.Minute)
	ok, err := repo.UpdateStatus(ctx, o.ID, models.OrderStatusPending, StatusUpdate{
		Status: models.OrderStatusConfirmed, UpdatedAt: now, EstimatedReadyTime: &eta,
	})
	if err != nil || !ok {
		t.Fatalf("confirm: ok=%v err=%v", ok, err)
	}

	// Same `from` again: the row moved on, nothing matches.
	ok, err = repo.UpdateStatus(ctx, o.ID, models.OrderStatusPending, StatusUpdate{
		Status: models.OrderStatusCancelled, UpdatedAt: now,
	})
	if err != nil || ok {
		t.Fatalf("expected stale update to affect no rows: ok=%v err=%v", ok, err)
	}

	got, _ := repo.GetByID(ctx, o.ID)
	if got.Status != models.OrderStatusConfirmed {
		t.Fatalf("status = %s, want confirmed", got.Status)
	}
	if got.EstimatedReadyTime == nil || !got.EstimatedReadyTime.Equal(eta) {
		t.Fatalf("eta = %v, want %v", got.EstimatedReadyTime, eta)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at = %v, want %v", got.UpdatedAt, now)
	}

	// A later update without ETA keeps the stored one.
	ok, err = repo.UpdateStatus(ctx, o.ID, models.OrderStatusConfirmed, StatusUpdate{
		Status: models.OrderStatusPreparing, UpdatedAt: now.Add(time.Minute),
	})
	if err != nil || !ok {
		t.Fatalf("prepare: ok=%v err=%v", ok, err)
	}
	got, _ = repo.GetByID(ctx, o.ID)
	if got.EstimatedReadyTime == nil || !got.EstimatedReadyTime.Equal(eta) {
		t.Fatalf("eta overwritten: %v", got.EstimatedReadyTime)
	}

	if ok, err := repo.UpdateStatus(ctx, 424242, models.OrderStatusPending, StatusUpdate{Status: models.OrderStatusConfirmed, UpdatedAt: now}); err != nil || ok {
		t.Fatalf("missing order: ok=%v err=%v", ok, err)
	}
}

func TestOrderRepository_QueryOrdersFilters(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "orderrepo_query")
	alice := testutil.SeedUser(t, d, "alice", models.RoleTeacher)
	bob := testutil.SeedUser(t, d, "bob", models.RoleTeacher)

	clock := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	repo := NewOrderRepository(d, db.SQLite).WithClock(func() time.Time { return clock })
	ctx := context.Background()

	var ids []int64
	for i, uid := range []int64{alice, bob, alice} {
		clock = clock.Add(time.Hour)
		o, err := repo.CreateOrder(ctx, newOrder(uid, "ORD-Q"+string(rune('A'+i))))
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids = append(ids, o.ID)
	}
	// third order moves on to confirmed
	if ok, err := repo.UpdateStatus(ctx, ids[2], models.OrderStatusPending, StatusUpdate{Status: models.OrderStatusConfirmed, UpdatedAt: clock}); err != nil || !ok {
		t.Fatalf("confirm: %v %v", ok, err)
	}

	desc, err := repo.QueryOrders(ctx, OrderFilter{UserID: &alice})
	if err != nil {
		t.Fatalf("query user: %v", err)
	}
	if len(desc) != 2 || desc[0].ID != ids[2] || desc[1].ID != ids[0] {
		t.Fatalf("unexpected desc order: %+v", desc)
	}

	asc, err := repo.QueryOrders(ctx, OrderFilter{Sort: SortAsc})
	if err != nil || len(asc) != 3 || asc[0].ID != ids[0] || asc[2].ID != ids[2] {
		t.Fatalf("unexpected asc order: %+v (%v)", asc, err)
	}

	pending, err := repo.QueryOrders(ctx, OrderFilter{StatusIn: []models.OrderStatus{models.OrderStatusPending}})
	if err != nil || len(pending) != 2 {
		t.Fatalf("status filter: %d (%v)", len(pending), err)
	}

	// [09:00 + 1h, 09:00 + 2h) catches only the second order (10:00).
	from := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	window, err := repo.QueryOrders(ctx, OrderFilter{From: &from, To: &to})
	if err != nil || len(window) != 1 || window[0].ID != ids[1] {
		t.Fatalf("window filter: %+v (%v)", window, err)
	}

	none, err := repo.QueryOrders(ctx, OrderFilter{StatusIn: []models.OrderStatus{models.OrderStatusDelivered}})
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v (%v)", none, err)
	}
}

func TestOrderRepository_QueryOrderItemsJoinsParent(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "orderrepo_items")
	uid := testutil.SeedUser(t, d, "erin", models.RoleTeacher)
	soup := testutil.SeedMenuItem(t, d, "Soup", "5", "mains")
	tea := testutil.SeedMenuItem(t, d, "Tea", "2", "drinks")

	clock := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	repo := NewOrderRepository(d, db.SQLite).WithClock(func() time.Time { return clock })
	ctx := context.Background()

	delivered, err := repo.CreateWithItems(ctx, newOrder(uid, "ORD-I1"), []models.OrderItem{models.NewOrderItem(soup, 1), models.NewOrderItem(tea, 2)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := repo.CreateWithItems(ctx, newOrder(uid, "ORD-I2"), []models.OrderItem{models.NewOrderItem(tea, 1)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, step := range [][2]models.OrderStatus{
		{models.OrderStatusPending, models.OrderStatusConfirmed},
		{models.OrderStatusConfirmed, models.OrderStatusPreparing},
		{models.OrderStatusPreparing, models.OrderStatusReady},
		{models.OrderStatusReady, models.OrderStatusDelivered},
	} {
		if ok, err := repo.UpdateStatus(ctx, delivered.ID, step[0], StatusUpdate{Status: step[1], UpdatedAt: clock}); err != nil || !ok {
			t.Fatalf("%s->%s: %v %v", step[0], step[1], ok, err)
		}
	}

	from := clock.Add(-time.Hour)
	to := clock.Add(time.Hour)
	items, err := repo.QueryOrderItems(ctx, ItemFilter{From: &from, To: &to, StatusIn: []models.OrderStatus{models.OrderStatusDelivered}})
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 delivered items, got %+v", items)
	}
	for _, it := range items {
		if it.OrderID != delivered.ID {
			t.Fatalf("item from wrong order: %+v", it)
		}
	}

	both, err := repo.QueryOrderItems(ctx, ItemFilter{OrderIDs: []int64{second.ID, delivered.ID}})
	if err != nil {
		t.Fatalf("items by ids: %v", err)
	}
	if len(both) != 3 || both[0].OrderID != delivered.ID || both[2].OrderID != second.ID {
		t.Fatalf("expected 3 items ordered by order id, got %+v", both)
	}

	if err := repo.Delete(ctx, delivered.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	left, err := repo.QueryOrderItems(ctx, ItemFilter{OrderID: &delivered.ID})
	if err != nil || len(left) != 0 {
		t.Fatalf("expected items cascaded away, got %+v (%v)", left, err)
	}
}
