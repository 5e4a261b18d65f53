package repository

import (
	"context"

	"karavanCanteen/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, username string, role models.Role) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

// OrderRepositoryI defines operations on Order entities.
type OrderRepositoryI interface {
	CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, orderID int64, items []models.OrderItem) ([]models.OrderItem, error)
	CreateWithItems(ctx context.Context, o *models.Order, items []models.OrderItem) (*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	GetWithItems(ctx context.Context, id int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, from models.OrderStatus, u StatusUpdate) (bool, error)
	Delete(ctx context.Context, id int64) error
	QueryOrders(ctx context.Context, f OrderFilter) ([]models.Order, error)
	QueryOrderItems(ctx context.Context, f ItemFilter) ([]models.OrderItem, error)
}

// MenuRepositoryI defines read access to the catalog.
type MenuRepositoryI interface {
	GetByID(ctx context.Context, id int64) (*models.MenuItem, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]models.MenuItem, error)
	CategoriesFor(ctx context.Context, ids []int64) (map[int64]string, error)
}

var (
	_ UserRepositoryI  = (*UserRepository)(nil)
	_ OrderRepositoryI = (*OrderRepository)(nil)
	_ MenuRepositoryI  = (*MenuRepository)(nil)
)
