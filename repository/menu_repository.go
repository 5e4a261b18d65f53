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

// MenuRepository reads the live catalog. Orders snapshot from it at checkout and reports
// read current categories from it.
type MenuRepository struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewMenuRepository(d *sql.DB, dialect db.Dialect) *MenuRepository {
	if dialect == "" {
		dialect = db.SQLite
	}
	return &MenuRepository{db: d, dialect: dialect}
}

// Create inserts a catalog entry. Used by seeding and tests.
func (r *MenuRepository) Create(ctx context.Context, m *models.MenuItem) (*models.MenuItem, error) {
	if m == nil {
		return nil, errors.New("menu item is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	out := *m
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`INSERT INTO menu_items (name, description, price, image, category, available)
VALUES (?,?,?,?,?,?) RETURNING id`),
		m.Name, m.Description, m.Price.String(), m.Image, m.Category, m.Available).Scan(&out.ID)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

const menuColumns = `id, name, description, price, image, category, available`

// GetByID returns (nil, nil) when the item does not exist.
func (r *MenuRepository) GetByID(ctx context.Context, id int64) (*models.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	m, err := scanMenuItem(r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT `+menuColumns+` FROM menu_items WHERE id = ?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// GetByIDs returns the items that exist among ids, keyed by ID.
func (r *MenuRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]models.MenuItem, error) {
	out := make(map[int64]models.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`SELECT `+menuColumns+` FROM menu_items WHERE id IN (`+placeholders(len(ids))+`)`), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		out[m.ID] = *m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CategoriesFor maps menu item IDs to their current category. Missing items are absent
// from the result; an empty category is reported as uncategorized.
func (r *MenuRepository) CategoriesFor(ctx context.Context, ids []int64) (map[int64]string, error) {
	items, err := r.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(items))
	for id, m := range items {
		c := m.Category
		if c == "" {
			c = models.UncategorizedCategory
		}
		out[id] = c
	}
	return out, nil
}

func scanMenuItem(row rowScanner) (*models.MenuItem, error) {
	var m models.MenuItem
	var price string
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &price, &m.Image, &m.Category, &m.Available); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("menu item %d price: %w", m.ID, err)
	}
	m.Price = p
	return &m, nil
}
