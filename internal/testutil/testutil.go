package testutil

import (
	"context"
	"database/sql"
	"testing"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/metadata"

	"karavanCanteen/internal/db"
	"karavanCanteen/models"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// Caller is responsible for closing the DB, typically via t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	// We use a shared cache memory database so that multiple connections share the same DB if needed.
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// SeedUser inserts a user with the given role and returns its ID.
func SeedUser(t *testing.T, d *sql.DB, username string, role models.Role) int64 {
	t.Helper()
	var id int64
	if err := d.QueryRow(`INSERT INTO users (username, role) VALUES (?, ?) RETURNING id`, username, string(role)).Scan(&id); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return id
}

// SeedMenuItem inserts an available catalog entry and returns it with its ID.
func SeedMenuItem(t *testing.T, d *sql.DB, name, price, category string) models.MenuItem {
	t.Helper()
	m := models.MenuItem{Name: name, Price: decimal.RequireFromString(price), Category: category, Available: true}
	if err := d.QueryRow(`INSERT INTO menu_items (name, description, price, image, category, available) VALUES (?,?,?,?,?,?) RETURNING id`,
		m.Name, m.Description, m.Price.String(), m.Image, m.Category, m.Available).Scan(&m.ID); err != nil {
		t.Fatalf("seed menu item %s: %v", name, err)
	}
	return m
}

// GenerateJWTHS256 returns a signed JWT string with minimal claims used by the app.
func GenerateJWTHS256(t *testing.T, secret, name string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"name": name,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// CtxWithBearer returns a context containing gRPC metadata Authorization header with the given token.
func CtxWithBearer(ctx context.Context, token string) context.Context {
	md := metadata.Pairs("authorization", "Bearer "+token)
	return metadata.NewIncomingContext(ctx, md)
}
