package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"karavanCanteen/internal/db"
	"karavanCanteen/models"
)

type UserRepository struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewUserRepository(d *sql.DB, dialect db.Dialect) *UserRepository {
	if dialect == "" {
		dialect = db.SQLite
	}
	return &UserRepository{db: d, dialect: dialect}
}

// Create inserts a new user with the given username and role.
// Returns the created User with its generated ID. An empty role defaults to teacher.
func (r *UserRepository) Create(ctx context.Context, username string, role models.Role) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if role == "" {
		role = models.RoleTeacher
	}
	var id int64
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`INSERT INTO users (username, role) VALUES (?, ?) RETURNING id`),
		username, string(role)).Scan(&id)
	if err != nil {
		return nil, err
	}
	return &models.User{ID: id, Username: username, Role: role}, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u models.User
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT id, username, role FROM users WHERE id = ?`), id).Scan(&u.ID, &u.Username, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u models.User
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT id, username, role FROM users WHERE username = ?`), username).Scan(&u.ID, &u.Username, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`SELECT id, username, role FROM users ORDER BY id LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateRoleByUsername sets the role for the given username.
// Intended for administrative flows and tests.
func (r *UserRepository) UpdateRoleByUsername(ctx context.Context, username string, role models.Role) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`UPDATE users SET role = ? WHERE username = ?`), string(role), username)
	return err
}
