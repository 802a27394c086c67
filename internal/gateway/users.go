package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrUserNotFound is returned when no user matches a lookup.
var ErrUserNotFound = errors.New("user not found")

// User is an operator account.
type User struct {
	ID             string
	OutletID       string
	FullName       string
	Email          string
	HashedPassword string
	Role           string
	CreatedAt      time.Time
}

// GetUserByEmail looks a user up for password login.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, outlet_id, full_name, email, hashed_password, role, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.OutletID, &u.FullName, &u.Email, &u.HashedPassword, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetUserByID looks a user up for token refresh.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, outlet_id, full_name, email, hashed_password, role, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.OutletID, &u.FullName, &u.Email, &u.HashedPassword, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}
