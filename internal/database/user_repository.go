package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/smarttransit/bus-booking-backend/internal/models"
)

const userColumns = `id, name, email, phone, password_hash, role, created_at, updated_at`

// UserRepository handles user database operations
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a user with the default traveler role
func (r *UserRepository) CreateUser(ctx context.Context, name, email, passwordHash, phone string) (*models.User, error) {
	query := `
		INSERT INTO users (name, email, password_hash, phone, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	var user models.User
	err := r.db.GetContext(ctx, &user, query, name, email, passwordHash, nullIfEmpty(phone), models.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", Translate(err))
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, Translate(err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, Translate(err)
	}
	return &user, nil
}

// UpdateProfile changes the supplied fields; nil arguments keep the stored value
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, name, passwordHash, phone *string) (*models.User, error) {
	query := `
		UPDATE users SET
			name = COALESCE($1, name),
			password_hash = COALESCE($2, password_hash),
			phone = COALESCE($3, phone),
			updated_at = NOW()
		WHERE id = $4
		RETURNING ` + userColumns

	var user models.User
	err := r.db.GetContext(ctx, &user, query, name, passwordHash, phone, id)
	if err != nil {
		return nil, Translate(err)
	}
	return &user, nil
}

// SetRole changes a user's role by email and returns the updated user
func (r *UserRepository) SetRole(ctx context.Context, email, role string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`UPDATE users SET role = $1, updated_at = NOW() WHERE email = $2 RETURNING `+userColumns,
		role, email)
	if err != nil {
		return nil, Translate(err)
	}
	return &user, nil
}

// CountUsers returns the number of users with the given role
func (r *UserRepository) CountUsers(ctx context.Context, role string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE role = $1`, role)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
