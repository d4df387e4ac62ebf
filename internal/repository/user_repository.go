package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nductrung-205/furniture-be/internal/database"
	"github.com/nductrung-205/furniture-be/internal/models"
	"github.com/nductrung-205/furniture-be/pkg/logger"
)

// UserRepository is the narrow user lookup the order engine consumes
type UserRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *database.Database, logger logger.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, email, full_name, created_at FROM users WHERE id = $1`

	var user models.User
	err := r.db.DB.GetContext(ctx, &user, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get user by ID", "error", err, "userID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &user, nil
}

// Exists reports whether a user with the given ID exists
func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	err := r.db.DB.GetContext(ctx, &exists, query, id)

	if err != nil {
		r.logger.Error("Failed to check user existence", "error", err, "userID", id)
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return exists, nil
}
