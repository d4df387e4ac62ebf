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

// ProductRepository handles catalog reads plus the product seeding surface.
// Stock mutations live in OrderRepository because they must share the order
// transaction.
type ProductRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *database.Database, logger logger.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a product by its ID
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	query := `
		SELECT id, name, description, price, discount_price, stock_quantity,
		       is_available, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var product models.Product
	err := r.db.DB.GetContext(ctx, &product, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get product by ID", "error", err, "productID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &product, nil
}

// List retrieves products newest first with limit and offset
func (r *ProductRepository) List(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	query := `
		SELECT id, name, description, price, discount_price, stock_quantity,
		       is_available, created_at, updated_at
		FROM products
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var products []*models.Product
	err := r.db.DB.SelectContext(ctx, &products, query, limit, offset)

	if err != nil {
		r.logger.Error("Failed to list products", "error", err, "limit", limit, "offset", offset)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return products, nil
}

// Create inserts a new product
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (
			name, description, price, discount_price, stock_quantity,
			is_available, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	now := models.GetCurrentTime()
	product.CreatedAt = now
	product.UpdatedAt = now
	product.IsAvailable = product.StockQuantity > 0

	err := r.db.DB.QueryRowContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.DiscountPrice,
		product.StockQuantity,
		product.IsAvailable,
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(&product.ID)

	if err != nil {
		r.logger.Error("Failed to create product", "error", err, "name", product.Name)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}
