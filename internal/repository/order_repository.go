package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nductrung-205/furniture-be/internal/database"
	"github.com/nductrung-205/furniture-be/internal/models"
	"github.com/nductrung-205/furniture-be/pkg/apperrors"
	"github.com/nductrung-205/furniture-be/pkg/logger"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrDatabase = errors.New("database error")
	// ErrOrderNumberTaken signals a unique violation on the generated order
	// number; the caller retries with a fresh number.
	ErrOrderNumberTaken = errors.New("order number already taken")
)

const uniqueViolation = "23505"

// OrderRepository handles database operations for orders and their items,
// including the stock mutations that must commit atomically with them.
type OrderRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *database.Database, logger logger.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an order with its items and decrements product stock, all in
// one transaction. Stock is reserved with a conditional update so concurrent
// orders cannot oversell; any failed line rolls the whole order back. The
// outbox message, when given, joins the same transaction.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Error("Failed to rollback order creation", "error", rbErr)
			}
		}
	}()

	for _, item := range order.Items {
		if err = r.reserveStockInTx(tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	if err = r.insertOrderInTx(tx, order); err != nil {
		return err
	}

	if msg != nil {
		if err = createOutboxInTx(tx, msg); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// reserveStockInTx decrements stock only when enough is left and recomputes
// availability from the resulting quantity in the same statement.
func (r *OrderRepository) reserveStockInTx(tx *sqlx.Tx, productID int64, quantity int) error {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $2,
		    is_available = stock_quantity - $2 > 0,
		    updated_at = NOW()
		WHERE id = $1 AND stock_quantity >= $2
	`

	result, err := tx.Exec(query, productID, quantity)

	if err != nil {
		r.logger.Error("Failed to reserve stock", "error", err, "productID", productID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return apperrors.NewInsufficientStockError(
			fmt.Sprintf("insufficient stock for product %d", productID))
	}

	return nil
}

// restoreStockInTx returns reserved units and derives availability from the
// resulting quantity.
func (r *OrderRepository) restoreStockInTx(tx *sqlx.Tx, productID int64, quantity int) error {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $2,
		    is_available = stock_quantity + $2 > 0,
		    updated_at = NOW()
		WHERE id = $1
	`

	if _, err := tx.Exec(query, productID, quantity); err != nil {
		r.logger.Error("Failed to restore stock", "error", err, "productID", productID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

func (r *OrderRepository) insertOrderInTx(tx *sqlx.Tx, order *models.Order) error {
	query := `
		INSERT INTO orders (
			order_number, user_id, total_amount, status, payment_method,
			payment_status, shipping_address, recipient_name, recipient_phone,
			note, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := tx.QueryRow(
		query,
		order.OrderNumber,
		order.UserID,
		order.TotalAmount,
		order.Status,
		order.PaymentMethod,
		order.PaymentStatus,
		order.ShippingAddress,
		order.RecipientName,
		order.RecipientPhone,
		order.Note,
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&order.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrOrderNumberTaken
		}
		r.logger.Error("Failed to insert order", "error", err, "orderNumber", order.OrderNumber)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	for _, item := range order.Items {
		item.OrderID = order.ID

		if err := tx.QueryRow(
			itemQuery,
			item.OrderID,
			item.ProductID,
			item.Quantity,
			item.UnitPrice,
			item.Subtotal,
		).Scan(&item.ID); err != nil {
			r.logger.Error("Failed to insert order item", "error", err, "orderID", order.ID)
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
	}

	return nil
}

// GetByID retrieves an order with its items
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	query := `
		SELECT id, order_number, user_id, total_amount, status, payment_method,
		       payment_status, shipping_address, recipient_name, recipient_phone,
		       note, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order models.Order
	err := r.db.DB.GetContext(ctx, &order, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get order by ID", "error", err, "orderID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := r.loadItems(ctx, []*models.Order{&order}); err != nil {
		return nil, err
	}

	return &order, nil
}

// GetByOrderNumber retrieves an order by its human-facing number
func (r *OrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	query := `
		SELECT id, order_number, user_id, total_amount, status, payment_method,
		       payment_status, shipping_address, recipient_name, recipient_phone,
		       note, created_at, updated_at
		FROM orders
		WHERE order_number = $1
	`

	var order models.Order
	err := r.db.DB.GetContext(ctx, &order, query, orderNumber)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get order by number", "error", err, "orderNumber", orderNumber)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := r.loadItems(ctx, []*models.Order{&order}); err != nil {
		return nil, err
	}

	return &order, nil
}

// List retrieves orders newest first with limit and offset
func (r *OrderRepository) List(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	query := `
		SELECT id, order_number, user_id, total_amount, status, payment_method,
		       payment_status, shipping_address, recipient_name, recipient_phone,
		       note, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, limit, offset)

	if err != nil {
		r.logger.Error("Failed to list orders", "error", err, "limit", limit, "offset", offset)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// ListByUser retrieves all orders for a user, newest first
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := `
		SELECT id, order_number, user_id, total_amount, status, payment_method,
		       payment_status, shipping_address, recipient_name, recipient_phone,
		       note, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, userID)

	if err != nil {
		r.logger.Error("Failed to list orders by user", "error", err, "userID", userID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// ListByStatus retrieves all orders in a given fulfillment status, newest first
func (r *OrderRepository) ListByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	query := `
		SELECT id, order_number, user_id, total_amount, status, payment_method,
		       payment_status, shipping_address, recipient_name, recipient_phone,
		       note, created_at, updated_at
		FROM orders
		WHERE status = $1
		ORDER BY created_at DESC
	`

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, status)

	if err != nil {
		r.logger.Error("Failed to list orders by status", "error", err, "status", status)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// Count counts the total number of orders
func (r *OrderRepository) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM orders`

	err := r.db.DB.GetContext(ctx, &count, query)

	if err != nil {
		r.logger.Error("Failed to count orders", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return count, nil
}

// SaveStatus persists the order's status and payment status together with an
// outbox message describing the transition.
func (r *OrderRepository) SaveStatus(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Error("Failed to rollback status update", "error", rbErr)
			}
		}
	}()

	if err = r.updateStatusInTx(tx, order); err != nil {
		return err
	}

	if msg != nil {
		if err = createOutboxInTx(tx, msg); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// Cancel marks the order cancelled and restores the stock of every item in
// one transaction.
func (r *OrderRepository) Cancel(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Error("Failed to rollback cancellation", "error", rbErr)
			}
		}
	}()

	for _, item := range order.Items {
		if err = r.restoreStockInTx(tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	if err = r.updateStatusInTx(tx, order); err != nil {
		return err
	}

	if msg != nil {
		if err = createOutboxInTx(tx, msg); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

func (r *OrderRepository) updateStatusInTx(tx *sqlx.Tx, order *models.Order) error {
	query := `
		UPDATE orders
		SET status = $1, payment_status = $2, updated_at = $3
		WHERE id = $4
	`

	order.UpdatedAt = models.GetCurrentTime()
	result, err := tx.Exec(query, order.Status, order.PaymentStatus, order.UpdatedAt, order.ID)

	if err != nil {
		r.logger.Error("Failed to update order status", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// FindPaidBetween retrieves all PAID orders created inside the window, oldest
// first, with items loaded. The reporting engine depends on this ordering for
// its first-occurrence bucket sequence.
func (r *OrderRepository) FindPaidBetween(ctx context.Context, start, end time.Time) ([]*models.Order, error) {
	query := `
		SELECT id, order_number, user_id, total_amount, status, payment_method,
		       payment_status, shipping_address, recipient_name, recipient_phone,
		       note, created_at, updated_at
		FROM orders
		WHERE payment_status = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at ASC
	`

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, models.PaymentStatusPaid, start, end)

	if err != nil {
		r.logger.Error("Failed to find paid orders", "error", err, "start", start, "end", end)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// loadItems attaches order items to the given orders in one query
func (r *OrderRepository) loadItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(orders))
	byID := make(map[int64]*models.Order, len(orders))

	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
		o.Items = nil
	}

	query := `
		SELECT oi.id, oi.order_id, oi.product_id, p.name AS product_name,
		       oi.quantity, oi.unit_price, oi.subtotal
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id ASC
	`

	var items []*models.OrderItem
	err := r.db.DB.SelectContext(ctx, &items, query, pq.Array(ids))

	if err != nil {
		r.logger.Error("Failed to load order items", "error", err)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	return nil
}
