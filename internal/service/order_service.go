package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nductrung-205/furniture-be/internal/models"
	"github.com/nductrung-205/furniture-be/internal/repository"
	"github.com/nductrung-205/furniture-be/pkg/apperrors"
	"github.com/nductrung-205/furniture-be/pkg/logger"
)

// orderNumberRetries bounds regeneration attempts when a generated order
// number collides with an existing one.
const orderNumberRetries = 3

// OrderStore persists orders; the write operations are atomic, including the
// stock mutations and outbox message that belong to them.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	List(ctx context.Context, limit, offset int) ([]*models.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Order, error)
	ListByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error)
	Count(ctx context.Context) (int, error)
	SaveStatus(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error
	Cancel(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error
}

// ProductStore is the catalog lookup the order engine consumes
type ProductStore interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
}

// UserStore is the user existence check the order engine consumes
type UserStore interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// OrderItemInput is one requested order line
type OrderItemInput struct {
	ProductID int64
	Quantity  int
}

// CreateOrderInput carries everything needed to place an order
type CreateOrderInput struct {
	UserID          int64
	Items           []OrderItemInput
	PaymentMethod   models.PaymentMethod
	ShippingAddress string
	RecipientName   string
	RecipientPhone  string
	Note            string
}

// OrderService implements the order lifecycle: creation with stock
// reservation, validated status and payment transitions, and cancellation
// with stock restitution.
type OrderService struct {
	orders   OrderStore
	products ProductStore
	users    UserStore
	logger   logger.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(orders OrderStore, products ProductStore, users UserStore, logger logger.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		users:    users,
		logger:   logger,
	}
}

// CreateOrder validates the request, snapshots item prices, and persists the
// order together with its stock decrements in one transaction. Unit price is
// the discount price when set, otherwise the list price; the order total is
// frozen at creation.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.NewInvalidInputError("order must contain at least one item")
	}

	if !input.PaymentMethod.IsValid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown payment method: %s", input.PaymentMethod))
	}

	exists, err := s.users.Exists(ctx, input.UserID)

	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("user lookup failed: %v", err))
	}

	if !exists {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user not found with id: %d", input.UserID))
	}

	order := models.NewOrder(
		input.UserID,
		input.PaymentMethod,
		input.ShippingAddress,
		input.RecipientName,
		input.RecipientPhone,
		input.Note,
	)

	for _, itemInput := range input.Items {
		if itemInput.Quantity <= 0 {
			return nil, apperrors.NewInvalidInputError(
				fmt.Sprintf("quantity must be positive for product %d", itemInput.ProductID))
		}

		product, err := s.products.GetByID(ctx, itemInput.ProductID)

		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFoundError(
					fmt.Sprintf("product not found with id: %d", itemInput.ProductID))
			}
			return nil, apperrors.NewInternalError(fmt.Sprintf("product lookup failed: %v", err))
		}

		if !product.IsAvailable {
			return nil, apperrors.NewInvalidStateError(
				fmt.Sprintf("product is not available: %s", product.Name))
		}

		if product.StockQuantity < itemInput.Quantity {
			return nil, apperrors.NewInsufficientStockError(
				fmt.Sprintf("insufficient stock for product: %s", product.Name))
		}

		item := order.AddItem(product.ID, itemInput.Quantity, product.EffectivePrice())
		item.ProductName = product.Name
	}

	// The availability and stock checks above are advisory; the conditional
	// decrement inside the store transaction is what prevents overselling
	// under concurrency.
	for attempt := 0; ; attempt++ {
		msg, err := models.NewOrderCreatedEvent(order)

		if err != nil {
			return nil, apperrors.NewInternalError(fmt.Sprintf("failed to build order event: %v", err))
		}

		err = s.orders.Create(ctx, order, msg)

		if err == nil {
			break
		}

		if errors.Is(err, repository.ErrOrderNumberTaken) && attempt < orderNumberRetries {
			s.logger.Warn("Order number collision, regenerating",
				"orderNumber", order.OrderNumber,
				"attempt", attempt+1)
			order.OrderNumber = models.NewOrderNumber()
			continue
		}

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}

		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to create order: %v", err))
	}

	s.logger.Info("Order created",
		"orderID", order.ID,
		"orderNumber", order.OrderNumber,
		"userID", order.UserID,
		"total", order.TotalAmount)

	return order, nil
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)

	if err != nil {
		return nil, s.mapOrderLookupError(err, id)
	}

	return order, nil
}

// GetOrderByNumber retrieves an order by its human-facing number
func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	order, err := s.orders.GetByOrderNumber(ctx, orderNumber)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("order not found with number: %s", orderNumber))
		}
		return nil, apperrors.NewInternalError(fmt.Sprintf("order lookup failed: %v", err))
	}

	return order, nil
}

// ListOrders retrieves orders with pagination
func (s *OrderService) ListOrders(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	return s.orders.List(ctx, limit, offset)
}

// ListOrdersByUser retrieves all orders of one user
func (s *OrderService) ListOrdersByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListOrdersByStatus retrieves all orders in a fulfillment status
func (s *OrderService) ListOrdersByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	if !status.IsValid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown order status: %s", status))
	}
	return s.orders.ListByStatus(ctx, status)
}

// CountOrders counts all orders
func (s *OrderService) CountOrders(ctx context.Context) (int, error) {
	return s.orders.Count(ctx)
}

// UpdateOrderStatus performs a validated fulfillment transition. Reaching
// DELIVERED marks the order paid as a coupled transition action. A request
// for CANCELLED is routed through CancelOrder so stock restitution cannot be
// bypassed.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id int64, newStatus models.OrderStatus) (*models.Order, error) {
	if !newStatus.IsValid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown order status: %s", newStatus))
	}

	if newStatus == models.OrderStatusCancelled {
		return s.CancelOrder(ctx, id)
	}

	order, err := s.orders.GetByID(ctx, id)

	if err != nil {
		return nil, s.mapOrderLookupError(err, id)
	}

	if order.Status == newStatus {
		return order, nil
	}

	if !order.Status.CanTransitionTo(newStatus) {
		return nil, apperrors.NewInvalidStateError(
			fmt.Sprintf("illegal status transition %s -> %s", order.Status, newStatus))
	}

	oldStatus := order.Status
	order.Status = newStatus

	if newStatus == models.OrderStatusDelivered {
		order.PaymentStatus = models.PaymentStatusPaid
	}

	msg, err := models.NewOrderStatusChangedEvent(order, oldStatus)

	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to build status event: %v", err))
	}

	if err := s.orders.SaveStatus(ctx, order, msg); err != nil {
		return nil, s.mapOrderLookupError(err, id)
	}

	s.logger.Info("Order status updated",
		"orderID", order.ID,
		"oldStatus", oldStatus,
		"newStatus", newStatus)

	return order, nil
}

// UpdatePaymentStatus performs a validated payment transition along the
// linear UNPAID -> PAID -> REFUNDED machine.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id int64, newStatus models.PaymentStatus) (*models.Order, error) {
	if !newStatus.IsValid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown payment status: %s", newStatus))
	}

	order, err := s.orders.GetByID(ctx, id)

	if err != nil {
		return nil, s.mapOrderLookupError(err, id)
	}

	if order.PaymentStatus == newStatus {
		return order, nil
	}

	if !order.PaymentStatus.CanTransitionTo(newStatus) {
		return nil, apperrors.NewInvalidStateError(
			fmt.Sprintf("illegal payment transition %s -> %s", order.PaymentStatus, newStatus))
	}

	oldStatus := order.PaymentStatus
	order.PaymentStatus = newStatus

	msg, err := models.NewPaymentStatusChangedEvent(order, oldStatus)

	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to build payment event: %v", err))
	}

	if err := s.orders.SaveStatus(ctx, order, msg); err != nil {
		return nil, s.mapOrderLookupError(err, id)
	}

	s.logger.Info("Payment status updated",
		"orderID", order.ID,
		"oldStatus", oldStatus,
		"newStatus", newStatus)

	return order, nil
}

// CancelOrder cancels an order and restores the stock of every item in one
// transaction. Delivered and already-cancelled orders cannot be cancelled.
// Payment status is left untouched; refunds are a separate transition.
func (s *OrderService) CancelOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)

	if err != nil {
		return nil, s.mapOrderLookupError(err, id)
	}

	if order.Status == models.OrderStatusDelivered {
		return nil, apperrors.NewInvalidStateError("cannot cancel delivered order")
	}

	if order.Status == models.OrderStatusCancelled {
		return nil, apperrors.NewInvalidStateError("order is already cancelled")
	}

	order.Status = models.OrderStatusCancelled

	msg, err := models.NewOrderCancelledEvent(order)

	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to build cancellation event: %v", err))
	}

	if err := s.orders.Cancel(ctx, order, msg); err != nil {
		return nil, s.mapOrderLookupError(err, id)
	}

	s.logger.Info("Order cancelled",
		"orderID", order.ID,
		"orderNumber", order.OrderNumber)

	return order, nil
}

func (s *OrderService) mapOrderLookupError(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFoundError(fmt.Sprintf("order not found with id: %d", id))
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return apperrors.NewInternalError(fmt.Sprintf("order operation failed: %v", err))
}
