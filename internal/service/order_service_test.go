package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nductrung-205/furniture-be/internal/models"
	"github.com/nductrung-205/furniture-be/internal/repository"
	"github.com/nductrung-205/furniture-be/pkg/apperrors"
	"github.com/nductrung-205/furniture-be/pkg/logger"
)

// memStore is an in-memory stand-in for the Postgres repositories. It mirrors
// their contract: Create applies every stock decrement or none, Cancel
// restores stock, and availability follows the remaining quantity.
type memStore struct {
	products map[int64]*models.Product
	users    map[int64]bool
	orders   map[int64]*models.Order
	byNumber map[string]int64
	outbox   []*models.OutboxMessage
	nextID   int64

	// collisions makes Create fail with ErrOrderNumberTaken that many times
	collisions int

	// beforeCreate runs at the top of Create, standing in for a concurrent
	// writer racing the order.
	beforeCreate func()
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[int64]*models.Product),
		users:    make(map[int64]bool),
		orders:   make(map[int64]*models.Order),
		byNumber: make(map[string]int64),
	}
}

func (m *memStore) addProduct(id int64, price string, discount *string, stock int) {
	p := &models.Product{
		ID:            id,
		Name:          "product",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsAvailable:   stock > 0,
	}
	if discount != nil {
		d := decimal.RequireFromString(*discount)
		p.DiscountPrice = &d
	}
	m.products[id] = p
}

func (m *memStore) Create(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error {
	if m.beforeCreate != nil {
		m.beforeCreate()
	}

	if m.collisions > 0 {
		m.collisions--
		return repository.ErrOrderNumberTaken
	}

	if _, taken := m.byNumber[order.OrderNumber]; taken {
		return repository.ErrOrderNumberTaken
	}

	for _, item := range order.Items {
		p, ok := m.products[item.ProductID]
		if !ok || p.StockQuantity < item.Quantity {
			return apperrors.NewInsufficientStockError("insufficient stock")
		}
	}

	for _, item := range order.Items {
		p := m.products[item.ProductID]
		p.StockQuantity -= item.Quantity
		p.IsAvailable = p.StockQuantity > 0
	}

	m.nextID++
	order.ID = m.nextID
	m.orders[order.ID] = order
	m.byNumber[order.OrderNumber] = order.ID
	m.outbox = append(m.outbox, msg)
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return order, nil
}

func (m *memStore) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	id, ok := m.byNumber[orderNumber]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.orders[id], nil
}

func (m *memStore) List(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, nil
}

func (m *memStore) ListByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) ListByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range m.orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) Count(ctx context.Context) (int, error) {
	return len(m.orders), nil
}

func (m *memStore) SaveStatus(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error {
	if _, ok := m.orders[order.ID]; !ok {
		return repository.ErrNotFound
	}
	m.orders[order.ID] = order
	m.outbox = append(m.outbox, msg)
	return nil
}

func (m *memStore) Cancel(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error {
	if _, ok := m.orders[order.ID]; !ok {
		return repository.ErrNotFound
	}
	for _, item := range order.Items {
		if p, ok := m.products[item.ProductID]; ok {
			p.StockQuantity += item.Quantity
			p.IsAvailable = p.StockQuantity > 0
		}
	}
	m.orders[order.ID] = order
	m.outbox = append(m.outbox, msg)
	return nil
}

func (m *memStore) Exists(ctx context.Context, id int64) (bool, error) {
	return m.users[id], nil
}

// productStore adapts memStore to the catalog lookup interface
func (m *memStore) productByID(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

type productAdapter struct{ store *memStore }

func (a productAdapter) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	return a.store.productByID(ctx, id)
}

func newTestService(store *memStore) *OrderService {
	return NewOrderService(store, productAdapter{store}, store, logger.NopLogger{})
}

func str(s string) *string { return &s }

func validInput() CreateOrderInput {
	return CreateOrderInput{
		UserID:          1,
		Items:           []OrderItemInput{{ProductID: 10, Quantity: 2}, {ProductID: 11, Quantity: 1}},
		PaymentMethod:   models.PaymentMethodCOD,
		ShippingAddress: "12 Elm St",
		RecipientName:   "Jane Doe",
		RecipientPhone:  "555-0100",
	}
}

func TestCreateOrderSnapshotsPricesAndTotal(t *testing.T) {
	store := newMemStore()
	store.users[1] = true
	store.addProduct(10, "60.00", str("50.00"), 5)
	store.addProduct(11, "30.00", nil, 5)

	svc := newTestService(store)
	order, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	require.Len(t, order.Items, 2)
	assert.Equal(t, "product", order.Items[0].ProductName)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.RequireFromString("50.00")),
		"discount price must win, got %s", order.Items[0].UnitPrice)
	assert.True(t, order.Items[0].Subtotal.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, order.Items[1].Subtotal.Equal(decimal.RequireFromString("30.00")))
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("130.00")),
		"got %s", order.TotalAmount)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, order.PaymentStatus)
}

func TestCreateOrderDecrementsStock(t *testing.T) {
	store := newMemStore()
	store.users[1] = true
	store.addProduct(10, "60.00", nil, 2)
	store.addProduct(11, "30.00", nil, 5)

	svc := newTestService(store)
	_, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, 0, store.products[10].StockQuantity)
	assert.False(t, store.products[10].IsAvailable, "drained product must go unavailable")
	assert.Equal(t, 4, store.products[11].StockQuantity)
	assert.True(t, store.products[11].IsAvailable)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	store := newMemStore()
	store.users[1] = true
	store.addProduct(10, "60.00", nil, 3)

	svc := newTestService(store)
	input := validInput()
	input.Items = []OrderItemInput{{ProductID: 10, Quantity: 5}}

	_, err := svc.CreateOrder(context.Background(), input)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientStock))
	assert.Equal(t, http.StatusConflict, apperrors.StatusCode(err))
	assert.Equal(t, 3, store.products[10].StockQuantity, "stock must be untouched")
}

func TestCreateOrderRollsBackEarlierLinesOnFailure(t *testing.T) {
	store := newMemStore()
	store.users[1] = true
	store.addProduct(10, "60.00", nil, 5)
	store.addProduct(11, "30.00", nil, 3)

	// A concurrent order drains product 11 after the advisory checks pass,
	// so the second line fails inside the store transaction.
	store.beforeCreate = func() {
		store.products[11].StockQuantity = 1
	}

	svc := newTestService(store)
	input := validInput()
	input.Items = []OrderItemInput{
		{ProductID: 10, Quantity: 2},
		{ProductID: 11, Quantity: 3},
	}

	_, err := svc.CreateOrder(context.Background(), input)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientStock))

	assert.Equal(t, 5, store.products[10].StockQuantity,
		"earlier line must not keep its reservation when a later line fails")
	assert.True(t, store.products[10].IsAvailable)
	assert.Equal(t, 1, store.products[11].StockQuantity)
	assert.Equal(t, 0, len(store.orders), "no order row may survive the failure")
}

func TestCreateOrderValidation(t *testing.T) {
	store := newMemStore()
	store.users[1] = true
	store.addProduct(10, "60.00", nil, 5)
	svc := newTestService(store)

	tests := []struct {
		name     string
		mutate   func(*CreateOrderInput)
		sentinel error
	}{
		{"empty items", func(in *CreateOrderInput) { in.Items = nil }, apperrors.ErrInvalidInput},
		{"unknown payment method", func(in *CreateOrderInput) { in.PaymentMethod = "CHECK" }, apperrors.ErrInvalidInput},
		{"zero quantity", func(in *CreateOrderInput) { in.Items = []OrderItemInput{{ProductID: 10, Quantity: 0}} }, apperrors.ErrInvalidInput},
		{"unknown user", func(in *CreateOrderInput) { in.UserID = 99 }, apperrors.ErrNotFound},
		{"unknown product", func(in *CreateOrderInput) { in.Items = []OrderItemInput{{ProductID: 99, Quantity: 1}} }, apperrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			input.Items = []OrderItemInput{{ProductID: 10, Quantity: 1}}
			tt.mutate(&input)

			_, err := svc.CreateOrder(context.Background(), input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}

func TestCreateOrderUnavailableProduct(t *testing.T) {
	store := newMemStore()
	store.users[1] = true
	store.addProduct(10, "60.00", nil, 5)
	store.products[10].IsAvailable = false

	svc := newTestService(store)
	input := validInput()
	input.Items = []OrderItemInput{{ProductID: 10, Quantity: 1}}

	_, err := svc.CreateOrder(context.Background(), input)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestCreateOrderRetriesOnNumberCollision(t *testing.T) {
	store := newMemStore()
	store.users[1] = true
	store.addProduct(10, "60.00", nil, 10)
	store.collisions = 2

	svc := newTestService(store)
	input := validInput()
	input.Items = []OrderItemInput{{ProductID: 10, Quantity: 1}}

	order, err := svc.CreateOrder(context.Background(), input)
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
}

func TestCreateOrderGivesUpAfterRepeatedCollisions(t *testing.T) {
	store := newMemStore()
	store.users[1] = true
	store.addProduct(10, "60.00", nil, 10)
	store.collisions = 10

	svc := newTestService(store)
	input := validInput()
	input.Items = []OrderItemInput{{ProductID: 10, Quantity: 1}}

	_, err := svc.CreateOrder(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusCode(err))
}

func placeOrder(t *testing.T, svc *OrderService, store *memStore) *models.Order {
	t.Helper()
	store.users[1] = true
	if _, ok := store.products[10]; !ok {
		store.addProduct(10, "60.00", nil, 5)
	}
	input := validInput()
	input.Items = []OrderItemInput{{ProductID: 10, Quantity: 2}}
	order, err := svc.CreateOrder(context.Background(), input)
	require.NoError(t, err)
	return order
}

func TestUpdateOrderStatusHappyPath(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	order := placeOrder(t, svc, store)

	for _, next := range []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusProcessing,
		models.OrderStatusShipping,
		models.OrderStatusDelivered,
	} {
		updated, err := svc.UpdateOrderStatus(context.Background(), order.ID, next)
		require.NoError(t, err, "transition to %s", next)
		assert.Equal(t, next, updated.Status)
	}

	final := store.orders[order.ID]
	assert.Equal(t, models.PaymentStatusPaid, final.PaymentStatus,
		"delivery must mark the order paid")
}

func TestUpdateOrderStatusRejectsIllegalTransition(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	order := placeOrder(t, svc, store)

	_, err := svc.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusShipping)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
	assert.Equal(t, http.StatusConflict, apperrors.StatusCode(err))
	assert.Equal(t, models.OrderStatusPending, store.orders[order.ID].Status)
}

func TestUpdateOrderStatusUnknownLiteral(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	order := placeOrder(t, svc, store)

	_, err := svc.UpdateOrderStatus(context.Background(), order.ID, "SHIPPED")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestUpdateOrderStatusSameStatusIsNoOp(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	order := placeOrder(t, svc, store)
	events := len(store.outbox)

	updated, err := svc.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, updated.Status)
	assert.Len(t, store.outbox, events, "no event for a no-op transition")
}

func TestUpdateOrderStatusCancelledRestoresStock(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	order := placeOrder(t, svc, store)
	require.Equal(t, 3, store.products[10].StockQuantity)

	updated, err := svc.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, updated.Status)
	assert.Equal(t, 5, store.products[10].StockQuantity,
		"cancellation must restore the reserved quantity")
}

func TestUpdatePaymentStatus(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	order := placeOrder(t, svc, store)

	updated, err := svc.UpdatePaymentStatus(context.Background(), order.ID, models.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)

	updated, err = svc.UpdatePaymentStatus(context.Background(), order.ID, models.PaymentStatusRefunded)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, updated.PaymentStatus)
}

func TestUpdatePaymentStatusRejectsSkip(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	order := placeOrder(t, svc, store)

	_, err := svc.UpdatePaymentStatus(context.Background(), order.ID, models.PaymentStatusRefunded)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestCancelOrder(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	order := placeOrder(t, svc, store)

	cancelled, err := svc.CancelOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, cancelled.PaymentStatus,
		"cancellation must not touch payment status")
	assert.Equal(t, 5, store.products[10].StockQuantity)
	assert.True(t, store.products[10].IsAvailable)
}

func TestCancelDeliveredOrderFails(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	order := placeOrder(t, svc, store)
	store.orders[order.ID].Status = models.OrderStatusDelivered

	_, err := svc.CancelOrder(context.Background(), order.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
	assert.Equal(t, 3, store.products[10].StockQuantity, "no restitution on rejection")
}

func TestCancelCancelledOrderFails(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	order := placeOrder(t, svc, store)

	_, err := svc.CancelOrder(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = svc.CancelOrder(context.Background(), order.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
	assert.Equal(t, 5, store.products[10].StockQuantity, "stock restored exactly once")
}

func TestGetOrderNotFound(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	_, err := svc.GetOrder(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
}
