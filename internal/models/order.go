package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the fulfillment state of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipping   OrderStatus = "SHIPPING"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// orderTransitions is the legal fulfillment state machine. CANCELLED is
// reachable from every non-terminal state; DELIVERED and CANCELLED are
// terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipping, OrderStatusCancelled},
	OrderStatusShipping:   {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  nil,
	OrderStatusCancelled:  nil,
}

// IsValid reports whether s is a known order status
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are allowed from s
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether moving from s to target is legal
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// PaymentMethod represents how the customer pays for an order
type PaymentMethod string

const (
	PaymentMethodCOD          PaymentMethod = "COD"
	PaymentMethodVNPay        PaymentMethod = "VNPAY"
	PaymentMethodMomo         PaymentMethod = "MOMO"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// IsValid reports whether m is a known payment method
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodVNPay, PaymentMethodMomo, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// paymentTransitions is the linear UNPAID -> PAID -> REFUNDED machine.
var paymentTransitions = map[PaymentStatus]PaymentStatus{
	PaymentStatusUnpaid: PaymentStatusPaid,
	PaymentStatusPaid:   PaymentStatusRefunded,
}

// IsValid reports whether s is a known payment status
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to target is legal
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	return paymentTransitions[s] == target
}

// Order represents a customer order. TotalAmount is the sum of the item
// subtotals frozen at creation time; it is never recomputed from the catalog.
type Order struct {
	ID              int64           `db:"id" json:"id"`
	OrderNumber     string          `db:"order_number" json:"order_number"`
	UserID          int64           `db:"user_id" json:"user_id"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status          OrderStatus     `db:"status" json:"status"`
	PaymentMethod   PaymentMethod   `db:"payment_method" json:"payment_method"`
	PaymentStatus   PaymentStatus   `db:"payment_status" json:"payment_status"`
	ShippingAddress string          `db:"shipping_address" json:"shipping_address"`
	RecipientName   string          `db:"recipient_name" json:"recipient_name"`
	RecipientPhone  string          `db:"recipient_phone" json:"recipient_phone"`
	Note            string          `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
	Items           []*OrderItem    `db:"-" json:"items"`
}

// OrderItem is a single line of an order. UnitPrice is a snapshot of the
// product's discount price (if set) or list price at order time; the line is
// immutable after creation.
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	// ProductName is joined from the catalog on reads for presentation; it
	// is not stored on the line.
	ProductName string          `db:"product_name" json:"product_name,omitempty"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Subtotal    decimal.Decimal `db:"subtotal" json:"subtotal"`
}

// NewOrder creates a pending, unpaid order shell ready to receive items
func NewOrder(userID int64, method PaymentMethod, shippingAddress, recipientName, recipientPhone, note string) *Order {
	now := GetCurrentTime()

	return &Order{
		OrderNumber:     NewOrderNumber(),
		UserID:          userID,
		TotalAmount:     decimal.Zero,
		Status:          OrderStatusPending,
		PaymentMethod:   method,
		PaymentStatus:   PaymentStatusUnpaid,
		ShippingAddress: shippingAddress,
		RecipientName:   recipientName,
		RecipientPhone:  recipientPhone,
		Note:            note,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// AddItem appends a line priced at unitPrice and rolls its subtotal into the
// order total.
func (o *Order) AddItem(productID int64, quantity int, unitPrice decimal.Decimal) *OrderItem {
	item := &OrderItem{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Subtotal:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}

	o.Items = append(o.Items, item)
	o.TotalAmount = o.TotalAmount.Add(item.Subtotal)
	return item
}
