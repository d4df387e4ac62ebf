package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog view the order engine consumes: pricing, stock and
// availability. The engine mutates only stock_quantity and is_available.
type Product struct {
	ID            int64            `db:"id" json:"id"`
	Name          string           `db:"name" json:"name"`
	Description   string           `db:"description" json:"description,omitempty"`
	Price         decimal.Decimal  `db:"price" json:"price"`
	DiscountPrice *decimal.Decimal `db:"discount_price" json:"discount_price,omitempty"`
	StockQuantity int              `db:"stock_quantity" json:"stock_quantity"`
	IsAvailable   bool             `db:"is_available" json:"is_available"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// EffectivePrice returns the discount price when one is set, otherwise the
// list price. Order lines snapshot this value.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// User is the minimal user view consumed by the order engine
type User struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
