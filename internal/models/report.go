package models

import (
	"github.com/shopspring/decimal"
)

// Granularity is the time bucket size for revenue rollups
type Granularity string

const (
	GranularityDay   Granularity = "DAY"
	GranularityWeek  Granularity = "WEEK"
	GranularityMonth Granularity = "MONTH"
	GranularityYear  Granularity = "YEAR"
)

// IsValid reports whether g is a known granularity
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityDay, GranularityWeek, GranularityMonth, GranularityYear:
		return true
	}
	return false
}

// QuickPeriod is a named preset resolved to a date range and granularity
type QuickPeriod string

const (
	QuickPeriodToday       QuickPeriod = "TODAY"
	QuickPeriodThisWeek    QuickPeriod = "THIS_WEEK"
	QuickPeriodThisMonth   QuickPeriod = "THIS_MONTH"
	QuickPeriodThisQuarter QuickPeriod = "THIS_QUARTER"
	QuickPeriodThisYear    QuickPeriod = "THIS_YEAR"
)

// IsValid reports whether q is a known quick period
func (q QuickPeriod) IsValid() bool {
	switch q {
	case QuickPeriodToday, QuickPeriodThisWeek, QuickPeriodThisMonth, QuickPeriodThisQuarter, QuickPeriodThisYear:
		return true
	}
	return false
}

// TopSellingProduct ranks a product by units sold within the report window
type TopSellingProduct struct {
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	QuantitySold int             `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// PeriodRevenue is one time bucket of the report series
type PeriodRevenue struct {
	Period       string          `json:"period"`
	Revenue      decimal.Decimal `json:"revenue"`
	Profit       decimal.Decimal `json:"profit"`
	OrderCount   int             `json:"order_count"`
	ProductsSold int             `json:"products_sold"`
}

// RevenueReport is the on-demand aggregate over PAID orders in a window.
// Buckets appear in first-occurrence order of the orders processed.
type RevenueReport struct {
	TotalRevenue      decimal.Decimal      `json:"total_revenue"`
	TotalProfit       decimal.Decimal      `json:"total_profit"`
	TotalOrders       int                  `json:"total_orders"`
	TotalProductsSold int                  `json:"total_products_sold"`
	AverageOrderValue decimal.Decimal      `json:"average_order_value"`
	TopProducts       []*TopSellingProduct `json:"top_selling_products"`
	Periods           []*PeriodRevenue     `json:"revenue_by_periods"`
}
