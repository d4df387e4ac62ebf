package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nductrung-205/furniture-be/internal/models"
	"github.com/nductrung-205/furniture-be/pkg/apperrors"
	"github.com/nductrung-205/furniture-be/pkg/logger"
)

// PaidOrderStore is the read-only view of persisted orders the aggregator
// consumes.
type PaidOrderStore interface {
	FindPaidBetween(ctx context.Context, start, end time.Time) ([]*models.Order, error)
}

// MarginPolicy derives profit from revenue. The catalog carries no cost
// basis, so the default is a flat fraction of revenue.
type MarginPolicy interface {
	ProfitFor(revenue decimal.Decimal) decimal.Decimal
}

// FlatMargin is a MarginPolicy taking a fixed fraction of revenue as profit
type FlatMargin struct {
	Rate decimal.Decimal
}

// ProfitFor returns revenue multiplied by the flat rate
func (m FlatMargin) ProfitFor(revenue decimal.Decimal) decimal.Decimal {
	return revenue.Mul(m.Rate)
}

// DefaultMargin is the 30% flat margin used when no policy is configured.
var DefaultMargin = FlatMargin{Rate: decimal.NewFromFloat(0.3)}

// ReportService aggregates PAID orders into revenue reports
type ReportService struct {
	orders      PaidOrderStore
	margin      MarginPolicy
	topProducts int
	logger      logger.Logger
}

// NewReportService creates a new ReportService. topProducts caps the
// top-seller ranking; zero or negative falls back to 10.
func NewReportService(orders PaidOrderStore, margin MarginPolicy, topProducts int, logger logger.Logger) *ReportService {
	if margin == nil {
		margin = DefaultMargin
	}

	if topProducts <= 0 {
		topProducts = 10
	}

	return &ReportService{
		orders:      orders,
		margin:      margin,
		topProducts: topProducts,
		logger:      logger,
	}
}

// GenerateReport aggregates all PAID orders created between the start and end
// calendar dates, both inclusive. Buckets follow the first-occurrence order
// of the qualifying orders, which arrive sorted by creation time.
func (s *ReportService) GenerateReport(ctx context.Context, startDate, endDate time.Time, granularity models.Granularity) (*models.RevenueReport, error) {
	if !granularity.IsValid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown report granularity: %s", granularity))
	}

	if endDate.Before(startDate) {
		return nil, apperrors.NewInvalidInputError("end date must not precede start date")
	}

	start := startOfDay(startDate)
	end := endOfDay(endDate)

	orders, err := s.orders.FindPaidBetween(ctx, start, end)

	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to load paid orders: %v", err))
	}

	report := &models.RevenueReport{
		TotalRevenue:      decimal.Zero,
		TotalProfit:       decimal.Zero,
		AverageOrderValue: decimal.Zero,
		TopProducts:       []*models.TopSellingProduct{},
		Periods:           []*models.PeriodRevenue{},
	}

	periodIndex := make(map[string]*models.PeriodRevenue)
	productIndex := make(map[int64]*models.TopSellingProduct)
	productOrder := make([]int64, 0)

	for _, order := range orders {
		report.TotalRevenue = report.TotalRevenue.Add(order.TotalAmount)
		report.TotalOrders++

		unitsInOrder := 0

		for _, item := range order.Items {
			unitsInOrder += item.Quantity

			top, ok := productIndex[item.ProductID]
			if !ok {
				top = &models.TopSellingProduct{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					Revenue:     decimal.Zero,
				}
				productIndex[item.ProductID] = top
				productOrder = append(productOrder, item.ProductID)
			}

			top.QuantitySold += item.Quantity
			top.Revenue = top.Revenue.Add(item.Subtotal)
		}

		report.TotalProductsSold += unitsInOrder

		key := periodKey(order.CreatedAt, granularity)
		bucket, ok := periodIndex[key]
		if !ok {
			bucket = &models.PeriodRevenue{
				Period:  key,
				Revenue: decimal.Zero,
				Profit:  decimal.Zero,
			}
			periodIndex[key] = bucket
			report.Periods = append(report.Periods, bucket)
		}

		bucket.Revenue = bucket.Revenue.Add(order.TotalAmount)
		bucket.Profit = bucket.Profit.Add(s.margin.ProfitFor(order.TotalAmount))
		bucket.OrderCount++
		bucket.ProductsSold += unitsInOrder
	}

	report.TotalProfit = s.margin.ProfitFor(report.TotalRevenue)

	if report.TotalOrders > 0 {
		report.AverageOrderValue = report.TotalRevenue.
			DivRound(decimal.NewFromInt(int64(report.TotalOrders)), 2)
	}

	report.TopProducts = rankTopProducts(productIndex, productOrder, s.topProducts)

	s.logger.Debug("Revenue report generated",
		"start", start,
		"end", end,
		"granularity", granularity,
		"orders", report.TotalOrders)

	return report, nil
}

// QuickReport resolves a named preset to a date range and granularity and
// generates the corresponding report.
func (s *ReportService) QuickReport(ctx context.Context, period models.QuickPeriod, now time.Time) (*models.RevenueReport, error) {
	if !period.IsValid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown quick period: %s", period))
	}

	start, granularity := resolveQuickPeriod(period, now)
	return s.GenerateReport(ctx, start, now, granularity)
}

// resolveQuickPeriod maps a preset onto a window start and bucket size. The
// week preset starts on Monday; quarter and year roll up by month.
func resolveQuickPeriod(period models.QuickPeriod, now time.Time) (time.Time, models.Granularity) {
	switch period {
	case models.QuickPeriodToday:
		return now, models.GranularityDay

	case models.QuickPeriodThisWeek:
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday
		}
		return now.AddDate(0, 0, -(weekday - 1)), models.GranularityDay

	case models.QuickPeriodThisMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), models.GranularityDay

	case models.QuickPeriodThisQuarter:
		quarterStartMonth := time.Month(((int(now.Month())-1)/3)*3 + 1)
		return time.Date(now.Year(), quarterStartMonth, 1, 0, 0, 0, 0, now.Location()), models.GranularityMonth

	case models.QuickPeriodThisYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), models.GranularityMonth

	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), models.GranularityDay
	}
}

// rankTopProducts sorts by units sold descending, keeping the encounter order
// of tied products, and truncates to the limit.
func rankTopProducts(index map[int64]*models.TopSellingProduct, order []int64, limit int) []*models.TopSellingProduct {
	ranked := make([]*models.TopSellingProduct, 0, len(order))

	for _, id := range order {
		ranked = append(ranked, index[id])
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].QuantitySold > ranked[j].QuantitySold
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked
}

// periodKey formats an order timestamp into its bucket key
func periodKey(t time.Time, granularity models.Granularity) string {
	switch granularity {
	case models.GranularityDay:
		return t.Format("2006-01-02")
	case models.GranularityWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case models.GranularityMonth:
		return t.Format("2006-01")
	case models.GranularityYear:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
