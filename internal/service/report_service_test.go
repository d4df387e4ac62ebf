package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nductrung-205/furniture-be/internal/models"
	"github.com/nductrung-205/furniture-be/pkg/apperrors"
	"github.com/nductrung-205/furniture-be/pkg/logger"
)

// paidOrdersFixture returns orders sorted by creation time, the way the
// repository delivers them.
type paidOrdersFixture struct {
	orders []*models.Order
}

func (f *paidOrdersFixture) FindPaidBetween(ctx context.Context, start, end time.Time) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if !o.CreatedAt.Before(start) && !o.CreatedAt.After(end) {
			out = append(out, o)
		}
	}
	return out, nil
}

func paidOrder(createdAt time.Time, total string, items ...*models.OrderItem) *models.Order {
	return &models.Order{
		OrderNumber:   models.NewOrderNumber(),
		Status:        models.OrderStatusDelivered,
		PaymentStatus: models.PaymentStatusPaid,
		TotalAmount:   decimal.RequireFromString(total),
		CreatedAt:     createdAt,
		Items:         items,
	}
}

func line(productID int64, quantity int, subtotal string) *models.OrderItem {
	return &models.OrderItem{
		ProductID:   productID,
		ProductName: fmt.Sprintf("product-%d", productID),
		Quantity:    quantity,
		Subtotal:    decimal.RequireFromString(subtotal),
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func newReportTestService(fixture *paidOrdersFixture, topProducts int) *ReportService {
	return NewReportService(fixture, nil, topProducts, logger.NopLogger{})
}

func TestGenerateReportEmptyWindow(t *testing.T) {
	svc := newReportTestService(&paidOrdersFixture{}, 10)

	report, err := svc.GenerateReport(context.Background(),
		day(2024, time.January, 1), day(2024, time.January, 31), models.GranularityMonth)
	require.NoError(t, err)

	assert.True(t, report.TotalRevenue.IsZero())
	assert.True(t, report.TotalProfit.IsZero())
	assert.True(t, report.AverageOrderValue.IsZero())
	assert.Zero(t, report.TotalOrders)
	assert.Zero(t, report.TotalProductsSold)
	assert.Empty(t, report.TopProducts)
	assert.Empty(t, report.Periods)
}

func TestGenerateReportMonthlyBuckets(t *testing.T) {
	fixture := &paidOrdersFixture{orders: []*models.Order{
		paidOrder(day(2024, time.January, 10), "100.00", line(1, 2, "100.00")),
		paidOrder(day(2024, time.February, 5), "200.00", line(2, 1, "200.00")),
	}}
	svc := newReportTestService(fixture, 10)

	report, err := svc.GenerateReport(context.Background(),
		day(2024, time.January, 1), day(2024, time.February, 29), models.GranularityMonth)
	require.NoError(t, err)

	assert.True(t, report.TotalRevenue.Equal(decimal.RequireFromString("300.00")))
	assert.True(t, report.TotalProfit.Equal(decimal.RequireFromString("90.00")),
		"profit is 30%% of revenue, got %s", report.TotalProfit)
	assert.True(t, report.AverageOrderValue.Equal(decimal.RequireFromString("150.00")))
	assert.Equal(t, 2, report.TotalOrders)
	assert.Equal(t, 3, report.TotalProductsSold)

	require.Len(t, report.Periods, 2)
	assert.Equal(t, "2024-01", report.Periods[0].Period)
	assert.True(t, report.Periods[0].Revenue.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, report.Periods[0].Profit.Equal(decimal.RequireFromString("30.00")))
	assert.Equal(t, 1, report.Periods[0].OrderCount)
	assert.Equal(t, "2024-02", report.Periods[1].Period)
	assert.True(t, report.Periods[1].Revenue.Equal(decimal.RequireFromString("200.00")))
}

func TestGenerateReportAverageRoundsHalfUp(t *testing.T) {
	fixture := &paidOrdersFixture{orders: []*models.Order{
		paidOrder(day(2024, time.March, 1), "10.00", line(1, 1, "10.00")),
		paidOrder(day(2024, time.March, 2), "10.00", line(1, 1, "10.00")),
		paidOrder(day(2024, time.March, 3), "10.01", line(1, 1, "10.01")),
	}}
	svc := newReportTestService(fixture, 10)

	report, err := svc.GenerateReport(context.Background(),
		day(2024, time.March, 1), day(2024, time.March, 31), models.GranularityDay)
	require.NoError(t, err)

	// 30.01 / 3 = 10.003333 -> 10.00 at two decimal places
	assert.True(t, report.AverageOrderValue.Equal(decimal.RequireFromString("10.00")),
		"got %s", report.AverageOrderValue)
}

func TestGenerateReportDayAndWeekKeys(t *testing.T) {
	// 2024-12-30 falls in ISO week 1 of 2025
	fixture := &paidOrdersFixture{orders: []*models.Order{
		paidOrder(day(2024, time.December, 30), "50.00", line(1, 1, "50.00")),
	}}
	svc := newReportTestService(fixture, 10)

	report, err := svc.GenerateReport(context.Background(),
		day(2024, time.December, 30), day(2024, time.December, 31), models.GranularityDay)
	require.NoError(t, err)
	require.Len(t, report.Periods, 1)
	assert.Equal(t, "2024-12-30", report.Periods[0].Period)

	report, err = svc.GenerateReport(context.Background(),
		day(2024, time.December, 30), day(2024, time.December, 31), models.GranularityWeek)
	require.NoError(t, err)
	require.Len(t, report.Periods, 1)
	assert.Equal(t, "2025-W01", report.Periods[0].Period)

	report, err = svc.GenerateReport(context.Background(),
		day(2024, time.December, 30), day(2024, time.December, 31), models.GranularityYear)
	require.NoError(t, err)
	require.Len(t, report.Periods, 1)
	assert.Equal(t, "2024", report.Periods[0].Period)
}

func TestGenerateReportWindowIsInclusive(t *testing.T) {
	fixture := &paidOrdersFixture{orders: []*models.Order{
		paidOrder(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), "10.00", line(1, 1, "10.00")),
		paidOrder(time.Date(2024, time.May, 31, 23, 59, 0, 0, time.UTC), "20.00", line(1, 1, "20.00")),
		paidOrder(time.Date(2024, time.June, 1, 0, 0, 1, 0, time.UTC), "40.00", line(1, 1, "40.00")),
	}}
	svc := newReportTestService(fixture, 10)

	report, err := svc.GenerateReport(context.Background(),
		day(2024, time.May, 1), day(2024, time.May, 31), models.GranularityMonth)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalOrders)
	assert.True(t, report.TotalRevenue.Equal(decimal.RequireFromString("30.00")))
}

func TestGenerateReportValidation(t *testing.T) {
	svc := newReportTestService(&paidOrdersFixture{}, 10)

	_, err := svc.GenerateReport(context.Background(),
		day(2024, time.January, 1), day(2024, time.January, 31), "HOURLY")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.GenerateReport(context.Background(),
		day(2024, time.February, 1), day(2024, time.January, 1), models.GranularityDay)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestTopProductsRankingAndTruncation(t *testing.T) {
	fixture := &paidOrdersFixture{orders: []*models.Order{
		paidOrder(day(2024, time.April, 1), "90.00",
			line(1, 3, "30.00"), line(2, 5, "50.00"), line(3, 1, "10.00")),
		paidOrder(day(2024, time.April, 2), "40.00",
			line(4, 3, "30.00"), line(3, 1, "10.00")),
	}}
	svc := newReportTestService(fixture, 3)

	report, err := svc.GenerateReport(context.Background(),
		day(2024, time.April, 1), day(2024, time.April, 30), models.GranularityDay)
	require.NoError(t, err)

	require.Len(t, report.TopProducts, 3, "list truncated to the configured limit")
	assert.Equal(t, int64(2), report.TopProducts[0].ProductID)
	assert.Equal(t, "product-2", report.TopProducts[0].ProductName)
	assert.Equal(t, 5, report.TopProducts[0].QuantitySold)
	assert.True(t, report.TopProducts[0].Revenue.Equal(decimal.RequireFromString("50.00")))

	// products 1 and 4 tie at 3 units; first-seen order wins
	assert.Equal(t, int64(1), report.TopProducts[1].ProductID)
	assert.Equal(t, int64(4), report.TopProducts[2].ProductID)
}

func TestCustomMarginPolicy(t *testing.T) {
	fixture := &paidOrdersFixture{orders: []*models.Order{
		paidOrder(day(2024, time.July, 1), "100.00", line(1, 1, "100.00")),
	}}
	svc := NewReportService(fixture, FlatMargin{Rate: decimal.RequireFromString("0.5")}, 10, logger.NopLogger{})

	report, err := svc.GenerateReport(context.Background(),
		day(2024, time.July, 1), day(2024, time.July, 31), models.GranularityMonth)
	require.NoError(t, err)

	assert.True(t, report.TotalProfit.Equal(decimal.RequireFromString("50.00")))
}

func TestQuickReportResolution(t *testing.T) {
	// Wednesday 2024-06-12
	now := time.Date(2024, time.June, 12, 15, 0, 0, 0, time.UTC)

	fixture := &paidOrdersFixture{orders: []*models.Order{
		// Sunday: outside the Monday-start week, still inside month/quarter/year
		paidOrder(time.Date(2024, time.June, 9, 10, 0, 0, 0, time.UTC), "10.00", line(1, 1, "10.00")),
		paidOrder(time.Date(2024, time.June, 10, 10, 0, 0, 0, time.UTC), "20.00", line(1, 1, "20.00")), // Monday
		paidOrder(time.Date(2024, time.June, 12, 10, 0, 0, 0, time.UTC), "40.00", line(1, 1, "40.00")),
		paidOrder(time.Date(2024, time.May, 20, 10, 0, 0, 0, time.UTC), "80.00", line(1, 1, "80.00")),
		paidOrder(time.Date(2024, time.January, 5, 10, 0, 0, 0, time.UTC), "160.00", line(1, 1, "160.00")),
	}}
	svc := newReportTestService(fixture, 10)

	tests := []struct {
		period  models.QuickPeriod
		revenue string
		buckets models.Granularity
	}{
		{models.QuickPeriodToday, "40.00", models.GranularityDay},
		{models.QuickPeriodThisWeek, "60.00", models.GranularityDay},
		{models.QuickPeriodThisMonth, "70.00", models.GranularityDay},
		{models.QuickPeriodThisQuarter, "150.00", models.GranularityMonth},
		{models.QuickPeriodThisYear, "310.00", models.GranularityMonth},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			report, err := svc.QuickReport(context.Background(), tt.period, now)
			require.NoError(t, err)
			assert.True(t, report.TotalRevenue.Equal(decimal.RequireFromString(tt.revenue)),
				"got %s", report.TotalRevenue)
		})
	}
}

func TestQuickReportUnknownPeriod(t *testing.T) {
	svc := newReportTestService(&paidOrdersFixture{}, 10)

	_, err := svc.QuickReport(context.Background(), "LAST_DECADE", time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}
