package report

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpledough/dough-manager/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.June, 15, 14, 30, 0, 0, time.UTC)

func orderAt(t time.Time, total string, status entity.OrderStatusName, payment string, items ...entity.OrderItem) entity.Order {
	o := entity.Order{
		CreatedAt:   t,
		Status:      status,
		TotalAmount: decimal.RequireFromString(total),
		Items:       items,
	}
	if payment != "" {
		o.PaymentMethod = sql.NullString{String: payment, Valid: true}
	}
	return o
}

func item(name string, qty int, total string) entity.OrderItem {
	return entity.OrderItem{
		ProductName: sql.NullString{String: name, Valid: name != ""},
		Quantity:    qty,
		TotalPrice:  decimal.RequireFromString(total),
	}
}

func TestResolveRange(t *testing.T) {
	midnight := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

	tr := ResolveRange(entity.RangeToday, testNow)
	assert.True(t, tr.From.Equal(midnight))
	assert.True(t, tr.To.Equal(midnight.Add(24*time.Hour)))

	// week is a rolling 168h window, not midnight-aligned
	tr = ResolveRange(entity.RangeWeek, testNow)
	assert.True(t, tr.From.Equal(testNow.Add(-168*time.Hour)))
	assert.True(t, tr.To.Equal(testNow))

	tr = ResolveRange(entity.RangeMonth, testNow)
	assert.True(t, tr.From.Equal(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, tr.To.Equal(testNow))

	tr = ResolveRange(entity.RangeYear, testNow)
	assert.True(t, tr.From.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, tr.To.Equal(testNow))

	// unknown token silently falls back to today
	tr = ResolveRange(entity.RangeToken("quarter"), testNow)
	assert.True(t, tr.From.Equal(midnight))
	assert.True(t, tr.To.Equal(midnight.Add(24*time.Hour)))
}

func TestFilterByRangeHalfOpen(t *testing.T) {
	from := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	tr := entity.TimeRange{From: from, To: to}

	orders := []entity.Order{
		orderAt(from.Add(-time.Nanosecond), "1", entity.Pending, "cod"),
		orderAt(from, "2", entity.Pending, "cod"),
		orderAt(to.Add(-time.Nanosecond), "3", entity.Pending, "cod"),
		orderAt(to, "4", entity.Pending, "cod"),
	}

	got := FilterByRange(orders, tr)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].TotalAmount.String())
	assert.Equal(t, "3", got[1].TotalAmount.String())
}

func TestTotals(t *testing.T) {
	empty := Totals(nil)
	assert.True(t, empty.Revenue.IsZero())
	assert.Zero(t, empty.Orders)
	assert.True(t, empty.Avg.IsZero())

	got := Totals([]entity.Order{
		orderAt(testNow, "100.50", entity.Delivered, "gcash"),
		orderAt(testNow, "49.50", entity.Pending, "cod"),
		orderAt(testNow, "0", entity.Cancelled, "cod"),
	})
	assert.Equal(t, 3, got.Orders)
	assert.Equal(t, "150", got.Revenue.String())
	assert.Equal(t, "50", got.Avg.String())
}

func TestTopProducts(t *testing.T) {
	t.Run("merges by display name and truncates to five", func(t *testing.T) {
		orders := []entity.Order{
			orderAt(testNow, "0", entity.Delivered, "cod",
				item("Party Box", 2, "500"),
				item("Mini Dozen", 1, "150"),
			),
			orderAt(testNow, "0", entity.Delivered, "cod",
				// same display name as above merges into one row
				item("Party Box", 1, "250"),
				item("Messy Half", 1, "300"),
				item("Glazed Six", 1, "120"),
				item("Choco Six", 1, "110"),
				item("Sugar Six", 1, "100"),
			),
		}

		got := TopProducts(orders)
		require.Len(t, got, 5)
		assert.Equal(t, "Party Box", got[0].Name)
		assert.Equal(t, 3, got[0].Quantity)
		assert.Equal(t, "750", got[0].Revenue.String())
		assert.Equal(t, "Messy Half", got[1].Name)
		// "Sugar Six" at 100 is the one cut off
		for _, ps := range got {
			assert.NotEqual(t, "Sugar Six", ps.Name)
		}
	})

	t.Run("revenue ties keep first-seen order", func(t *testing.T) {
		orders := []entity.Order{
			orderAt(testNow, "0", entity.Delivered, "cod",
				item("Alpha", 1, "100"),
				item("Beta", 1, "100"),
			),
		}
		got := TopProducts(orders)
		require.Len(t, got, 2)
		assert.Equal(t, "Alpha", got[0].Name)
		assert.Equal(t, "Beta", got[1].Name)
	})

	t.Run("missing product reference falls back to placeholder", func(t *testing.T) {
		orders := []entity.Order{
			orderAt(testNow, "0", entity.Delivered, "cod",
				item("", 1, "60"),
				item("", 2, "40"),
			),
		}
		got := TopProducts(orders)
		require.Len(t, got, 1)
		assert.Equal(t, "Unknown", got[0].Name)
		assert.Equal(t, 3, got[0].Quantity)
		assert.Equal(t, "100", got[0].Revenue.String())
	})
}

func TestRevenueByDay(t *testing.T) {
	orders := []entity.Order{
		orderAt(testNow.Add(-2*time.Hour), "100", entity.Delivered, "cod"),
		orderAt(testNow.AddDate(0, 0, -3), "250", entity.Delivered, "gcash"),
		orderAt(testNow.AddDate(0, 0, -3).Add(time.Hour), "50", entity.Pending, "cod"),
		// outside the trailing week, must not appear
		orderAt(testNow.AddDate(0, 0, -10), "999", entity.Delivered, "cod"),
	}

	got := RevenueByDay(orders, testNow)
	require.Len(t, got, 7)

	// oldest first, ending today
	assert.Equal(t, time.Date(2024, time.June, 9, 0, 0, 0, 0, time.UTC), got[0].Date)
	assert.Equal(t, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), got[6].Date)
	assert.Equal(t, "Sat, Jun 15", got[6].Label)

	assert.Equal(t, "100", got[6].Revenue.String())
	assert.Equal(t, 1, got[6].Orders)
	assert.Equal(t, "300", got[3].Revenue.String())
	assert.Equal(t, 2, got[3].Orders)
	assert.True(t, got[0].Revenue.IsZero())
	assert.Zero(t, got[0].Orders)
}

func TestBreakdowns(t *testing.T) {
	orders := []entity.Order{
		orderAt(testNow, "1", entity.Delivered, "gcash"),
		orderAt(testNow, "1", entity.Delivered, "cod"),
		orderAt(testNow, "1", entity.Pending, ""),
		// stored literal is kept as-is, no canonicalization
		orderAt(testNow, "1", entity.OrderStatusName("Refunded"), "GCash"),
	}

	byStatus, byPayment := Breakdowns(orders)
	assert.Equal(t, map[string]int{
		"delivered": 2,
		"pending":   1,
		"Refunded":  1,
	}, byStatus)
	assert.Equal(t, map[string]int{
		"gcash":   1,
		"cod":     1,
		"unknown": 1,
		"GCash":   1,
	}, byPayment)
}

func TestBuildReport(t *testing.T) {
	orders := []entity.Order{
		orderAt(testNow.Add(-time.Hour), "200", entity.Delivered, "gcash",
			item("Party Box", 1, "200"),
		),
		// yesterday: outside today's range but inside the 7-day trend
		orderAt(testNow.AddDate(0, 0, -1), "300", entity.Delivered, "cod",
			item("Messy Half", 1, "300"),
		),
	}

	snap := BuildReport(orders, entity.RangeToday, testNow)
	assert.Equal(t, 1, snap.TotalOrders)
	assert.Equal(t, "200", snap.TotalRevenue.String())
	assert.Equal(t, "200", snap.AvgOrderValue.String())
	require.Len(t, snap.TopProducts, 1)
	assert.Equal(t, "Party Box", snap.TopProducts[0].Name)

	// the daily trend runs over the full unfiltered feed
	require.Len(t, snap.RevenueByDay, 7)
	assert.Equal(t, "300", snap.RevenueByDay[5].Revenue.String())
	assert.Equal(t, "200", snap.RevenueByDay[6].Revenue.String())

	assert.Equal(t, map[string]int{"delivered": 1}, snap.OrdersByStatus)
	assert.Equal(t, map[string]int{"gcash": 1}, snap.PaymentMethods)
}

func TestBuildReportEmptyFeed(t *testing.T) {
	snap := BuildReport(nil, entity.RangeMonth, testNow)
	assert.Zero(t, snap.TotalOrders)
	assert.True(t, snap.TotalRevenue.IsZero())
	assert.True(t, snap.AvgOrderValue.IsZero())
	assert.Empty(t, snap.TopProducts)
	require.Len(t, snap.RevenueByDay, 7)
	assert.Empty(t, snap.OrdersByStatus)
	assert.Empty(t, snap.PaymentMethods)
}

type stubOrderRepo struct {
	orders []entity.Order
	err    error
	calls  int
}

func (s *stubOrderRepo) CreateOrder(context.Context, *entity.OrderNew) (*entity.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) GetOrderByUUID(context.Context, string) (*entity.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) GetOrdersByCustomer(context.Context, string) ([]entity.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) GetOrdersPaged(context.Context, entity.OrderStatusName, int, int) ([]entity.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) UpdateOrderStatus(context.Context, string, entity.OrderStatusName) error {
	return nil
}
func (s *stubOrderRepo) GetStalePendingOrderUUIDs(context.Context, time.Time) ([]string, error) {
	return nil, nil
}
func (s *stubOrderRepo) GetOrdersForReporting(context.Context) ([]entity.Order, error) {
	s.calls++
	return s.orders, s.err
}

func TestServiceMemoization(t *testing.T) {
	repo := &stubOrderRepo{orders: []entity.Order{
		orderAt(testNow.Add(-time.Hour), "120", entity.Delivered, "cod"),
	}}
	svc := NewService(repo)
	svc.now = func() time.Time { return testNow }
	svc.Refresh(context.Background())
	require.Equal(t, 1, svc.FeedSize())

	first := svc.GetReport(entity.RangeToday)
	second := svc.GetReport(entity.RangeToday)
	assert.Same(t, first, second)

	other := svc.GetReport(entity.RangeWeek)
	assert.NotSame(t, first, other)

	// a new feed invalidates memoized snapshots
	svc.Refresh(context.Background())
	third := svc.GetReport(entity.RangeToday)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, repo.calls)
}

func TestServiceCloseDiscardsLateRefresh(t *testing.T) {
	repo := &stubOrderRepo{orders: []entity.Order{
		orderAt(testNow.Add(-time.Hour), "120", entity.Delivered, "cod"),
	}}
	svc := NewService(repo)
	svc.now = func() time.Time { return testNow }
	svc.Refresh(context.Background())
	require.Equal(t, 1, svc.FeedSize())

	svc.Close()
	repo.orders = append(repo.orders,
		orderAt(testNow.Add(-2*time.Hour), "80", entity.Delivered, "cod"))
	svc.Refresh(context.Background())

	// the refresh after Close never installs
	assert.Equal(t, 1, svc.FeedSize())
}

func TestServiceRefreshFailureServesEmptyFeed(t *testing.T) {
	repo := &stubOrderRepo{err: errors.New("db gone")}
	svc := NewService(repo)
	svc.now = func() time.Time { return testNow }
	svc.Refresh(context.Background())

	assert.Zero(t, svc.FeedSize())
	snap := svc.GetReport(entity.RangeYear)
	assert.Zero(t, snap.TotalOrders)
	assert.True(t, snap.TotalRevenue.IsZero())
}
