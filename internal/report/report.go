// Package report implements the sales-analytics aggregation engine behind
// the admin reporting screen. Every function here is a pure function of its
// order collection and reference instant; aggregation never fails and
// degenerate input always yields a well-defined zero result.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpledough/dough-manager/internal/entity"
)

const (
	// topProductsLimit caps the ranked product list.
	topProductsLimit = 5
	// trendDays is the fixed width of the daily revenue trend.
	trendDays = 7
	// dayLabelFormat renders bucket labels like "Mon, Sep 1".
	dayLabelFormat = "Mon, Jan 2"
)

// ResolveRange maps a symbolic range token to a concrete half-open interval
// [From, To). An unknown token falls back to the today rule; no error is
// raised. Note the asymmetry: week is a rolling 168h window while month and
// year are calendar-aligned. This mirrors the range picker the report screen
// always had and must not be unified without product sign-off.
func ResolveRange(token entity.RangeToken, now time.Time) entity.TimeRange {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch token {
	case entity.RangeWeek:
		return entity.TimeRange{From: now.Add(-trendDays * 24 * time.Hour), To: now}
	case entity.RangeMonth:
		return entity.TimeRange{From: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), To: now}
	case entity.RangeYear:
		return entity.TimeRange{From: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), To: now}
	default:
		return entity.TimeRange{From: midnight, To: midnight.Add(24 * time.Hour)}
	}
}

// FilterByRange returns the orders whose creation instant falls inside tr,
// preserving the original relative order.
func FilterByRange(orders []entity.Order, tr entity.TimeRange) []entity.Order {
	filtered := make([]entity.Order, 0, len(orders))
	for _, o := range orders {
		if tr.Contains(o.CreatedAt) {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// SalesTotals holds the headline metrics for a filtered order set.
type SalesTotals struct {
	Revenue decimal.Decimal
	Orders  int
	Avg     decimal.Decimal
}

// Totals computes revenue, order count and average order value. The average
// is zero when the set is empty.
func Totals(orders []entity.Order) SalesTotals {
	t := SalesTotals{Revenue: decimal.Zero, Avg: decimal.Zero}
	for _, o := range orders {
		t.Revenue = t.Revenue.Add(o.TotalAmount)
	}
	t.Orders = len(orders)
	if t.Orders > 0 {
		t.Avg = t.Revenue.Div(decimal.NewFromInt(int64(t.Orders))).Round(2)
	}
	return t
}

// TopProducts accumulates per-product quantity and revenue over every item
// of every order and returns at most five entries sorted by revenue
// descending. Entries are keyed by the product display name, so two distinct
// products sharing a name merge into one row; ties keep first-seen order.
func TopProducts(orders []entity.Order) []entity.ProductSales {
	index := make(map[string]int)
	var sales []entity.ProductSales
	for _, o := range orders {
		for i := range o.Items {
			item := &o.Items[i]
			name := item.DisplayName()
			pos, ok := index[name]
			if !ok {
				pos = len(sales)
				index[name] = pos
				sales = append(sales, entity.ProductSales{Name: name, Revenue: decimal.Zero})
			}
			sales[pos].Quantity += item.Quantity
			sales[pos].Revenue = sales[pos].Revenue.Add(item.TotalPrice)
		}
	}
	sort.SliceStable(sales, func(i, j int) bool {
		return sales[i].Revenue.GreaterThan(sales[j].Revenue)
	})
	if len(sales) > topProductsLimit {
		sales = sales[:topProductsLimit]
	}
	return sales
}

// RevenueByDay buckets revenue and order counts into the seven trailing
// calendar days ending today, oldest first. It deliberately runs over the
// full unfiltered order feed, so the trend is always "last 7 days from now"
// no matter which report range is selected.
func RevenueByDay(orders []entity.Order, now time.Time) []entity.DayBucket {
	buckets := make([]entity.DayBucket, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		window := entity.TimeRange{From: dayStart, To: dayStart.Add(24 * time.Hour)}

		bucket := entity.DayBucket{
			Date:    dayStart,
			Label:   dayStart.Format(dayLabelFormat),
			Revenue: decimal.Zero,
		}
		for _, o := range orders {
			if window.Contains(o.CreatedAt) {
				bucket.Revenue = bucket.Revenue.Add(o.TotalAmount)
				bucket.Orders++
			}
		}
		buckets = append(buckets, bucket)
	}
	return buckets
}

// unknownKey buckets orders whose categorical field is missing. Orders are
// tallied, never dropped.
const unknownKey = "unknown"

// Breakdowns tallies order counts by status and by payment method. The
// literal stored values are used as keys without canonicalization.
func Breakdowns(orders []entity.Order) (byStatus, byPayment map[string]int) {
	byStatus = make(map[string]int)
	byPayment = make(map[string]int)
	for _, o := range orders {
		status := o.Status.String()
		if status == "" {
			status = unknownKey
		}
		byStatus[status]++

		payment := unknownKey
		if o.PaymentMethod.Valid && o.PaymentMethod.String != "" {
			payment = o.PaymentMethod.String
		}
		byPayment[payment]++
	}
	return byStatus, byPayment
}

// BuildReport derives a complete snapshot from one order collection and one
// range token. Recomputation is total: every derived structure is rebuilt
// from scratch, and repeated calls with identical inputs yield equal values.
func BuildReport(orders []entity.Order, token entity.RangeToken, now time.Time) *entity.ReportSnapshot {
	period := ResolveRange(token, now)
	filtered := FilterByRange(orders, period)

	totals := Totals(filtered)
	byStatus, byPayment := Breakdowns(filtered)

	return &entity.ReportSnapshot{
		Period:         period,
		TotalRevenue:   totals.Revenue,
		TotalOrders:    totals.Orders,
		AvgOrderValue:  totals.Avg,
		TopProducts:    TopProducts(filtered),
		RevenueByDay:   RevenueByDay(orders, now),
		OrdersByStatus: byStatus,
		PaymentMethods: byPayment,
	}
}
