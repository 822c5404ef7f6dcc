package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RangeToken is a symbolic report range selector.
type RangeToken string

const (
	RangeToday RangeToken = "today"
	RangeWeek  RangeToken = "week"
	RangeMonth RangeToken = "month"
	RangeYear  RangeToken = "year"
)

func (rt RangeToken) String() string {
	return string(rt)
}

// TimeRange is a half-open interval [From, To).
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the interval.
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.From) && t.Before(tr.To)
}

// ReportSnapshot contains all derived metrics for one (order set, range)
// pair. It is rebuilt from scratch on every recomputation and never
// partially updated.
type ReportSnapshot struct {
	Period         TimeRange
	TotalRevenue   decimal.Decimal
	TotalOrders    int
	AvgOrderValue  decimal.Decimal
	TopProducts    []ProductSales
	RevenueByDay   []DayBucket
	OrdersByStatus map[string]int
	PaymentMethods map[string]int
}

// ProductSales aggregates quantity and revenue for one product display name.
type ProductSales struct {
	Name     string
	Quantity int
	Revenue  decimal.Decimal
}

// DayBucket is one trailing-day window of the 7-day revenue trend.
type DayBucket struct {
	Date    time.Time
	Label   string
	Revenue decimal.Decimal
	Orders  int
}
