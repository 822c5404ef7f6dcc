// Package cache holds the in-process dictionary of enum values the
// storefront and admin screens render pickers from. The dictionary is
// static per process and safe for concurrent reads.
package cache

import (
	"sort"
	"sync"

	"github.com/simpledough/dough-manager/internal/entity"
	"golang.org/x/exp/maps"
)

// Dict is the complete dictionary payload served to clients.
type Dict struct {
	OrderStatuses   []string `json:"orderStatuses"`
	PaymentMethods  []string `json:"paymentMethods"`
	DeliveryMethods []string `json:"deliveryMethods"`
	Categories      []string `json:"categories"`
	ToppingTiers    []string `json:"toppingTiers"`
	ReportRanges    []string `json:"reportRanges"`
}

var (
	mu   sync.RWMutex
	dict *Dict
)

// InitDictionaries builds the dictionary from the entity enums. Called once
// on store startup.
func InitDictionaries() {
	mu.Lock()
	defer mu.Unlock()

	d := &Dict{
		ReportRanges: []string{
			entity.RangeToday.String(),
			entity.RangeWeek.String(),
			entity.RangeMonth.String(),
			entity.RangeYear.String(),
		},
	}
	for _, name := range maps.Keys(entity.ValidOrderStatusNames) {
		d.OrderStatuses = append(d.OrderStatuses, name.String())
	}
	for _, name := range maps.Keys(entity.ValidPaymentMethodNames) {
		d.PaymentMethods = append(d.PaymentMethods, string(name))
	}
	for _, name := range maps.Keys(entity.ValidDeliveryMethodNames) {
		d.DeliveryMethods = append(d.DeliveryMethods, string(name))
	}
	for _, name := range maps.Keys(entity.ValidCategories) {
		d.Categories = append(d.Categories, name.String())
	}
	for _, name := range maps.Keys(entity.ValidToppingTiers) {
		d.ToppingTiers = append(d.ToppingTiers, string(name))
	}
	sort.Strings(d.OrderStatuses)
	sort.Strings(d.PaymentMethods)
	sort.Strings(d.DeliveryMethods)
	sort.Strings(d.Categories)
	sort.Strings(d.ToppingTiers)

	dict = d
}

// GetDict returns the dictionary, initializing it on first use.
func GetDict() *Dict {
	mu.RLock()
	d := dict
	mu.RUnlock()
	if d != nil {
		return d
	}
	InitDictionaries()
	mu.RLock()
	defer mu.RUnlock()
	return dict
}
