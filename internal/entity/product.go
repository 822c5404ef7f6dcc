package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductNew struct {
	Product *ProductInsert `valid:"required"`
}

// Product represents the products table
type Product struct {
	Id        int       `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	ProductInsert
}

type ProductInsert struct {
	Name              string                   `db:"name" valid:"required"`
	Category          CategoryEnum             `db:"category" valid:"required"`
	Price             decimal.Decimal          `db:"price"`
	PieceCount        int                      `db:"piece_count"`
	Description       string                   `db:"description"`
	ImageURL          string                   `db:"image_url"`
	Customizable      bool                     `db:"customizable"`
	Flavors           []string                 `db:"-"`
	MaxFlavors        int                      `db:"max_flavors"`
	Toppings          map[ToppingTier][]string `db:"-"`
	Stock             int                      `db:"stock"`
	LowStockThreshold int                      `db:"low_stock_threshold"`
	Hidden            bool                     `db:"hidden"`
}

func (p *ProductInsert) PriceDecimal() decimal.Decimal {
	return p.Price.Round(2)
}

// IsLowStock reports whether the product stock fell to or below its threshold.
func (p *ProductInsert) IsLowStock() bool {
	return p.Stock <= p.LowStockThreshold
}

type CategoryEnum string

const (
	Party CategoryEnum = "party"
	Messy CategoryEnum = "messy"
	Mini  CategoryEnum = "mini"
)

func (ce CategoryEnum) String() string {
	return string(ce)
}

// ValidCategories is a set of valid product categories
var ValidCategories = map[CategoryEnum]bool{
	Party: true,
	Messy: true,
	Mini:  true,
}

// ToppingTier is the custom type to enforce enum-like behavior
type ToppingTier string

const (
	ToppingClassic ToppingTier = "classic"
	ToppingPremium ToppingTier = "premium"
)

var ValidToppingTiers = map[ToppingTier]bool{
	ToppingClassic: true,
	ToppingPremium: true,
}
