package entity

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type OrderNew struct {
	Items          []OrderItemInsert  `valid:"required"`
	CustomerId     string             `valid:"required"`
	PaymentMethod  PaymentMethodName  `valid:"required"`
	DeliveryMethod DeliveryMethodName `valid:"required"`
}

type OrderFull struct {
	Order      Order
	OrderItems []OrderItem
}

// Order represents the customer_order table
type Order struct {
	Id             int             `db:"id"`
	UUID           string          `db:"uuid"`
	CreatedAt      time.Time       `db:"created_at"`
	Modified       time.Time       `db:"modified"`
	Status         OrderStatusName `db:"status"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	PaymentMethod  sql.NullString  `db:"payment_method"`
	DeliveryMethod sql.NullString  `db:"delivery_method"`
	CustomerId     string          `db:"customer_id"`
	Items          []OrderItem     `db:"-"`
}

func (o *Order) TotalAmountDecimal() decimal.Decimal {
	return o.TotalAmount.Round(2)
}

// OrderItem represents the order_item table joined with its product reference.
// TotalPrice is the authoritative line price; it is never recomputed from
// quantity and unit price.
type OrderItem struct {
	Id          int             `db:"id"`
	OrderId     int             `db:"order_id"`
	ProductId   sql.NullInt32   `db:"product_id"`
	ProductName sql.NullString  `db:"product_name"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	Quantity    int             `db:"quantity"`
	TotalPrice  decimal.Decimal `db:"total_price"`
	Customizations
}

// DisplayName returns the product display name with the feed's defensive
// placeholder for missing product references.
func (oi *OrderItem) DisplayName() string {
	if !oi.ProductName.Valid || oi.ProductName.String == "" {
		return "Unknown"
	}
	return oi.ProductName.String
}

type OrderItemInsert struct {
	ProductId      int             `db:"product_id" valid:"required"`
	Quantity       int             `db:"quantity" valid:"required"`
	TotalPrice     decimal.Decimal `db:"total_price"`
	Customizations Customizations  `db:"-"`
}

// Customizations holds the chosen flavors and the topping choice per tier.
type Customizations struct {
	Flavors  []string               `db:"-" json:"flavors"`
	Toppings map[ToppingTier]string `db:"-" json:"toppings"`
}

// OrderStatusName is the custom type to enforce enum-like behavior
type OrderStatusName string

func (osn OrderStatusName) String() string {
	return string(osn)
}

const (
	Pending        OrderStatusName = "pending"
	Confirmed      OrderStatusName = "confirmed"
	Preparing      OrderStatusName = "preparing"
	Ready          OrderStatusName = "ready"
	OutForDelivery OrderStatusName = "out_for_delivery"
	Delivered      OrderStatusName = "delivered"
	Cancelled      OrderStatusName = "cancelled"
)

// ValidOrderStatusNames is a set of valid order status names
var ValidOrderStatusNames = map[OrderStatusName]bool{
	Pending:        true,
	Confirmed:      true,
	Preparing:      true,
	Ready:          true,
	OutForDelivery: true,
	Delivered:      true,
	Cancelled:      true,
}

type PaymentMethodName string

func (pmn PaymentMethodName) String() string {
	return string(pmn)
}

const (
	GCASH PaymentMethodName = "gcash"
	COD   PaymentMethodName = "cod"
)

// ValidPaymentMethodNames is a set of valid payment method names
var ValidPaymentMethodNames = map[PaymentMethodName]bool{
	GCASH: true,
	COD:   true,
}

type DeliveryMethodName string

func (dmn DeliveryMethodName) String() string {
	return string(dmn)
}

const (
	Pickup   DeliveryMethodName = "pickup"
	Delivery DeliveryMethodName = "delivery"
)

var ValidDeliveryMethodNames = map[DeliveryMethodName]bool{
	Pickup:   true,
	Delivery: true,
}
