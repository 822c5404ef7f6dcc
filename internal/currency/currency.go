// Package currency formats peso amounts for receipts, report views and
// storefront prices.
package currency

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const pesoSign = "₱"

var printer = message.NewPrinter(language.English)

// Peso renders a headline amount with the peso sign and grouped thousands,
// dropping the minor units: ₱12,500.
func Peso(d decimal.Decimal) string {
	v, _ := d.Round(0).Float64()
	return pesoSign + printer.Sprint(number.Decimal(v, number.MaxFractionDigits(0)))
}

// PesoExact renders an amount with the peso sign, grouped thousands and two
// minor-unit digits: ₱12,500.50.
func PesoExact(d decimal.Decimal) string {
	v, _ := d.Round(2).Float64()
	return pesoSign + printer.Sprint(number.Decimal(v,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
}
