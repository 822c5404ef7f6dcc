package mail

import (
	"context"
	"fmt"

	"github.com/simpledough/dough-manager/internal/currency"
	"github.com/simpledough/dough-manager/internal/entity"
)

const (
	OrderReceipt = "order_receipt.gohtml"
	LowStock     = "low_stock.gohtml"
)

var templateSubjects = map[templateName]string{
	OrderReceipt: "Your Simple Dough receipt",
	LowStock:     "Low stock alert",
}

type receiptItem struct {
	Name      string
	Quantity  int
	LinePrice string
}

type receiptData struct {
	OrderUUID      string
	Status         string
	DeliveryMethod string
	PaymentMethod  string
	Items          []receiptItem
	Total          string
}

// SendOrderReceipt queues the order receipt email for the customer.
func (m *Mailer) SendOrderReceipt(ctx context.Context, to string, order *entity.Order) error {
	if order == nil || order.UUID == "" {
		return fmt.Errorf("incomplete order for receipt")
	}

	data := receiptData{
		OrderUUID:      order.UUID,
		Status:         order.Status.String(),
		DeliveryMethod: order.DeliveryMethod.String,
		PaymentMethod:  order.PaymentMethod.String,
		Total:          currency.PesoExact(order.TotalAmountDecimal()),
	}
	for _, item := range order.Items {
		data.Items = append(data.Items, receiptItem{
			Name:      item.DisplayName(),
			Quantity:  item.Quantity,
			LinePrice: currency.PesoExact(item.TotalPrice),
		})
	}

	return m.send(ctx, to, OrderReceipt, templateSubjects[OrderReceipt], data)
}

type lowStockData struct {
	Products []lowStockProduct
}

type lowStockProduct struct {
	Name  string
	Stock int
}

// SendLowStockAlert queues a stock alert for the shop owner.
func (m *Mailer) SendLowStockAlert(ctx context.Context, to string, products []entity.Product) error {
	if len(products) == 0 {
		return nil
	}
	data := lowStockData{}
	for _, p := range products {
		data.Products = append(data.Products, lowStockProduct{Name: p.Name, Stock: p.Stock})
	}
	return m.send(ctx, to, LowStock, templateSubjects[LowStock], data)
}
