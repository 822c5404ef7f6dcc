package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simpledough/dough-manager/internal/dependency"
	"github.com/simpledough/dough-manager/internal/entity"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrInsufficientStock is returned when a requested quantity exceeds the
	// available stock for a product. The order is rejected as a whole.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidStatusTransition is returned when an order status update does
	// not follow the fulfillment flow.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

type orderStore struct {
	*MYSQLStore
}

// Order returns an object implementing order interface
func (ms *MYSQLStore) Order() dependency.Order {
	return &orderStore{
		MYSQLStore: ms,
	}
}

// statusFlow defines the allowed next statuses per current status.
// Cancellation is allowed from any non-terminal status.
var statusFlow = map[entity.OrderStatusName][]entity.OrderStatusName{
	entity.Pending:        {entity.Confirmed, entity.Cancelled},
	entity.Confirmed:      {entity.Preparing, entity.Cancelled},
	entity.Preparing:      {entity.Ready, entity.Cancelled},
	entity.Ready:          {entity.OutForDelivery, entity.Delivered, entity.Cancelled},
	entity.OutForDelivery: {entity.Delivered, entity.Cancelled},
}

func statusTransitionAllowed(from, to entity.OrderStatusName) bool {
	for _, s := range statusFlow[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CreateOrder validates the items against the catalog, prices them,
// persists the order with its items and decrements stock, all inside one
// serializable transaction.
func (ms *MYSQLStore) CreateOrder(ctx context.Context, orderNew *entity.OrderNew) (*entity.Order, error) {
	if len(orderNew.Items) == 0 {
		return nil, fmt.Errorf("order has no items")
	}
	if !entity.ValidPaymentMethodNames[orderNew.PaymentMethod] {
		return nil, fmt.Errorf("unknown payment method: %s", orderNew.PaymentMethod)
	}
	if !entity.ValidDeliveryMethodNames[orderNew.DeliveryMethod] {
		return nil, fmt.Errorf("unknown delivery method: %s", orderNew.DeliveryMethod)
	}

	var order *entity.Order
	err := ms.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		items := make([]entity.OrderItem, 0, len(orderNew.Items))
		total := decimal.Zero

		for _, in := range orderNew.Items {
			prd, err := rep.Products().GetProductById(ctx, in.ProductId)
			if err != nil {
				return fmt.Errorf("can't get product %d: %w", in.ProductId, err)
			}
			if prd.Hidden {
				return fmt.Errorf("product %d is not available", in.ProductId)
			}
			if in.Quantity <= 0 {
				return fmt.Errorf("invalid quantity for product %d", in.ProductId)
			}
			if prd.Stock < in.Quantity {
				return fmt.Errorf("product %d: %w", in.ProductId, ErrInsufficientStock)
			}
			if err := validateCustomizations(prd, &in.Customizations); err != nil {
				return err
			}

			unitPrice := prd.PriceDecimal()
			items = append(items, entity.OrderItem{
				ProductId:      sql.NullInt32{Int32: int32(prd.Id), Valid: true},
				ProductName:    sql.NullString{String: prd.Name, Valid: true},
				UnitPrice:      unitPrice,
				Quantity:       in.Quantity,
				TotalPrice:     unitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))).Round(2),
				Customizations: in.Customizations,
			})
			total = total.Add(items[len(items)-1].TotalPrice)
		}

		orderUUID := uuid.New().String()
		orderId, err := ExecNamedLastId(ctx, rep.DB(), `
		INSERT INTO customer_order
			(uuid, created_at, modified, status, total_amount, payment_method, delivery_method, customer_id)
		VALUES
			(:uuid, :createdAt, :createdAt, :status, :totalAmount, :paymentMethod, :deliveryMethod, :customerId)`,
			map[string]any{
				"uuid":           orderUUID,
				"createdAt":      rep.Now(),
				"status":         entity.Pending.String(),
				"totalAmount":    total,
				"paymentMethod":  orderNew.PaymentMethod.String(),
				"deliveryMethod": orderNew.DeliveryMethod.String(),
				"customerId":     orderNew.CustomerId,
			})
		if err != nil {
			return fmt.Errorf("can't insert order: %w", err)
		}

		for i := range items {
			items[i].OrderId = orderId
			rawCustomizations, err := json.Marshal(items[i].Customizations)
			if err != nil {
				return fmt.Errorf("can't marshal customizations: %w", err)
			}
			itemId, err := ExecNamedLastId(ctx, rep.DB(), `
			INSERT INTO order_item
				(order_id, product_id, unit_price, quantity, total_price, customizations)
			VALUES
				(:orderId, :productId, :unitPrice, :quantity, :totalPrice, :customizations)`,
				map[string]any{
					"orderId":        orderId,
					"productId":      items[i].ProductId.Int32,
					"unitPrice":      items[i].UnitPrice,
					"quantity":       items[i].Quantity,
					"totalPrice":     items[i].TotalPrice,
					"customizations": string(rawCustomizations),
				})
			if err != nil {
				return fmt.Errorf("can't insert order item: %w", err)
			}
			items[i].Id = itemId

			if err := decrementStock(ctx, rep, int(items[i].ProductId.Int32), items[i].Quantity); err != nil {
				return fmt.Errorf("can't decrement stock: %w", err)
			}
		}

		order = &entity.Order{
			Id:             orderId,
			UUID:           orderUUID,
			CreatedAt:      rep.Now(),
			Modified:       rep.Now(),
			Status:         entity.Pending,
			TotalAmount:    total,
			PaymentMethod:  sql.NullString{String: orderNew.PaymentMethod.String(), Valid: true},
			DeliveryMethod: sql.NullString{String: orderNew.DeliveryMethod.String(), Valid: true},
			CustomerId:     orderNew.CustomerId,
			Items:          items,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// validateCustomizations checks the chosen flavors and toppings against
// what the catalog product offers.
func validateCustomizations(prd *entity.Product, c *entity.Customizations) error {
	if len(c.Flavors) == 0 && len(c.Toppings) == 0 {
		return nil
	}
	if !prd.Customizable {
		return fmt.Errorf("product %d is not customizable", prd.Id)
	}
	if len(c.Flavors) > prd.MaxFlavors {
		return fmt.Errorf("product %d allows at most %d flavors", prd.Id, prd.MaxFlavors)
	}
	for _, flavor := range c.Flavors {
		if !slices.Contains(prd.Flavors, flavor) {
			return fmt.Errorf("product %d has no flavor %q", prd.Id, flavor)
		}
	}
	for tier, topping := range c.Toppings {
		if !slices.Contains(prd.Toppings[tier], topping) {
			return fmt.Errorf("product %d has no %s topping %q", prd.Id, tier, topping)
		}
	}
	return nil
}

// orderItemRow mirrors order_item joined with the product display name.
type orderItemRow struct {
	Id             int             `db:"id"`
	OrderId        int             `db:"order_id"`
	ProductId      sql.NullInt32   `db:"product_id"`
	ProductName    sql.NullString  `db:"product_name"`
	UnitPrice      decimal.Decimal `db:"unit_price"`
	Quantity       int             `db:"quantity"`
	TotalPrice     decimal.Decimal `db:"total_price"`
	Customizations sql.NullString  `db:"customizations"`
}

func (r *orderItemRow) toOrderItem() (entity.OrderItem, error) {
	item := entity.OrderItem{
		Id:          r.Id,
		OrderId:     r.OrderId,
		ProductId:   r.ProductId,
		ProductName: r.ProductName,
		UnitPrice:   r.UnitPrice,
		Quantity:    r.Quantity,
		TotalPrice:  r.TotalPrice,
	}
	if r.Customizations.Valid && r.Customizations.String != "" {
		if err := json.Unmarshal([]byte(r.Customizations.String), &item.Customizations); err != nil {
			return item, fmt.Errorf("can't unmarshal customizations for item %d: %w", r.Id, err)
		}
	}
	return item, nil
}

const orderItemQuery = `
	SELECT oi.id, oi.order_id, oi.product_id, p.name AS product_name,
		oi.unit_price, oi.quantity, oi.total_price, oi.customizations
	FROM order_item oi
	LEFT JOIN product p ON p.id = oi.product_id`

func (ms *MYSQLStore) itemsByOrderIds(ctx context.Context, orderIds []int) (map[int][]entity.OrderItem, error) {
	if len(orderIds) == 0 {
		return map[int][]entity.OrderItem{}, nil
	}

	rows, err := QueryListNamed[orderItemRow](ctx, ms.db,
		orderItemQuery+` WHERE oi.order_id IN (:orderIds) ORDER BY oi.id`,
		map[string]any{"orderIds": orderIds})
	if err != nil {
		return nil, fmt.Errorf("can't get order items: %w", err)
	}

	byOrder := make(map[int][]entity.OrderItem, len(orderIds))
	for i := range rows {
		item, err := rows[i].toOrderItem()
		if err != nil {
			return nil, err
		}
		byOrder[item.OrderId] = append(byOrder[item.OrderId], item)
	}
	return byOrder, nil
}

const orderColumns = `id, uuid, created_at, modified, status,
	COALESCE(total_amount, 0) AS total_amount, payment_method, delivery_method, customer_id`

func (ms *MYSQLStore) attachItems(ctx context.Context, orders []entity.Order) error {
	ids := make([]int, 0, len(orders))
	for i := range orders {
		ids = append(ids, orders[i].Id)
	}
	byOrder, err := ms.itemsByOrderIds(ctx, ids)
	if err != nil {
		return err
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].Id]
	}
	return nil
}

// GetOrderByUUID returns one order with its items.
func (ms *MYSQLStore) GetOrderByUUID(ctx context.Context, orderUUID string) (*entity.Order, error) {
	order, err := QueryNamedOne[entity.Order](ctx, ms.db,
		`SELECT `+orderColumns+` FROM customer_order WHERE uuid = :uuid`,
		map[string]any{"uuid": orderUUID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("can't get order by uuid: %w", err)
	}

	byOrder, err := ms.itemsByOrderIds(ctx, []int{order.Id})
	if err != nil {
		return nil, err
	}
	order.Items = byOrder[order.Id]
	return &order, nil
}

// GetOrdersByCustomer returns the customer's orders, newest first.
func (ms *MYSQLStore) GetOrdersByCustomer(ctx context.Context, customerId string) ([]entity.Order, error) {
	orders, err := QueryListNamed[entity.Order](ctx, ms.db,
		`SELECT `+orderColumns+` FROM customer_order
		WHERE customer_id = :customerId ORDER BY created_at DESC`,
		map[string]any{"customerId": customerId})
	if err != nil {
		return nil, fmt.Errorf("can't get orders by customer: %w", err)
	}
	if err := ms.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrdersPaged returns orders newest first, optionally filtered by status.
func (ms *MYSQLStore) GetOrdersPaged(ctx context.Context, status entity.OrderStatusName, limit, offset int) ([]entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM customer_order`
	params := map[string]any{
		"limit":  limit,
		"offset": offset,
	}
	if status != "" {
		query += ` WHERE status = :status`
		params["status"] = status.String()
	}
	query += ` ORDER BY created_at DESC LIMIT :limit OFFSET :offset`

	orders, err := QueryListNamed[entity.Order](ctx, ms.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("can't get orders paged: %w", err)
	}
	if err := ms.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus moves the order along the fulfillment flow. Stock is
// restored when the order is cancelled.
func (ms *MYSQLStore) UpdateOrderStatus(ctx context.Context, orderUUID string, status entity.OrderStatusName) error {
	if !entity.ValidOrderStatusNames[status] {
		return fmt.Errorf("unknown order status: %s", status)
	}

	return ms.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		order, err := rep.Order().GetOrderByUUID(ctx, orderUUID)
		if err != nil {
			return err
		}
		if !statusTransitionAllowed(order.Status, status) {
			return fmt.Errorf("%s -> %s: %w", order.Status, status, ErrInvalidStatusTransition)
		}

		if err := ExecNamed(ctx, rep.DB(), `
		UPDATE customer_order SET status = :status, modified = :modified WHERE uuid = :uuid`,
			map[string]any{
				"uuid":     orderUUID,
				"status":   status.String(),
				"modified": rep.Now(),
			}); err != nil {
			return fmt.Errorf("can't update order status: %w", err)
		}

		if status == entity.Cancelled {
			for _, item := range order.Items {
				if !item.ProductId.Valid {
					continue
				}
				if err := ExecNamed(ctx, rep.DB(), `
				UPDATE product SET stock = stock + :quantity WHERE id = :productId`,
					map[string]any{
						"productId": item.ProductId.Int32,
						"quantity":  item.Quantity,
					}); err != nil {
					return fmt.Errorf("can't restore stock: %w", err)
				}
			}
		}
		return nil
	})
}

type staleOrderRow struct {
	UUID string `db:"uuid"`
}

// GetStalePendingOrderUUIDs returns uuids of orders still pending that were
// created before the cutoff, oldest first.
func (ms *MYSQLStore) GetStalePendingOrderUUIDs(ctx context.Context, olderThan time.Time) ([]string, error) {
	rows, err := QueryListNamed[staleOrderRow](ctx, ms.db,
		`SELECT uuid FROM customer_order
		WHERE status = :status AND created_at < :olderThan ORDER BY created_at`,
		map[string]any{
			"status":    entity.Pending.String(),
			"olderThan": olderThan,
		})
	if err != nil {
		return nil, fmt.Errorf("can't get stale pending orders: %w", err)
	}
	uuids := make([]string, 0, len(rows))
	for _, r := range rows {
		uuids = append(uuids, r.UUID)
	}
	return uuids, nil
}

// orderFeedRow is one row of the denormalized reporting feed: an order
// joined with one of its items, or with NULL item columns for empty orders.
type orderFeedRow struct {
	Id             int             `db:"id"`
	UUID           string          `db:"uuid"`
	CreatedAt      time.Time       `db:"created_at"`
	Modified       time.Time       `db:"modified"`
	Status         string          `db:"status"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	PaymentMethod  sql.NullString  `db:"payment_method"`
	DeliveryMethod sql.NullString  `db:"delivery_method"`
	CustomerId     string          `db:"customer_id"`
	ItemId         sql.NullInt32   `db:"item_id"`
	ProductId      sql.NullInt32   `db:"product_id"`
	ProductName    sql.NullString  `db:"product_name"`
	UnitPrice      decimal.Decimal `db:"unit_price"`
	Quantity       sql.NullInt32   `db:"quantity"`
	TotalPrice     decimal.Decimal `db:"total_price"`
}

// GetOrdersForReporting returns the full denormalized order feed with nested
// items and product references in a single query, newest orders first.
// Missing totals coerce to zero and missing product references stay NULL for
// the aggregation layer to handle.
func (ms *MYSQLStore) GetOrdersForReporting(ctx context.Context) ([]entity.Order, error) {
	rows, err := QueryListNamed[orderFeedRow](ctx, ms.db, `
	SELECT co.id, co.uuid, co.created_at, co.modified, co.status,
		COALESCE(co.total_amount, 0) AS total_amount,
		co.payment_method, co.delivery_method, co.customer_id,
		oi.id AS item_id, oi.product_id, p.name AS product_name,
		COALESCE(oi.unit_price, 0) AS unit_price, oi.quantity,
		COALESCE(oi.total_price, 0) AS total_price
	FROM customer_order co
	LEFT JOIN order_item oi ON oi.order_id = co.id
	LEFT JOIN product p ON p.id = oi.product_id
	ORDER BY co.created_at DESC, co.id DESC, oi.id`,
		map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("can't get orders for reporting: %w", err)
	}

	var orders []entity.Order
	index := make(map[int]int)
	for i := range rows {
		r := &rows[i]
		pos, ok := index[r.Id]
		if !ok {
			pos = len(orders)
			index[r.Id] = pos
			orders = append(orders, entity.Order{
				Id:             r.Id,
				UUID:           r.UUID,
				CreatedAt:      r.CreatedAt,
				Modified:       r.Modified,
				Status:         entity.OrderStatusName(r.Status),
				TotalAmount:    r.TotalAmount,
				PaymentMethod:  r.PaymentMethod,
				DeliveryMethod: r.DeliveryMethod,
				CustomerId:     r.CustomerId,
			})
		}
		if r.ItemId.Valid {
			orders[pos].Items = append(orders[pos].Items, entity.OrderItem{
				Id:          int(r.ItemId.Int32),
				OrderId:     r.Id,
				ProductId:   r.ProductId,
				ProductName: r.ProductName,
				UnitPrice:   r.UnitPrice,
				Quantity:    int(r.Quantity.Int32),
				TotalPrice:  r.TotalPrice,
			})
		}
	}
	return orders, nil
}
