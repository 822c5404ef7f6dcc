package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpledough/dough-manager/internal/dependency"
	"github.com/simpledough/dough-manager/internal/entity"
)

var ErrProductNotFound = errors.New("product not found")

type productsStore struct {
	*MYSQLStore
}

// Products returns an object implementing products interface
func (ms *MYSQLStore) Products() dependency.Products {
	return &productsStore{
		MYSQLStore: ms,
	}
}

// productRow mirrors the product table; flavors and toppings are JSON columns.
type productRow struct {
	Id                int             `db:"id"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
	Name              string          `db:"name"`
	Category          string          `db:"category"`
	Price             decimal.Decimal `db:"price"`
	PieceCount        int             `db:"piece_count"`
	Description       string          `db:"description"`
	ImageURL          string          `db:"image_url"`
	Customizable      bool            `db:"customizable"`
	Flavors           sql.NullString  `db:"flavors"`
	MaxFlavors        int             `db:"max_flavors"`
	Toppings          sql.NullString  `db:"toppings"`
	Stock             int             `db:"stock"`
	LowStockThreshold int             `db:"low_stock_threshold"`
	Hidden            bool            `db:"hidden"`
}

const productColumns = `id, created_at, updated_at, name, category, price, piece_count,
	description, image_url, customizable, flavors, max_flavors, toppings,
	stock, low_stock_threshold, hidden`

func (r *productRow) toProduct() (*entity.Product, error) {
	p := &entity.Product{
		Id:        r.Id,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		ProductInsert: entity.ProductInsert{
			Name:              r.Name,
			Category:          entity.CategoryEnum(r.Category),
			Price:             r.Price,
			PieceCount:        r.PieceCount,
			Description:       r.Description,
			ImageURL:          r.ImageURL,
			Customizable:      r.Customizable,
			MaxFlavors:        r.MaxFlavors,
			Stock:             r.Stock,
			LowStockThreshold: r.LowStockThreshold,
			Hidden:            r.Hidden,
		},
	}
	if r.Flavors.Valid && r.Flavors.String != "" {
		if err := json.Unmarshal([]byte(r.Flavors.String), &p.Flavors); err != nil {
			return nil, fmt.Errorf("can't unmarshal flavors for product %d: %w", r.Id, err)
		}
	}
	if r.Toppings.Valid && r.Toppings.String != "" {
		if err := json.Unmarshal([]byte(r.Toppings.String), &p.Toppings); err != nil {
			return nil, fmt.Errorf("can't unmarshal toppings for product %d: %w", r.Id, err)
		}
	}
	return p, nil
}

func rowsToProducts(rows []productRow) ([]entity.Product, error) {
	products := make([]entity.Product, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toProduct()
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, nil
}

func productParams(prd *entity.ProductInsert) (map[string]any, error) {
	var flavors, toppings any
	if len(prd.Flavors) > 0 {
		raw, err := json.Marshal(prd.Flavors)
		if err != nil {
			return nil, fmt.Errorf("can't marshal flavors: %w", err)
		}
		flavors = string(raw)
	}
	if len(prd.Toppings) > 0 {
		raw, err := json.Marshal(prd.Toppings)
		if err != nil {
			return nil, fmt.Errorf("can't marshal toppings: %w", err)
		}
		toppings = string(raw)
	}
	return map[string]any{
		"name":              prd.Name,
		"category":          prd.Category.String(),
		"price":             prd.PriceDecimal(),
		"pieceCount":        prd.PieceCount,
		"description":       prd.Description,
		"imageUrl":          prd.ImageURL,
		"customizable":      prd.Customizable,
		"flavors":           flavors,
		"maxFlavors":        prd.MaxFlavors,
		"toppings":          toppings,
		"stock":             prd.Stock,
		"lowStockThreshold": prd.LowStockThreshold,
		"hidden":            prd.Hidden,
	}, nil
}

// AddProduct adds a new catalog product along with its customization data.
func (ms *MYSQLStore) AddProduct(ctx context.Context, prd *entity.ProductNew) (int, error) {
	params, err := productParams(prd.Product)
	if err != nil {
		return 0, err
	}

	query := `
	INSERT INTO product
		(name, category, price, piece_count, description, image_url, customizable,
		flavors, max_flavors, toppings, stock, low_stock_threshold, hidden)
	VALUES
		(:name, :category, :price, :pieceCount, :description, :imageUrl, :customizable,
		:flavors, :maxFlavors, :toppings, :stock, :lowStockThreshold, :hidden)`

	id, err := ExecNamedLastId(ctx, ms.db, query, params)
	if err != nil {
		return 0, fmt.Errorf("can't insert product: %w", err)
	}
	return id, nil
}

// UpdateProduct replaces the product body for the given id.
func (ms *MYSQLStore) UpdateProduct(ctx context.Context, prd *entity.ProductNew, id int) error {
	params, err := productParams(prd.Product)
	if err != nil {
		return err
	}
	params["id"] = id

	query := `
	UPDATE product SET
		name = :name,
		category = :category,
		price = :price,
		piece_count = :pieceCount,
		description = :description,
		image_url = :imageUrl,
		customizable = :customizable,
		flavors = :flavors,
		max_flavors = :maxFlavors,
		toppings = :toppings,
		stock = :stock,
		low_stock_threshold = :lowStockThreshold,
		hidden = :hidden
	WHERE id = :id`

	if err := ExecNamed(ctx, ms.db, query, params); err != nil {
		return fmt.Errorf("can't update product: %w", err)
	}
	return nil
}

// GetProducts returns the catalog sorted by category then name; hidden
// products are included only when showHidden is set.
func (ms *MYSQLStore) GetProducts(ctx context.Context, showHidden bool) ([]entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM product`
	if !showHidden {
		query += ` WHERE hidden = FALSE`
	}
	query += ` ORDER BY category, name`

	rows, err := QueryListNamed[productRow](ctx, ms.db, query, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("can't get products: %w", err)
	}
	return rowsToProducts(rows)
}

// GetProductById returns a product by its id no matter hidden or not.
func (ms *MYSQLStore) GetProductById(ctx context.Context, id int) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM product WHERE id = :id`

	row, err := QueryNamedOne[productRow](ctx, ms.db, query, map[string]any{"id": id})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("can't get product by id: %w", err)
	}
	return row.toProduct()
}

// DeleteProductById deletes a product by its id. Order items referencing it
// keep their rows with the product reference nulled out.
func (ms *MYSQLStore) DeleteProductById(ctx context.Context, id int) error {
	if err := ExecNamed(ctx, ms.db, `DELETE FROM product WHERE id = :id`, map[string]any{
		"id": id,
	}); err != nil {
		return fmt.Errorf("can't delete product: %w", err)
	}
	return nil
}

// UpdateProductStock sets the absolute stock count for a product.
func (ms *MYSQLStore) UpdateProductStock(ctx context.Context, id int, stock int) error {
	if err := ExecNamed(ctx, ms.db, `UPDATE product SET stock = :stock WHERE id = :id`, map[string]any{
		"id":    id,
		"stock": stock,
	}); err != nil {
		return fmt.Errorf("can't update product stock: %w", err)
	}
	return nil
}

// GetLowStockProducts returns visible products at or below their low stock threshold.
func (ms *MYSQLStore) GetLowStockProducts(ctx context.Context) ([]entity.Product, error) {
	query := `SELECT ` + productColumns + `
	FROM product
	WHERE hidden = FALSE AND stock <= low_stock_threshold
	ORDER BY stock ASC`

	rows, err := QueryListNamed[productRow](ctx, ms.db, query, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("can't get low stock products: %w", err)
	}
	return rowsToProducts(rows)
}

// decrementStock reduces stock for one product inside an order transaction.
// Stock never goes below zero.
func decrementStock(ctx context.Context, rep dependency.Repository, productId, quantity int) error {
	return ExecNamed(ctx, rep.DB(), `
	UPDATE product SET stock = GREATEST(stock - :quantity, 0) WHERE id = :productId`,
		map[string]any{
			"productId": productId,
			"quantity":  quantity,
		})
}
