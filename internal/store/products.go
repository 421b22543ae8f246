package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tanakrit-dev/backend-pos/internal/money"
)

// Product is a catalog product.
type Product struct {
	ID        int64       `json:"id"`
	Barcode   string      `json:"barcode,omitempty"`
	Name      string      `json:"name"`
	BasePrice money.Money `json:"basePrice"`
	ByWeight  bool        `json:"byWeight"`
	Active    bool        `json:"active"`
}

// ProductModifier is an optional priced add-on configured for a product.
type ProductModifier struct {
	ID        int64       `json:"id"`
	ProductID int64       `json:"productId"`
	Name      string      `json:"name"`
	Price     money.Money `json:"price"`
}

// ListProducts returns active products ordered by name.
func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, COALESCE(barcode, ''), name, base_price, by_weight, active
		FROM products
		WHERE active = true
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0, 64)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Barcode, &p.Name, &p.BasePrice, &p.ByWeight, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct loads one product by id.
func (s *Store) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := s.Pool.QueryRow(ctx, `
		SELECT id, COALESCE(barcode, ''), name, base_price, by_weight, active
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Barcode, &p.Name, &p.BasePrice, &p.ByWeight, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// GetProductByBarcode loads one product by its barcode.
func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (Product, error) {
	var p Product
	err := s.Pool.QueryRow(ctx, `
		SELECT id, COALESCE(barcode, ''), name, base_price, by_weight, active
		FROM products
		WHERE barcode = $1
	`, barcode).Scan(&p.ID, &p.Barcode, &p.Name, &p.BasePrice, &p.ByWeight, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// ListModifiers returns the modifiers configured for a product.
func (s *Store) ListModifiers(ctx context.Context, productID int64) ([]ProductModifier, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, product_id, name, price
		FROM product_modifiers
		WHERE product_id = $1
		ORDER BY id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("list modifiers: %w", err)
	}
	defer rows.Close()

	modifiers := make([]ProductModifier, 0, 8)
	for rows.Next() {
		var m ProductModifier
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Name, &m.Price); err != nil {
			return nil, err
		}
		modifiers = append(modifiers, m)
	}
	return modifiers, rows.Err()
}
