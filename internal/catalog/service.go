package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/tanakrit-dev/backend-pos/internal/cart"
	"github.com/tanakrit-dev/backend-pos/internal/money"
	"github.com/tanakrit-dev/backend-pos/internal/obs"
	"github.com/tanakrit-dev/backend-pos/internal/store"
)

// ErrProductInactive signals a scan or add against a deactivated product.
var ErrProductInactive = errors.New("product inactive")

// ErrWeightRequired signals a by-weight product scanned without a weighed total.
var ErrWeightRequired = errors.New("weighed price required")

type productStore interface {
	ListProducts(ctx context.Context) ([]store.Product, error)
	GetProduct(ctx context.Context, id int64) (store.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (store.Product, error)
	ListModifiers(ctx context.Context, productID int64) ([]store.ProductModifier, error)
}

// Service reads catalog data for the sale screen, with a Redis-backed
// list cache in front of the product grid.
type Service struct {
	Store productStore
	Cache *Cache
}

const productListKey = "catalog:products"

// ProductDetail bundles a product with its configured modifiers.
type ProductDetail struct {
	Product   store.Product           `json:"product"`
	Modifiers []store.ProductModifier `json:"modifiers"`
}

// List returns the active product grid, cached between catalog changes.
func (s *Service) List(ctx context.Context) ([]store.Product, error) {
	var cached []store.Product
	if ok, err := s.Cache.GetJSON(ctx, productListKey, &cached); err == nil && ok {
		return cached, nil
	}
	products, err := s.Store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.Cache.SetJSON(ctx, productListKey, products)
	return products, nil
}

// Get returns one product with its modifiers.
func (s *Service) Get(ctx context.Context, id int64) (ProductDetail, error) {
	product, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return ProductDetail{}, err
	}
	modifiers, err := s.Store.ListModifiers(ctx, product.ID)
	if err != nil {
		return ProductDetail{}, err
	}
	return ProductDetail{Product: product, Modifiers: modifiers}, nil
}

// ScanInput describes one barcode scan. WeighedTotal carries the
// scale-printed price for by-weight products and stays nil otherwise.
type ScanInput struct {
	Barcode      string
	WeighedTotal *money.Money
}

// Scan resolves a barcode to a cart add. Fixed-price products use their
// configured price; by-weight products require the weighed total and use
// it as a per-unit override.
func (s *Service) Scan(ctx context.Context, in ScanInput) (cart.AddInput, error) {
	product, err := s.Store.GetProductByBarcode(ctx, in.Barcode)
	if err != nil {
		countScan("unknown")
		return cart.AddInput{}, err
	}
	if !product.Active {
		countScan("inactive")
		return cart.AddInput{}, ErrProductInactive
	}
	add := cart.AddInput{
		ProductID: product.ID,
		Name:      product.Name,
		BasePrice: product.BasePrice,
		Quantity:  1,
	}
	if product.ByWeight {
		if in.WeighedTotal == nil || *in.WeighedTotal <= 0 {
			countScan("weight_missing")
			return cart.AddInput{}, ErrWeightRequired
		}
		add.PriceOverride = in.WeighedTotal
	}
	countScan("ok")
	return add, nil
}

func countScan(result string) {
	if obs.BarcodeScanTotal != nil {
		obs.BarcodeScanTotal.WithLabelValues(result).Inc()
	}
}

// ResolveAdd builds a cart add for a product picked from the grid,
// attaching the selected modifiers. Unknown modifier ids are rejected.
func (s *Service) ResolveAdd(ctx context.Context, productID int64, modifierIDs []int64, quantity int) (cart.AddInput, error) {
	product, err := s.Store.GetProduct(ctx, productID)
	if err != nil {
		return cart.AddInput{}, err
	}
	if !product.Active {
		return cart.AddInput{}, ErrProductInactive
	}
	add := cart.AddInput{
		ProductID: product.ID,
		Name:      product.Name,
		BasePrice: product.BasePrice,
		Quantity:  quantity,
	}
	if len(modifierIDs) == 0 {
		return add, nil
	}
	configured, err := s.Store.ListModifiers(ctx, product.ID)
	if err != nil {
		return cart.AddInput{}, err
	}
	byID := make(map[int64]store.ProductModifier, len(configured))
	for _, m := range configured {
		byID[m.ID] = m
	}
	for _, id := range modifierIDs {
		m, ok := byID[id]
		if !ok {
			return cart.AddInput{}, fmt.Errorf("modifier %d: %w", id, store.ErrNotFound)
		}
		add.Modifiers = append(add.Modifiers, cart.Modifier{ID: m.ID, Name: m.Name, Price: m.Price})
	}
	return add, nil
}
