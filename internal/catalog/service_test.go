package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tanakrit-dev/backend-pos/internal/money"
	"github.com/tanakrit-dev/backend-pos/internal/store"
)

type stubProductStore struct {
	products  []store.Product
	modifiers map[int64][]store.ProductModifier
	listCalls int
}

func (s *stubProductStore) ListProducts(ctx context.Context) ([]store.Product, error) {
	s.listCalls++
	return s.products, nil
}

func (s *stubProductStore) GetProduct(ctx context.Context, id int64) (store.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return store.Product{}, store.ErrNotFound
}

func (s *stubProductStore) GetProductByBarcode(ctx context.Context, barcode string) (store.Product, error) {
	for _, p := range s.products {
		if p.Barcode == barcode {
			return p, nil
		}
	}
	return store.Product{}, store.ErrNotFound
}

func (s *stubProductStore) ListModifiers(ctx context.Context, productID int64) ([]store.ProductModifier, error) {
	return s.modifiers[productID], nil
}

func newTestService(t *testing.T, stub *stubProductStore) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Service{Store: stub, Cache: NewCache(client, time.Minute)}
}

func TestListUsesCacheOnSecondCall(t *testing.T) {
	stub := &stubProductStore{products: []store.Product{
		{ID: 1, Name: "Iced Latte", BasePrice: 5000, Active: true},
	}}
	svc := newTestService(t, stub)

	first, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, stub.listCalls)
}

func TestScanFixedPriceProduct(t *testing.T) {
	stub := &stubProductStore{products: []store.Product{
		{ID: 7, Barcode: "885001", Name: "Green Tea", BasePrice: 2500, Active: true},
	}}
	svc := newTestService(t, stub)

	add, err := svc.Scan(context.Background(), ScanInput{Barcode: "885001"})
	require.NoError(t, err)
	require.Equal(t, int64(7), add.ProductID)
	require.Equal(t, money.Money(2500), add.BasePrice)
	require.Nil(t, add.PriceOverride)
}

func TestScanByWeightRequiresTotal(t *testing.T) {
	stub := &stubProductStore{products: []store.Product{
		{ID: 9, Barcode: "200100", Name: "Pork Belly", BasePrice: 0, ByWeight: true, Active: true},
	}}
	svc := newTestService(t, stub)

	_, err := svc.Scan(context.Background(), ScanInput{Barcode: "200100"})
	require.ErrorIs(t, err, ErrWeightRequired)

	weighed := money.Money(12750)
	add, err := svc.Scan(context.Background(), ScanInput{Barcode: "200100", WeighedTotal: &weighed})
	require.NoError(t, err)
	require.NotNil(t, add.PriceOverride)
	require.Equal(t, weighed, *add.PriceOverride)
}

func TestScanInactiveProduct(t *testing.T) {
	stub := &stubProductStore{products: []store.Product{
		{ID: 3, Barcode: "111", Name: "Old Item", BasePrice: 1000, Active: false},
	}}
	svc := newTestService(t, stub)

	_, err := svc.Scan(context.Background(), ScanInput{Barcode: "111"})
	require.ErrorIs(t, err, ErrProductInactive)
}

func TestResolveAddRejectsUnknownModifier(t *testing.T) {
	stub := &stubProductStore{
		products: []store.Product{{ID: 1, Name: "Latte", BasePrice: 5000, Active: true}},
		modifiers: map[int64][]store.ProductModifier{
			1: {{ID: 11, ProductID: 1, Name: "Oat Milk", Price: 1000}},
		},
	}
	svc := newTestService(t, stub)

	add, err := svc.ResolveAdd(context.Background(), 1, []int64{11}, 2)
	require.NoError(t, err)
	require.Len(t, add.Modifiers, 1)
	require.Equal(t, 2, add.Quantity)

	_, err = svc.ResolveAdd(context.Background(), 1, []int64{99}, 1)
	require.ErrorIs(t, err, store.ErrNotFound)
}
