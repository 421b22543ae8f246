package customer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tanakrit-dev/backend-pos/internal/store"
)

type stubCustomerStore struct {
	customer    store.Customer
	settings    store.LoyaltySettings
	settingsErr error
}

func (s *stubCustomerStore) GetCustomer(ctx context.Context, id int64) (store.Customer, error) {
	if id != s.customer.ID {
		return store.Customer{}, store.ErrNotFound
	}
	return s.customer, nil
}

func (s *stubCustomerStore) FindCustomerByPhone(ctx context.Context, phone string) (store.Customer, error) {
	if phone != s.customer.Phone {
		return store.Customer{}, store.ErrNotFound
	}
	return s.customer, nil
}

func (s *stubCustomerStore) GetLoyaltySettings(ctx context.Context) (store.LoyaltySettings, error) {
	if s.settingsErr != nil {
		return store.LoyaltySettings{}, s.settingsErr
	}
	return s.settings, nil
}

func TestLoyaltySettingsAbsentDisablesRedemption(t *testing.T) {
	svc := &Service{Store: &stubCustomerStore{settingsErr: store.ErrNotFound}}
	_, err := svc.LoyaltySettings(context.Background())
	require.ErrorIs(t, err, ErrRedemptionDisabled)
}

func TestCanRedeem(t *testing.T) {
	c := store.Customer{ID: 1, LoyaltyPoints: 50}
	settings := store.LoyaltySettings{PointValue: 25, MinPointsToRedeem: 10, PointsPerBaht: 1}

	require.True(t, CanRedeem(c, settings, 10))
	require.True(t, CanRedeem(c, settings, 50))
	require.False(t, CanRedeem(c, settings, 51), "cannot exceed balance")
	require.False(t, CanRedeem(c, settings, 5), "below minimum")
	require.False(t, CanRedeem(c, settings, 0))
	require.False(t, CanRedeem(c, store.LoyaltySettings{}, 10), "unconfigured program")
}
