package customer

import (
	"context"
	"errors"

	"github.com/tanakrit-dev/backend-pos/internal/store"
)

// ErrRedemptionDisabled signals that loyalty settings were never configured,
// so point redemption is unavailable while lookups still work.
var ErrRedemptionDisabled = errors.New("point redemption disabled")

type customerStore interface {
	GetCustomer(ctx context.Context, id int64) (store.Customer, error)
	FindCustomerByPhone(ctx context.Context, phone string) (store.Customer, error)
	GetLoyaltySettings(ctx context.Context) (store.LoyaltySettings, error)
}

// Service looks up customers for attachment to a sale and exposes the
// store's loyalty configuration.
type Service struct {
	Store customerStore
}

// Get returns a customer by id.
func (s *Service) Get(ctx context.Context, id int64) (store.Customer, error) {
	return s.Store.GetCustomer(ctx, id)
}

// FindByPhone returns a customer by exact phone match.
func (s *Service) FindByPhone(ctx context.Context, phone string) (store.Customer, error) {
	return s.Store.FindCustomerByPhone(ctx, phone)
}

// LoyaltySettings returns the configured loyalty program. When the store
// never configured one, redemption is reported as disabled rather than
// treated as an error.
func (s *Service) LoyaltySettings(ctx context.Context) (store.LoyaltySettings, error) {
	settings, err := s.Store.GetLoyaltySettings(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.LoyaltySettings{}, ErrRedemptionDisabled
		}
		return store.LoyaltySettings{}, err
	}
	return settings, nil
}

// CanRedeem reports whether the customer may redeem the requested points
// under the given settings.
func CanRedeem(c store.Customer, settings store.LoyaltySettings, points int64) bool {
	if points <= 0 || settings.PointValue <= 0 {
		return false
	}
	if points < settings.MinPointsToRedeem {
		return false
	}
	return points <= c.LoyaltyPoints
}
