package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/tanakrit-dev/backend-pos/internal/money"
)

// Customer is a loyalty member.
type Customer struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	LoyaltyPoints int64  `json:"loyaltyPoints"`
}

// LoyaltySettings drives point earn and redemption rates.
type LoyaltySettings struct {
	PointValue        money.Money `json:"pointValue"`
	MinPointsToRedeem int64       `json:"minPointsToRedeem"`
	PointsPerBaht     int64       `json:"pointsPerBaht"`
}

// GetCustomer loads one customer by id.
func (s *Store) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := s.Pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(phone, ''), loyalty_points
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.LoyaltyPoints)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

// FindCustomerByPhone looks up a customer by phone number.
func (s *Store) FindCustomerByPhone(ctx context.Context, phone string) (Customer, error) {
	var c Customer
	err := s.Pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(phone, ''), loyalty_points
		FROM customers
		WHERE phone = $1
	`, phone).Scan(&c.ID, &c.Name, &c.Phone, &c.LoyaltyPoints)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

// GetLoyaltySettings loads the single loyalty configuration row. ErrNotFound
// means loyalty has never been configured; callers fall back to redemption
// disabled.
func (s *Store) GetLoyaltySettings(ctx context.Context) (LoyaltySettings, error) {
	var ls LoyaltySettings
	err := s.Pool.QueryRow(ctx, `
		SELECT point_value, min_points_to_redeem, points_per_baht
		FROM loyalty_settings
		ORDER BY id
		LIMIT 1
	`).Scan(&ls.PointValue, &ls.MinPointsToRedeem, &ls.PointsPerBaht)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoyaltySettings{}, ErrNotFound
		}
		return LoyaltySettings{}, err
	}
	return ls, nil
}
