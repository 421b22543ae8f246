package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tanakrit-dev/backend-pos/internal/discount"
)

const discountColumns = `id, COALESCE(code, ''), name, kind, value, percent_bps,
	min_bill, max_amount, COALESCE(product_id, 0), auto_apply, active, valid_from, valid_to`

// GetDiscountByCode loads one discount rule by its code, case-insensitively.
func (s *Store) GetDiscountByCode(ctx context.Context, code string) (discount.Rule, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT `+discountColumns+`
		FROM discounts
		WHERE lower(code) = lower($1)
	`, strings.TrimSpace(code))
	rule, err := scanDiscount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return discount.Rule{}, ErrNotFound
		}
		return discount.Rule{}, err
	}
	return rule, nil
}

// ListAutoDiscounts returns active auto-apply rules in creation order, which
// is also the tie-break order for the best-of-one selection.
func (s *Store) ListAutoDiscounts(ctx context.Context) ([]discount.Rule, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+discountColumns+`
		FROM discounts
		WHERE auto_apply = true AND active = true
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list auto discounts: %w", err)
	}
	defer rows.Close()

	rules := make([]discount.Rule, 0, 8)
	for rows.Next() {
		rule, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// ListDiscounts returns every rule for administration.
func (s *Store) ListDiscounts(ctx context.Context) ([]discount.Rule, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+discountColumns+`
		FROM discounts
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	defer rows.Close()

	rules := make([]discount.Rule, 0, 16)
	for rows.Next() {
		rule, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// CreateDiscount inserts a new rule.
func (s *Store) CreateDiscount(ctx context.Context, rule discount.Rule) (discount.Rule, error) {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO discounts (id, code, name, kind, value, percent_bps, min_bill,
			max_amount, product_id, auto_apply, active, valid_from, valid_to, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, NULLIF($9, 0), $10, $11, $12, $13, now())
	`, rule.ID, rule.Code, rule.Name, string(rule.Kind), rule.Value, rule.PercentBps,
		rule.MinBill, rule.MaxAmount, rule.ProductID, rule.AutoApply, rule.Active,
		rule.ValidFrom, rule.ValidTo)
	if err != nil {
		if isUniqueViolation(err) {
			return discount.Rule{}, fmt.Errorf("code %q: %w", rule.Code, ErrDuplicate)
		}
		return discount.Rule{}, err
	}
	return rule, nil
}

// SetDiscountActive toggles a rule.
func (s *Store) SetDiscountActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE discounts SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiscount(row rowScanner) (discount.Rule, error) {
	var (
		rule      discount.Rule
		kind      string
		validFrom *time.Time
		validTo   *time.Time
	)
	if err := row.Scan(&rule.ID, &rule.Code, &rule.Name, &kind, &rule.Value,
		&rule.PercentBps, &rule.MinBill, &rule.MaxAmount, &rule.ProductID,
		&rule.AutoApply, &rule.Active, &validFrom, &validTo); err != nil {
		return discount.Rule{}, err
	}
	rule.Kind = discount.Kind(kind)
	rule.ValidFrom = validFrom
	rule.ValidTo = validTo
	return rule, nil
}
