package discount

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tanakrit-dev/backend-pos/internal/money"
)

var (
	// ErrCodeNotFound is returned when the entered code matches no rule.
	ErrCodeNotFound = errors.New("discount code not found")
	// ErrInvalidKind rejects rules outside the closed kind set.
	ErrInvalidKind = errors.New("invalid discount kind")
	// ErrInvalidRule rejects rules with inconsistent value configuration.
	ErrInvalidRule = errors.New("invalid discount rule")
)

type ruleStore interface {
	GetDiscountByCode(ctx context.Context, code string) (Rule, error)
	ListAutoDiscounts(ctx context.Context) ([]Rule, error)
	ListDiscounts(ctx context.Context) ([]Rule, error)
	CreateDiscount(ctx context.Context, rule Rule) (Rule, error)
	SetDiscountActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Service manages discount rules. Code validation is two-phase: the store
// lookup resolves the rule, then Rule.Validate checks it against the bill,
// so a cashier sees "not found" and "minimum not met" as distinct outcomes.
type Service struct {
	Store      ruleStore
	IsNotFound func(error) bool
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ValidateCode resolves and validates a manually entered code against the
// current bill subtotal. The returned rule is only usable when err is nil.
func (s *Service) ValidateCode(ctx context.Context, code string, subtotal money.Money) (Rule, error) {
	rule, err := s.Store.GetDiscountByCode(ctx, code)
	if err != nil {
		if s.IsNotFound != nil && s.IsNotFound(err) {
			return Rule{}, ErrCodeNotFound
		}
		return Rule{}, err
	}
	if err := rule.Validate(s.now(), subtotal); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// AutoRules returns the active automatic rules in their stable tie-break
// order (creation order).
func (s *Service) AutoRules(ctx context.Context) ([]Rule, error) {
	return s.Store.ListAutoDiscounts(ctx)
}

// List returns every configured rule for the admin screen.
func (s *Service) List(ctx context.Context) ([]Rule, error) {
	return s.Store.ListDiscounts(ctx)
}

// Create validates and stores a new rule.
func (s *Service) Create(ctx context.Context, rule Rule) (Rule, error) {
	if !rule.Kind.Valid() {
		return Rule{}, ErrInvalidKind
	}
	if rule.Kind == KindPercentage && (rule.PercentBps <= 0 || rule.PercentBps > 10000) {
		return Rule{}, ErrInvalidRule
	}
	if rule.Kind != KindPercentage && rule.Value <= 0 {
		return Rule{}, ErrInvalidRule
	}
	if rule.Kind == KindProductSpecific && rule.ProductID == 0 {
		return Rule{}, ErrInvalidRule
	}
	return s.Store.CreateDiscount(ctx, rule)
}

// SetActive toggles a rule without deleting its history.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.Store.SetDiscountActive(ctx, id, active)
}
