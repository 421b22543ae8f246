package discount

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tanakrit-dev/backend-pos/internal/cart"
	"github.com/tanakrit-dev/backend-pos/internal/money"
)

var (
	// ErrMinSpendUnmet indicates the bill did not reach the rule's floor.
	ErrMinSpendUnmet = errors.New("discount minimum bill not met")
	// ErrInactive is returned when a rule is disabled or outside its window.
	ErrInactive = errors.New("discount not active")
	// ErrExpired is returned when the rule's validity window has passed.
	ErrExpired = errors.New("discount expired")
)

// Kind is the closed set of discount rule variants.
type Kind string

const (
	KindPercentage      Kind = "percentage"
	KindFixedAmount     Kind = "fixed_amount"
	KindBillTotal       Kind = "bill_total"
	KindProductSpecific Kind = "product_specific"
)

// Valid reports whether the kind is one of the known variants.
func (k Kind) Valid() bool {
	switch k {
	case KindPercentage, KindFixedAmount, KindBillTotal, KindProductSpecific:
		return true
	}
	return false
}

// Rule captures the runtime constraints of a discount.
type Rule struct {
	ID         uuid.UUID
	Code       string
	Name       string
	Kind       Kind
	Value      money.Money // flat amount for the amount kinds
	PercentBps int         // basis points, percentage kind only
	MinBill    money.Money // eligibility floor, 0 means none
	MaxAmount  money.Money // cap on the computed amount, 0 means uncapped
	ProductID  int64       // product_specific scope
	AutoApply  bool
	Active     bool
	ValidFrom  *time.Time
	ValidTo    *time.Time
}

// Validate ensures the rule can be applied at the provided instant and bill
// total.
func (r Rule) Validate(now time.Time, subtotal money.Money) error {
	if !r.Active {
		return ErrInactive
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrInactive
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrExpired
	}
	if subtotal < r.MinBill {
		return ErrMinSpendUnmet
	}
	return nil
}

// Amount computes the rule's monetary reduction against the raw subtotal.
// product_specific rules are additionally capped by what was actually
// purchased of the targeted product; a rule with no matching lines yields 0
// rather than an error. The result is always within [0, MaxAmount].
func Amount(r Rule, subtotal money.Money, lines []cart.Line) money.Money {
	var amount money.Money
	switch r.Kind {
	case KindPercentage:
		amount = money.PercentBps(subtotal, r.PercentBps)
	case KindFixedAmount, KindBillTotal:
		amount = r.Value
	case KindProductSpecific:
		var purchased money.Money
		for _, line := range lines {
			if line.ProductID == r.ProductID {
				purchased += line.Subtotal
			}
		}
		amount = r.Value
		if amount > purchased {
			amount = purchased
		}
	default:
		return 0
	}
	if r.MaxAmount > 0 && amount > r.MaxAmount {
		amount = r.MaxAmount
	}
	return money.Clamp(amount)
}

// Stack is the resolved set of reductions for one checkout, in the fixed
// order they apply: manual, code, auto promotion, loyalty points.
type Stack struct {
	Manual money.Money `json:"manual"`
	Code   money.Money `json:"code"`
	Auto   money.Money `json:"auto"`
	Points money.Money `json:"points"`
}

// Total sums the stack.
func (s Stack) Total() money.Money {
	return s.Manual + s.Code + s.Auto + s.Points
}

// ResolveInput carries everything the resolver needs. CodeRule must already
// have been validated externally; Manual and RedeemPoints are likewise
// validated by the caller.
type ResolveInput struct {
	Now          time.Time
	Subtotal     money.Money
	Lines        []cart.Line
	Manual       money.Money
	CodeRule     *Rule
	AutoRules    []Rule
	RedeemPoints int64
	PointValue   money.Money // satang per redeemed point
}

// Resolve builds the discount stack. Among eligible auto-apply rules exactly
// one contributes: the one with the largest computed amount, ties broken by
// position in the provided rule order.
func Resolve(in ResolveInput) Stack {
	stack := Stack{Manual: money.Clamp(in.Manual)}

	if in.CodeRule != nil && in.CodeRule.Validate(in.Now, in.Subtotal) == nil {
		stack.Code = Amount(*in.CodeRule, in.Subtotal, in.Lines)
	}

	var best money.Money
	for _, rule := range in.AutoRules {
		if !rule.AutoApply {
			continue
		}
		if rule.Validate(in.Now, in.Subtotal) != nil {
			continue
		}
		if amount := Amount(rule, in.Subtotal, in.Lines); amount > best {
			best = amount
		}
	}
	stack.Auto = best

	if in.RedeemPoints > 0 && in.PointValue > 0 {
		stack.Points = money.Money(in.RedeemPoints) * in.PointValue
	}
	return stack
}
