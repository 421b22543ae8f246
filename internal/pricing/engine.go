// Package pricing turns a cart subtotal, a resolved discount stack and the
// VAT rate into the payable total. Every function here is pure: identical
// inputs always produce identical output, which is what makes committed
// breakdowns reproducible for audit.
package pricing

import (
	"errors"

	"github.com/tanakrit-dev/backend-pos/internal/discount"
	"github.com/tanakrit-dev/backend-pos/internal/money"
)

// ErrInsufficientPayment is returned when cash tendered does not cover the
// total.
var ErrInsufficientPayment = errors.New("insufficient payment")

// ErrUnknownMethod is returned for a payment method outside the closed set.
var ErrUnknownMethod = errors.New("unknown payment method")

// Method is a settlement method.
type Method string

const (
	MethodCash     Method = "cash"
	MethodTransfer Method = "transfer"
	MethodCard     Method = "card"
)

// Valid reports whether the method is one of the known settlement methods.
func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodTransfer, MethodCard:
		return true
	}
	return false
}

// Result is the derived monetary breakdown for the current cart state.
type Result struct {
	Subtotal      money.Money `json:"subtotal"`
	DiscountTotal money.Money `json:"discountTotal"`
	TaxableBase   money.Money `json:"taxableBase"`
	Tax           money.Money `json:"tax"`
	Total         money.Money `json:"total"`
}

// Price combines the subtotal, the discount stack and the VAT rate in basis
// points. Each stack component was already capped independently; here the
// combined total only floors the taxable base at zero so discounts never
// produce a negative tax.
func Price(subtotal money.Money, stack discount.Stack, taxBps int) Result {
	discountTotal := stack.Total()
	taxable := money.Clamp(subtotal - discountTotal)
	tax := money.PercentBps(taxable, taxBps)
	return Result{
		Subtotal:      subtotal,
		DiscountTotal: discountTotal,
		TaxableBase:   taxable,
		Tax:           tax,
		Total:         taxable + tax,
	}
}

// Tendered is the settlement outcome for a payment.
type Tendered struct {
	Due      money.Money `json:"due"`
	Received money.Money `json:"received"`
	Change   money.Money `json:"change"`
}

// Tender validates the payment against the total. Cash requires received to
// cover the total and pays out change; transfer and card settle the exact
// amount by construction.
func Tender(total money.Money, method Method, received money.Money) (Tendered, error) {
	switch method {
	case MethodCash:
		if received < total {
			return Tendered{}, ErrInsufficientPayment
		}
		return Tendered{Due: total, Received: received, Change: received - total}, nil
	case MethodTransfer, MethodCard:
		return Tendered{Due: total, Received: total, Change: 0}, nil
	default:
		return Tendered{}, ErrUnknownMethod
	}
}
