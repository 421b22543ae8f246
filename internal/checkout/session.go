package checkout

import (
	"github.com/tanakrit-dev/backend-pos/internal/cart"
	"github.com/tanakrit-dev/backend-pos/internal/discount"
	"github.com/tanakrit-dev/backend-pos/internal/money"
	"github.com/tanakrit-dev/backend-pos/internal/pricing"
	"github.com/tanakrit-dev/backend-pos/internal/store"
)

// Phase is the checkout state of a terminal session. A committed sale has
// no resting phase: the session resets to idle in the same step.
type Phase string

const (
	// PhaseIdle accepts cart edits, customer attachment and discount changes.
	PhaseIdle Phase = "idle"
	// PhaseAwaitingPayment freezes the cart while the cashier collects payment.
	PhaseAwaitingPayment Phase = "awaiting_payment"
	// PhaseSubmitting covers the in-flight database commit.
	PhaseSubmitting Phase = "submitting"
)

// Session is the in-flight sale for one terminal. All access goes through
// the Service, which owns the locking.
type Session struct {
	TerminalID     string
	Phase          Phase
	Cart           cart.State
	Customer       *store.Customer
	ManualDiscount money.Money
	CodeRule       *discount.Rule
	RedeemPoints   int64
}

// reset clears the sale in one step so no partially-cleared session is
// ever observable: cart, customer, code, manual discount and points all
// go together.
func (s *Session) reset() {
	s.Cart = cart.State{}
	s.Customer = nil
	s.ManualDiscount = 0
	s.CodeRule = nil
	s.RedeemPoints = 0
	s.Phase = PhaseIdle
}

// Quote is the derived price of a session at one instant. It is never
// stored; every read recomputes it from the session inputs.
type Quote struct {
	Stack  discount.Stack `json:"stack"`
	Result pricing.Result `json:"result"`
}

// View is the session snapshot returned to the sale screen.
type View struct {
	TerminalID     string          `json:"terminalId"`
	Phase          Phase           `json:"phase"`
	Cart           cart.State      `json:"cart"`
	Customer       *store.Customer `json:"customer,omitempty"`
	ManualDiscount money.Money     `json:"manualDiscount"`
	Code           string          `json:"code,omitempty"`
	RedeemPoints   int64           `json:"redeemPoints"`
	Quote          Quote           `json:"quote"`
}
