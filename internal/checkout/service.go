package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tanakrit-dev/backend-pos/internal/cart"
	"github.com/tanakrit-dev/backend-pos/internal/customer"
	"github.com/tanakrit-dev/backend-pos/internal/discount"
	"github.com/tanakrit-dev/backend-pos/internal/events"
	"github.com/tanakrit-dev/backend-pos/internal/money"
	"github.com/tanakrit-dev/backend-pos/internal/obs"
	"github.com/tanakrit-dev/backend-pos/internal/pricing"
	"github.com/tanakrit-dev/backend-pos/internal/store"
)

var (
	// ErrEmptyCart blocks checkout and commit on a cart with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidPhase rejects an operation the current phase does not allow.
	ErrInvalidPhase = errors.New("operation not allowed in current phase")
	// ErrCartLocked rejects cart edits while payment is being collected.
	ErrCartLocked = errors.New("cart is locked during payment")
	// ErrNoCustomer rejects point redemption without an attached customer.
	ErrNoCustomer = errors.New("no customer attached")
	// ErrRedeemNotAllowed rejects a redemption outside the loyalty rules.
	ErrRedeemNotAllowed = errors.New("point redemption not allowed")
	// ErrCommitFailed marks a persistence failure; the session stays in
	// AwaitingPayment so the cashier can retry.
	ErrCommitFailed = errors.New("sale commit failed")
)

type commitStore interface {
	ListAutoDiscounts(ctx context.Context) ([]discount.Rule, error)
	GetLoyaltySettings(ctx context.Context) (store.LoyaltySettings, error)
	CommitSale(ctx context.Context, txn store.Transaction) (store.Transaction, error)
}

// Service owns the per-terminal sale sessions and drives the commit
// protocol: idle -> awaiting_payment -> submitting -> committed, with the
// session resetting to idle atomically on success and left untouched on
// failure so the cashier can retry.
type Service struct {
	Store  commitStore
	Events *events.Bus
	Log    zerolog.Logger
	TaxBps int
	Now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) sessionLocked(terminalID string) *Session {
	if s.sessions == nil {
		s.sessions = make(map[string]*Session)
	}
	sess, ok := s.sessions[terminalID]
	if !ok {
		sess = &Session{TerminalID: terminalID, Phase: PhaseIdle}
		s.sessions[terminalID] = sess
	}
	return sess
}

// quoteLocked derives the current price from the session inputs. The whole
// bill is recomputed from scratch on every call; nothing derived is cached
// on the session.
func (s *Service) quoteLocked(ctx context.Context, sess *Session) (Quote, error) {
	autoRules, err := s.Store.ListAutoDiscounts(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("load auto discounts: %w", err)
	}
	var pointValue money.Money
	if sess.Customer != nil && sess.RedeemPoints > 0 {
		settings, err := s.Store.GetLoyaltySettings(ctx)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return Quote{}, fmt.Errorf("load loyalty settings: %w", err)
		}
		pointValue = settings.PointValue
	}
	stack := discount.Resolve(discount.ResolveInput{
		Now:          s.now(),
		Subtotal:     sess.Cart.Subtotal(),
		Lines:        sess.Cart.Lines,
		Manual:       sess.ManualDiscount,
		CodeRule:     sess.CodeRule,
		AutoRules:    autoRules,
		RedeemPoints: sess.RedeemPoints,
		PointValue:   pointValue,
	})
	return Quote{Stack: stack, Result: pricing.Price(sess.Cart.Subtotal(), stack, s.TaxBps)}, nil
}

func (s *Service) viewLocked(ctx context.Context, sess *Session) (View, error) {
	quote, err := s.quoteLocked(ctx, sess)
	if err != nil {
		return View{}, err
	}
	view := View{
		TerminalID:     sess.TerminalID,
		Phase:          sess.Phase,
		Cart:           sess.Cart,
		Customer:       sess.Customer,
		ManualDiscount: sess.ManualDiscount,
		RedeemPoints:   sess.RedeemPoints,
		Quote:          quote,
	}
	if sess.CodeRule != nil {
		view.Code = sess.CodeRule.Code
	}
	return view, nil
}

// Snapshot returns the current session and its freshly derived quote.
func (s *Service) Snapshot(ctx context.Context, terminalID string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(ctx, s.sessionLocked(terminalID))
}

// editCart applies a pure cart transition while the session is idle.
func (s *Service) editCart(ctx context.Context, terminalID string, fn func(cart.State) cart.State) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(terminalID)
	if sess.Phase != PhaseIdle {
		return View{}, ErrCartLocked
	}
	sess.Cart = fn(sess.Cart)
	return s.viewLocked(ctx, sess)
}

// AddItem adds or merges a line into the terminal's cart.
func (s *Service) AddItem(ctx context.Context, terminalID string, in cart.AddInput) (View, error) {
	return s.editCart(ctx, terminalID, func(c cart.State) cart.State { return c.Add(in) })
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, terminalID, key string, quantity int) (View, error) {
	return s.editCart(ctx, terminalID, func(c cart.State) cart.State { return c.UpdateQuantity(key, quantity) })
}

// RemoveLine deletes a line from the cart.
func (s *Service) RemoveLine(ctx context.Context, terminalID, key string) (View, error) {
	return s.editCart(ctx, terminalID, func(c cart.State) cart.State { return c.Remove(key) })
}

// ClearCart empties the cart but keeps customer and discounts in place.
func (s *Service) ClearCart(ctx context.Context, terminalID string) (View, error) {
	return s.editCart(ctx, terminalID, func(c cart.State) cart.State { return c.Clear() })
}

// AttachCustomer links a customer to the sale. Passing nil detaches the
// current customer and drops any pending point redemption.
func (s *Service) AttachCustomer(ctx context.Context, terminalID string, c *store.Customer) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(terminalID)
	if sess.Phase != PhaseIdle {
		return View{}, ErrInvalidPhase
	}
	sess.Customer = c
	if c == nil {
		sess.RedeemPoints = 0
	}
	return s.viewLocked(ctx, sess)
}

// SetManualDiscount records the cashier-entered discount amount.
func (s *Service) SetManualDiscount(ctx context.Context, terminalID string, amount money.Money) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(terminalID)
	if sess.Phase != PhaseIdle {
		return View{}, ErrInvalidPhase
	}
	sess.ManualDiscount = amount
	return s.viewLocked(ctx, sess)
}

// ApplyCode attaches an already-validated code rule to the session.
func (s *Service) ApplyCode(ctx context.Context, terminalID string, rule discount.Rule) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(terminalID)
	if sess.Phase != PhaseIdle {
		return View{}, ErrInvalidPhase
	}
	sess.CodeRule = &rule
	return s.viewLocked(ctx, sess)
}

// RemoveCode detaches the code from the session.
func (s *Service) RemoveCode(ctx context.Context, terminalID string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(terminalID)
	if sess.Phase != PhaseIdle {
		return View{}, ErrInvalidPhase
	}
	sess.CodeRule = nil
	return s.viewLocked(ctx, sess)
}

// SetRedeemPoints records a point redemption after checking it against the
// attached customer's balance and the loyalty settings. Zero clears it.
func (s *Service) SetRedeemPoints(ctx context.Context, terminalID string, points int64) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(terminalID)
	if sess.Phase != PhaseIdle {
		return View{}, ErrInvalidPhase
	}
	if points <= 0 {
		sess.RedeemPoints = 0
		return s.viewLocked(ctx, sess)
	}
	if sess.Customer == nil {
		return View{}, ErrNoCustomer
	}
	settings, err := s.Store.GetLoyaltySettings(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return View{}, ErrRedeemNotAllowed
		}
		return View{}, fmt.Errorf("load loyalty settings: %w", err)
	}
	if !customer.CanRedeem(*sess.Customer, settings, points) {
		return View{}, ErrRedeemNotAllowed
	}
	sess.RedeemPoints = points
	return s.viewLocked(ctx, sess)
}

// BeginPayment moves an idle session with a non-empty cart into
// awaiting_payment, freezing the cart.
func (s *Service) BeginPayment(ctx context.Context, terminalID string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(terminalID)
	if sess.Phase != PhaseIdle {
		return View{}, ErrInvalidPhase
	}
	if sess.Cart.Empty() {
		return View{}, ErrEmptyCart
	}
	sess.Phase = PhaseAwaitingPayment
	return s.viewLocked(ctx, sess)
}

// CancelPayment returns an awaiting_payment session to idle. The cart and
// discounts survive so the cashier can keep editing the sale.
func (s *Service) CancelPayment(ctx context.Context, terminalID string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(terminalID)
	if sess.Phase != PhaseAwaitingPayment {
		return View{}, ErrInvalidPhase
	}
	sess.Phase = PhaseIdle
	return s.viewLocked(ctx, sess)
}

// CommitInput carries the payment details for the final commit.
type CommitInput struct {
	TerminalID string
	Method     pricing.Method
	Received   money.Money
}

// Commit re-validates every guard at commit time, persists the sale and
// resets the session in one step. On any failure the session stays in
// awaiting_payment with all of its state intact so the cashier can retry.
func (s *Service) Commit(ctx context.Context, in CommitInput) (store.Transaction, error) {
	s.mu.Lock()
	sess := s.sessionLocked(in.TerminalID)
	if sess.Phase != PhaseAwaitingPayment {
		s.mu.Unlock()
		return store.Transaction{}, ErrInvalidPhase
	}
	if sess.Cart.Empty() {
		s.mu.Unlock()
		return store.Transaction{}, ErrEmptyCart
	}
	quote, err := s.quoteLocked(ctx, sess)
	if err != nil {
		s.mu.Unlock()
		return store.Transaction{}, err
	}
	tendered, err := pricing.Tender(quote.Result.Total, in.Method, in.Received)
	if err != nil {
		s.mu.Unlock()
		return store.Transaction{}, err
	}
	earned, err := s.earnedPoints(ctx, sess, quote.Result.Total)
	if err != nil {
		s.mu.Unlock()
		return store.Transaction{}, err
	}
	now := s.now()
	txn := buildTransaction(sess, quote, tendered, in.Method, earned, now)
	sess.Phase = PhaseSubmitting
	s.mu.Unlock()

	committed, commitErr := s.Store.CommitSale(ctx, txn)

	s.mu.Lock()
	defer s.mu.Unlock()
	if commitErr != nil {
		sess.Phase = PhaseAwaitingPayment
		if obs.SaleCommitFailures != nil {
			obs.SaleCommitFailures.Inc()
		}
		s.Log.Error().Err(commitErr).Str("terminal", in.TerminalID).Str("number", txn.Number).Msg("sale commit failed")
		if s.Events != nil {
			_, _ = s.Events.Emit(ctx, events.TopicSaleFailed, txn.Number, map[string]any{
				"terminalId": in.TerminalID,
				"reason":     commitErr.Error(),
			})
		}
		return store.Transaction{}, fmt.Errorf("%w: %s", ErrCommitFailed, commitErr)
	}
	sess.reset()
	obs.ObserveSaleCommitted(string(in.Method), int64(committed.Total), committed.RedeemedPoints)
	if obs.DiscountAppliedTotal != nil {
		for slot, amount := range map[string]money.Money{
			"manual": quote.Stack.Manual,
			"code":   quote.Stack.Code,
			"auto":   quote.Stack.Auto,
			"points": quote.Stack.Points,
		} {
			if amount > 0 {
				obs.DiscountAppliedTotal.WithLabelValues(slot).Inc()
			}
		}
	}
	s.Log.Info().Str("terminal", in.TerminalID).Str("number", committed.Number).Int64("total", committed.Total).Msg("sale committed")
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicSaleCommitted, committed.Number, committed)
		if committed.RedeemedPoints > 0 {
			_, _ = s.Events.Emit(ctx, events.TopicPointsRedeemed, committed.Number, map[string]any{
				"customerId": committed.CustomerID,
				"points":     committed.RedeemedPoints,
			})
		}
	}
	return committed, nil
}

// earnedPoints applies the loyalty accrual rate to the net total. Sales
// without an attached customer earn nothing.
func (s *Service) earnedPoints(ctx context.Context, sess *Session, total money.Money) (int64, error) {
	if sess.Customer == nil {
		return 0, nil
	}
	settings, err := s.Store.GetLoyaltySettings(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("load loyalty settings: %w", err)
	}
	if settings.PointsPerBaht <= 0 {
		return 0, nil
	}
	return (int64(total) / 100) * settings.PointsPerBaht, nil
}

func buildTransaction(sess *Session, quote Quote, tendered pricing.Tendered, method pricing.Method, earned int64, now time.Time) store.Transaction {
	txn := store.Transaction{
		Number:         transactionNumber(now),
		Subtotal:       quote.Result.Subtotal,
		Discount:       quote.Result.DiscountTotal,
		Tax:            quote.Result.Tax,
		Total:          quote.Result.Total,
		PaymentMethod:  string(method),
		AmountReceived: tendered.Received,
		Change:         tendered.Change,
		RedeemedPoints: sess.RedeemPoints,
		EarnedPoints:   earned,
		CreatedAt:      now,
	}
	if sess.Customer != nil {
		id := sess.Customer.ID
		txn.CustomerID = &id
	}
	for _, line := range sess.Cart.Lines {
		txn.Items = append(txn.Items, store.TransactionItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
			Modifiers: line.Modifiers,
		})
	}
	return txn
}

// transactionNumber builds the client-generated receipt number from the
// commit timestamp, millisecond resolution.
func transactionNumber(now time.Time) string {
	return fmt.Sprintf("POS-%s%03d", now.Format("20060102-150405"), now.Nanosecond()/int(time.Millisecond))
}
