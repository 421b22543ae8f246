package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tanakrit-dev/backend-pos/internal/cart"
	"github.com/tanakrit-dev/backend-pos/internal/discount"
	"github.com/tanakrit-dev/backend-pos/internal/money"
	"github.com/tanakrit-dev/backend-pos/internal/pricing"
	"github.com/tanakrit-dev/backend-pos/internal/store"
)

type stubCommitStore struct {
	auto        []discount.Rule
	settings    store.LoyaltySettings
	settingsErr error
	commitErr   error
	committed   []store.Transaction
}

func (s *stubCommitStore) ListAutoDiscounts(ctx context.Context) ([]discount.Rule, error) {
	return s.auto, nil
}

func (s *stubCommitStore) GetLoyaltySettings(ctx context.Context) (store.LoyaltySettings, error) {
	if s.settingsErr != nil {
		return store.LoyaltySettings{}, s.settingsErr
	}
	return s.settings, nil
}

func (s *stubCommitStore) CommitSale(ctx context.Context, txn store.Transaction) (store.Transaction, error) {
	if s.commitErr != nil {
		return store.Transaction{}, s.commitErr
	}
	txn.ID = int64(len(s.committed) + 1)
	s.committed = append(s.committed, txn)
	return txn, nil
}

func newTestCheckout(stub *stubCommitStore) *Service {
	return &Service{
		Store:  stub,
		Log:    zerolog.Nop(),
		TaxBps: 700,
		Now:    func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) },
	}
}

func addLatte(t *testing.T, svc *Service, terminal string) {
	t.Helper()
	_, err := svc.AddItem(context.Background(), terminal, cart.AddInput{
		ProductID: 1, Name: "Latte", BasePrice: 5000, Quantity: 2,
	})
	require.NoError(t, err)
}

func TestBeginPaymentRequiresNonEmptyCart(t *testing.T) {
	svc := newTestCheckout(&stubCommitStore{})

	_, err := svc.BeginPayment(context.Background(), "t1")
	require.ErrorIs(t, err, ErrEmptyCart)

	addLatte(t, svc, "t1")
	view, err := svc.BeginPayment(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, PhaseAwaitingPayment, view.Phase)
}

func TestCartLockedDuringPayment(t *testing.T) {
	svc := newTestCheckout(&stubCommitStore{})
	addLatte(t, svc, "t1")
	_, err := svc.BeginPayment(context.Background(), "t1")
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), "t1", cart.AddInput{ProductID: 2, Name: "Tea", BasePrice: 3000})
	require.ErrorIs(t, err, ErrCartLocked)

	view, err := svc.CancelPayment(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, PhaseIdle, view.Phase)
	require.Equal(t, 2, view.Cart.ItemCount(), "cancel keeps the cart")
}

func TestCommitRequiresAwaitingPayment(t *testing.T) {
	svc := newTestCheckout(&stubCommitStore{})
	addLatte(t, svc, "t1")

	_, err := svc.Commit(context.Background(), CommitInput{TerminalID: "t1", Method: pricing.MethodCash, Received: 20000})
	require.ErrorIs(t, err, ErrInvalidPhase)
}

func TestCommitCashInsufficientKeepsSession(t *testing.T) {
	stub := &stubCommitStore{settingsErr: store.ErrNotFound}
	svc := newTestCheckout(stub)
	addLatte(t, svc, "t1")
	_, err := svc.BeginPayment(context.Background(), "t1")
	require.NoError(t, err)

	// Subtotal 100.00, tax 7.00, total 107.00; 100.00 cash is short.
	_, err = svc.Commit(context.Background(), CommitInput{TerminalID: "t1", Method: pricing.MethodCash, Received: 10000})
	require.ErrorIs(t, err, pricing.ErrInsufficientPayment)
	require.Empty(t, stub.committed)

	view, err := svc.Snapshot(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, PhaseAwaitingPayment, view.Phase)
	require.Equal(t, 2, view.Cart.ItemCount())
}

func TestCommitFailurePreservesEverything(t *testing.T) {
	stub := &stubCommitStore{settingsErr: store.ErrNotFound, commitErr: errors.New("connection refused")}
	svc := newTestCheckout(stub)
	addLatte(t, svc, "t1")
	_, err := svc.SetManualDiscount(context.Background(), "t1", 1000)
	require.NoError(t, err)
	_, err = svc.BeginPayment(context.Background(), "t1")
	require.NoError(t, err)

	_, err = svc.Commit(context.Background(), CommitInput{TerminalID: "t1", Method: pricing.MethodCash, Received: 20000})
	require.ErrorIs(t, err, ErrCommitFailed)

	view, verr := svc.Snapshot(context.Background(), "t1")
	require.NoError(t, verr)
	require.Equal(t, PhaseAwaitingPayment, view.Phase, "failure returns to awaiting payment for retry")
	require.Equal(t, 2, view.Cart.ItemCount())
	require.Equal(t, money.Money(1000), view.ManualDiscount)

	// Retry after the outage clears succeeds with the same session.
	stub.commitErr = nil
	txn, err := svc.Commit(context.Background(), CommitInput{TerminalID: "t1", Method: pricing.MethodCash, Received: 20000})
	require.NoError(t, err)
	require.Len(t, stub.committed, 1)
	require.Equal(t, money.Money(9630), txn.Total)
}

func TestCommitResetsSessionAtomically(t *testing.T) {
	stub := &stubCommitStore{settingsErr: store.ErrNotFound}
	svc := newTestCheckout(stub)
	addLatte(t, svc, "t1")
	_, err := svc.SetManualDiscount(context.Background(), "t1", 500)
	require.NoError(t, err)
	_, err = svc.BeginPayment(context.Background(), "t1")
	require.NoError(t, err)

	txn, err := svc.Commit(context.Background(), CommitInput{TerminalID: "t1", Method: pricing.MethodCash, Received: 20000})
	require.NoError(t, err)
	require.NotEmpty(t, txn.Number)
	require.Equal(t, "cash", txn.PaymentMethod)

	view, err := svc.Snapshot(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, PhaseIdle, view.Phase)
	require.True(t, view.Cart.Empty())
	require.Nil(t, view.Customer)
	require.Zero(t, view.ManualDiscount)
	require.Empty(t, view.Code)
	require.Zero(t, view.RedeemPoints)
}

func TestCommitScenario(t *testing.T) {
	// Subtotal 100.00, manual 10.00, auto 10% (capped elsewhere), no code.
	stub := &stubCommitStore{
		settingsErr: store.ErrNotFound,
		auto: []discount.Rule{
			{Name: "10% storewide", Kind: discount.KindPercentage, PercentBps: 1000, AutoApply: true, Active: true},
		},
	}
	svc := newTestCheckout(stub)
	addLatte(t, svc, "t1")
	_, err := svc.SetManualDiscount(context.Background(), "t1", 1000)
	require.NoError(t, err)
	_, err = svc.BeginPayment(context.Background(), "t1")
	require.NoError(t, err)

	// Discounts 10.00 + 10.00 = 20.00; taxable 80.00; tax 5.60; total 85.60.
	txn, err := svc.Commit(context.Background(), CommitInput{TerminalID: "t1", Method: pricing.MethodCash, Received: 10000})
	require.NoError(t, err)
	require.Equal(t, money.Money(10000), txn.Subtotal)
	require.Equal(t, money.Money(2000), txn.Discount)
	require.Equal(t, money.Money(560), txn.Tax)
	require.Equal(t, money.Money(8560), txn.Total)
	require.Equal(t, money.Money(1440), txn.Change)
	require.Len(t, txn.Items, 1)
}

func TestCommitWithLoyalty(t *testing.T) {
	stub := &stubCommitStore{
		settings: store.LoyaltySettings{PointValue: 25, MinPointsToRedeem: 10, PointsPerBaht: 1},
	}
	svc := newTestCheckout(stub)
	addLatte(t, svc, "t1")
	c := store.Customer{ID: 5, Name: "Nok", LoyaltyPoints: 100}
	_, err := svc.AttachCustomer(context.Background(), "t1", &c)
	require.NoError(t, err)
	_, err = svc.SetRedeemPoints(context.Background(), "t1", 20)
	require.NoError(t, err)
	_, err = svc.BeginPayment(context.Background(), "t1")
	require.NoError(t, err)

	// 20 pts x 0.25 = 5.00 off; taxable 95.00; tax 6.65; total 101.65.
	txn, err := svc.Commit(context.Background(), CommitInput{TerminalID: "t1", Method: pricing.MethodTransfer})
	require.NoError(t, err)
	require.Equal(t, money.Money(10165), txn.Total)
	require.Equal(t, int64(20), txn.RedeemedPoints)
	require.Equal(t, int64(101), txn.EarnedPoints)
	require.NotNil(t, txn.CustomerID)
	require.Equal(t, int64(5), *txn.CustomerID)
}

func TestSetRedeemPointsGuards(t *testing.T) {
	stub := &stubCommitStore{
		settings: store.LoyaltySettings{PointValue: 25, MinPointsToRedeem: 10, PointsPerBaht: 1},
	}
	svc := newTestCheckout(stub)
	addLatte(t, svc, "t1")

	_, err := svc.SetRedeemPoints(context.Background(), "t1", 20)
	require.ErrorIs(t, err, ErrNoCustomer)

	c := store.Customer{ID: 5, Name: "Nok", LoyaltyPoints: 15}
	_, err = svc.AttachCustomer(context.Background(), "t1", &c)
	require.NoError(t, err)

	_, err = svc.SetRedeemPoints(context.Background(), "t1", 20)
	require.ErrorIs(t, err, ErrRedeemNotAllowed, "cannot exceed balance")

	_, err = svc.SetRedeemPoints(context.Background(), "t1", 5)
	require.ErrorIs(t, err, ErrRedeemNotAllowed, "below program minimum")

	view, err := svc.SetRedeemPoints(context.Background(), "t1", 10)
	require.NoError(t, err)
	require.Equal(t, int64(10), view.RedeemPoints)
}

func TestSessionsAreIndependentPerTerminal(t *testing.T) {
	svc := newTestCheckout(&stubCommitStore{})
	addLatte(t, svc, "t1")

	view, err := svc.Snapshot(context.Background(), "t2")
	require.NoError(t, err)
	require.True(t, view.Cart.Empty())
}

func TestTransactionNumberIsTimestampBased(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 15, 250*int(time.Millisecond), time.UTC)
	require.Equal(t, "POS-20260314-093015250", transactionNumber(at))
}
