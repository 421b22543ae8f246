package pricing

import (
	"testing"

	"github.com/tanakrit-dev/backend-pos/internal/discount"
	"github.com/tanakrit-dev/backend-pos/internal/money"
)

func TestPriceNoDiscounts(t *testing.T) {
	// Two units at 50.00, 7% VAT.
	res := Price(10000, discount.Stack{}, 700)
	if res.Subtotal != 10000 || res.Tax != 700 || res.Total != 10700 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestPriceStackedDiscounts(t *testing.T) {
	// subtotal 100.00, manual 10, code 5, auto 10 -> taxable 75.00, tax 5.25, total 80.25
	stack := discount.Stack{Manual: 1000, Code: 500, Auto: 1000}
	res := Price(10000, stack, 700)
	if res.DiscountTotal != 2500 {
		t.Fatalf("discount total = %d", res.DiscountTotal)
	}
	if res.TaxableBase != 7500 || res.Tax != 525 || res.Total != 8025 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestPriceFloorsTaxableBase(t *testing.T) {
	stack := discount.Stack{Manual: 20000}
	res := Price(10000, stack, 700)
	if res.TaxableBase != 0 || res.Tax != 0 || res.Total != 0 {
		t.Fatalf("over-discounted cart must floor at zero: %+v", res)
	}
}

func TestPriceIdempotent(t *testing.T) {
	stack := discount.Stack{Manual: 137, Code: 41, Auto: 999, Points: 3}
	first := Price(123457, stack, 700)
	second := Price(123457, stack, 700)
	if first != second {
		t.Fatalf("pricing must be deterministic: %+v vs %+v", first, second)
	}
}

func TestTenderCash(t *testing.T) {
	res, err := Tender(8025, MethodCash, 8025)
	if err != nil {
		t.Fatalf("exact cash: %v", err)
	}
	if res.Due != 8025 || res.Change != 0 {
		t.Fatalf("unexpected tender: %+v", res)
	}

	res, err = Tender(8025, MethodCash, 10000)
	if err != nil {
		t.Fatalf("overpaid cash: %v", err)
	}
	if res.Change != 1975 {
		t.Fatalf("change = %d, want 1975", res.Change)
	}
}

func TestTenderCashInsufficient(t *testing.T) {
	if _, err := Tender(8025, MethodCash, 8000); err != ErrInsufficientPayment {
		t.Fatalf("expected ErrInsufficientPayment, got %v", err)
	}
}

func TestTenderExactMethods(t *testing.T) {
	for _, method := range []Method{MethodTransfer, MethodCard} {
		res, err := Tender(8025, method, 0)
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}
		if res.Received != 8025 || res.Change != 0 {
			t.Fatalf("%s settles exactly: %+v", method, res)
		}
	}
}

func TestTenderUnknownMethod(t *testing.T) {
	if _, err := Tender(100, Method("cheque"), 100); err != ErrUnknownMethod {
		t.Fatalf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestTotalNeverNegative(t *testing.T) {
	for _, stackTotal := range []money.Money{0, 5000, 10000, 999999} {
		res := Price(10000, discount.Stack{Manual: stackTotal}, 700)
		if res.Total < 0 {
			t.Fatalf("total went negative with discount %d: %+v", stackTotal, res)
		}
	}
}
