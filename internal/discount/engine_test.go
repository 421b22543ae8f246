package discount

import (
	"testing"
	"time"

	"github.com/tanakrit-dev/backend-pos/internal/cart"
	"github.com/tanakrit-dev/backend-pos/internal/money"
)

func TestAmountPercentage(t *testing.T) {
	rule := Rule{Kind: KindPercentage, PercentBps: 1000, Active: true}
	if got := Amount(rule, 10000, nil); got != 1000 {
		t.Fatalf("10%% of 100.00 = %d, want 1000", got)
	}
}

func TestAmountCapNeverExceeded(t *testing.T) {
	rule := Rule{Kind: KindPercentage, PercentBps: 5000, MaxAmount: 2000, Active: true}
	for _, subtotal := range []money.Money{100, 10000, 100000, 9999999} {
		if got := Amount(rule, subtotal, nil); got > 2000 {
			t.Fatalf("subtotal %d: amount %d exceeds cap", subtotal, got)
		}
	}
}

func TestAmountProductSpecific(t *testing.T) {
	rule := Rule{Kind: KindProductSpecific, Value: 2000, ProductID: 7, Active: true}
	lines := []cart.Line{
		{ProductID: 7, Subtotal: 1500},
		{ProductID: 8, Subtotal: 5000},
	}
	if got := Amount(rule, 6500, lines); got != 1500 {
		t.Fatalf("product discount capped by purchased amount: got %d, want 1500", got)
	}
}

func TestAmountProductSpecificNoMatchYieldsZero(t *testing.T) {
	rule := Rule{Kind: KindProductSpecific, Value: 2000, ProductID: 99, Active: true}
	lines := []cart.Line{{ProductID: 7, Subtotal: 1500}}
	if got := Amount(rule, 1500, lines); got != 0 {
		t.Fatalf("no matching lines should yield 0, got %d", got)
	}
}

func TestValidateWindowAndFloor(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	if err := (Rule{Active: true, MinBill: 5000}).Validate(now, 4999); err != ErrMinSpendUnmet {
		t.Fatalf("expected ErrMinSpendUnmet, got %v", err)
	}
	if err := (Rule{Active: true, ValidFrom: &future}).Validate(now, 10000); err != ErrInactive {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
	if err := (Rule{Active: true, ValidTo: &past}).Validate(now, 10000); err != ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if err := (Rule{Active: false}).Validate(now, 10000); err != ErrInactive {
		t.Fatalf("inactive rule should fail, got %v", err)
	}
	if err := (Rule{Active: true, MinBill: 5000, ValidFrom: &past, ValidTo: &future}).Validate(now, 5000); err != nil {
		t.Fatalf("rule should validate, got %v", err)
	}
}

func TestResolveAutoPicksLargest(t *testing.T) {
	ruleX := Rule{Name: "X", Kind: KindFixedAmount, Value: 800, AutoApply: true, Active: true}
	ruleY := Rule{Name: "Y", Kind: KindFixedAmount, Value: 1200, AutoApply: true, Active: true}
	stack := Resolve(ResolveInput{
		Now:       time.Now(),
		Subtotal:  10000,
		AutoRules: []Rule{ruleX, ruleY},
	})
	if stack.Auto != 1200 {
		t.Fatalf("expected the larger auto rule (1200), got %d", stack.Auto)
	}
}

func TestResolveAutoFirstWinsTies(t *testing.T) {
	first := Rule{Name: "first", Kind: KindFixedAmount, Value: 1000, AutoApply: true, Active: true}
	second := Rule{Name: "second", Kind: KindPercentage, PercentBps: 1000, AutoApply: true, Active: true}
	stack := Resolve(ResolveInput{
		Now:       time.Now(),
		Subtotal:  10000,
		AutoRules: []Rule{first, second},
	})
	// Both compute 1000; the contribution is a single 1000, never 2000.
	if stack.Auto != 1000 {
		t.Fatalf("tie must contribute exactly one rule's amount, got %d", stack.Auto)
	}
}

func TestResolveIneligibleAutoRuleSilentlySkipped(t *testing.T) {
	rule := Rule{Kind: KindFixedAmount, Value: 1000, MinBill: 50000, AutoApply: true, Active: true}
	stack := Resolve(ResolveInput{Now: time.Now(), Subtotal: 10000, AutoRules: []Rule{rule}})
	if stack.Auto != 0 {
		t.Fatalf("ineligible auto rule must contribute 0, got %d", stack.Auto)
	}
}

func TestResolveFullStack(t *testing.T) {
	code := Rule{Kind: KindFixedAmount, Value: 500, Active: true}
	auto := Rule{Kind: KindPercentage, PercentBps: 1000, AutoApply: true, Active: true}
	stack := Resolve(ResolveInput{
		Now:          time.Now(),
		Subtotal:     10000,
		Manual:       1000,
		CodeRule:     &code,
		AutoRules:    []Rule{auto},
		RedeemPoints: 20,
		PointValue:   25,
	})
	if stack.Manual != 1000 || stack.Code != 500 || stack.Auto != 1000 || stack.Points != 500 {
		t.Fatalf("unexpected stack: %+v", stack)
	}
	if stack.Total() != 3000 {
		t.Fatalf("stack total = %d", stack.Total())
	}
}

func TestResolveNegativeManualClamped(t *testing.T) {
	stack := Resolve(ResolveInput{Now: time.Now(), Subtotal: 10000, Manual: -500})
	if stack.Manual != 0 {
		t.Fatalf("negative manual discount must clamp to 0, got %d", stack.Manual)
	}
}
