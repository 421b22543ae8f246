// Package money provides fixed-point arithmetic for Baht amounts held in
// satang. All pricing math happens on int64 minor units; decimal strings
// exist only at the I/O boundary.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Money is a monetary value in satang (1/100 Baht).
type Money = int64

// ErrInvalidAmount is returned when a decimal string cannot be parsed.
var ErrInvalidAmount = errors.New("invalid amount")

// Parse converts a fixed-decimal string such as "50.00" or "7.5" into satang.
// At most two fraction digits are accepted; anything finer would silently
// lose precision.
func Parse(value string) (Money, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, fmt.Errorf("empty string: %w", ErrInvalidAmount)
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("%q: %w", value, ErrInvalidAmount)
	}
	whole := s
	frac := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		whole = s[:idx]
		frac = s[idx+1:]
	}
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("%q: %w", value, ErrInvalidAmount)
	}
	if whole == "" {
		whole = "0"
	}
	if !digitsOnly(whole) || (frac != "" && !digitsOnly(frac)) {
		return 0, fmt.Errorf("%q: %w", value, ErrInvalidAmount)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%q has more than two fraction digits: %w", value, ErrInvalidAmount)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", value, ErrInvalidAmount)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", value, ErrInvalidAmount)
	}
	amount := units*100 + cents
	if neg {
		amount = -amount
	}
	return amount, nil
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MustParse is a test and seed helper that panics on malformed input.
func MustParse(value string) Money {
	m, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return m
}

// Format renders satang as a fixed-2-decimal string, e.g. 8025 -> "80.25".
func Format(m Money) string {
	neg := m < 0
	if neg {
		m = -m
	}
	s := fmt.Sprintf("%d.%02d", m/100, m%100)
	if neg {
		return "-" + s
	}
	return s
}

// PercentBps applies a basis-point percentage to an amount with integer
// truncation, matching how the ledger rounds: 700 bps of 10000 satang is
// 700 satang.
func PercentBps(amount Money, bps int) Money {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return amount * Money(bps) / 10000
}

// Clamp floors an amount at zero.
func Clamp(m Money) Money {
	if m < 0 {
		return 0
	}
	return m
}
