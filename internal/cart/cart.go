// Package cart models the in-flight sale as an immutable value. Every
// operation returns a new State so callers can recompute pricing from a
// consistent snapshot and tests can exercise transitions without scaffolding.
package cart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tanakrit-dev/backend-pos/internal/money"
)

// Modifier is a priced add-on attached to a line at add time.
type Modifier struct {
	ID    int64       `json:"id"`
	Name  string      `json:"name"`
	Price money.Money `json:"price"`
}

// Line is one distinct purchasable configuration in the cart.
type Line struct {
	ProductID int64       `json:"productId"`
	Name      string      `json:"name"`
	UnitPrice money.Money `json:"unitPrice"`
	Quantity  int         `json:"quantity"`
	Modifiers []Modifier  `json:"modifiers,omitempty"`
	Subtotal  money.Money `json:"subtotal"`
}

// Key identifies a line by its configuration: product, exact unit price and
// the modifier set regardless of order. Each modifier contributes its id and
// price, so a mid-session catalog reprice yields a distinct line instead of
// merging into one carrying stale modifier records. The product name is
// deliberately not part of the key so a rename does not fragment the cart.
func (l Line) Key() string {
	mods := make([]string, len(l.Modifiers))
	for i, m := range l.Modifiers {
		mods[i] = fmt.Sprintf("%d@%d", m.ID, m.Price)
	}
	sort.Strings(mods)
	return fmt.Sprintf("%d:%d:%s", l.ProductID, l.UnitPrice, strings.Join(mods, ","))
}

// State is the full cart contents. The zero value is an empty cart.
type State struct {
	Lines []Line
}

// AddInput describes one product configuration being added.
type AddInput struct {
	ProductID     int64
	Name          string
	BasePrice     money.Money
	Modifiers     []Modifier
	PriceOverride *money.Money
	Quantity      int
}

// Add merges the configuration into an existing line when product, unit price
// and modifier set all match, otherwise appends a new line. Quantity defaults
// to one.
func (s State) Add(in AddInput) State {
	qty := in.Quantity
	if qty <= 0 {
		qty = 1
	}
	unitPrice := in.BasePrice
	for _, m := range in.Modifiers {
		unitPrice += m.Price
	}
	if in.PriceOverride != nil {
		unitPrice = *in.PriceOverride
	}
	candidate := Line{
		ProductID: in.ProductID,
		Name:      in.Name,
		UnitPrice: unitPrice,
		Quantity:  qty,
		Modifiers: append([]Modifier(nil), in.Modifiers...),
	}
	candidate.Subtotal = unitPrice * money.Money(qty)

	next := s.clone()
	key := candidate.Key()
	for i, line := range next.Lines {
		if line.Key() == key {
			line.Quantity += qty
			line.Subtotal = line.UnitPrice * money.Money(line.Quantity)
			next.Lines[i] = line
			return next
		}
	}
	next.Lines = append(next.Lines, candidate)
	return next
}

// UpdateQuantity sets the quantity of the line identified by key. A quantity
// of zero or less removes the line entirely; there is no zero-quantity
// placeholder state. The unit price is never re-derived from the catalog.
func (s State) UpdateQuantity(key string, quantity int) State {
	if quantity <= 0 {
		return s.Remove(key)
	}
	next := s.clone()
	for i, line := range next.Lines {
		if line.Key() == key {
			line.Quantity = quantity
			line.Subtotal = line.UnitPrice * money.Money(quantity)
			next.Lines[i] = line
			break
		}
	}
	return next
}

// Remove deletes the line identified by key. Removing an unknown key is a
// no-op.
func (s State) Remove(key string) State {
	next := State{Lines: make([]Line, 0, len(s.Lines))}
	for _, line := range s.Lines {
		if line.Key() == key {
			continue
		}
		next.Lines = append(next.Lines, cloneLine(line))
	}
	return next
}

// Clear empties the cart. Used after a successful commit.
func (s State) Clear() State {
	return State{}
}

// Subtotal sums line subtotals.
func (s State) Subtotal() money.Money {
	var total money.Money
	for _, line := range s.Lines {
		total += line.Subtotal
	}
	return total
}

// ItemCount sums line quantities.
func (s State) ItemCount() int {
	var n int
	for _, line := range s.Lines {
		n += line.Quantity
	}
	return n
}

// Empty reports whether the cart has no lines.
func (s State) Empty() bool {
	return len(s.Lines) == 0
}

func (s State) clone() State {
	next := State{Lines: make([]Line, len(s.Lines))}
	for i, line := range s.Lines {
		next.Lines[i] = cloneLine(line)
	}
	return next
}

func cloneLine(l Line) Line {
	l.Modifiers = append([]Modifier(nil), l.Modifiers...)
	return l
}
