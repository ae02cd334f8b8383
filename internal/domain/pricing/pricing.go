// Package pricing implements the area-based price calculator.
package pricing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// ParseAmount parses user input leniently: the leading number is kept
// and trailing text such as a unit is ignored. Input without a leading
// number becomes zero.
func ParseAmount(s string) decimal.Decimal {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// Quote is the result of pricing a rectangular area of turf.
type Quote struct {
	Width     decimal.Decimal
	Height    decimal.Decimal
	Area      decimal.Decimal
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// Calculate prices width × height square metres at unitPrice per square
// metre. Non-positive dimensions produce a zero area; a negative unit
// price produces a zero total.
func Calculate(width, height, unitPrice decimal.Decimal) Quote {
	q := Quote{Width: width, Height: height, UnitPrice: unitPrice}
	if !width.IsPositive() || !height.IsPositive() {
		q.Area = decimal.Zero
		q.Total = decimal.Zero
		return q
	}
	q.Area = width.Mul(height)
	if unitPrice.IsNegative() {
		q.Total = decimal.Zero
		return q
	}
	q.Total = q.Area.Mul(unitPrice)
	return q
}

// Pending is the last successful calculation, waiting to be added to a
// cart.
type Pending struct {
	ProductID string
	Quote     Quote
}

// Calculator remembers the last quote so that a follow-up "add to cart"
// uses the calculated values rather than whatever the inputs hold now.
type Calculator struct {
	pending *Pending
}

// Calculate prices the area and stores the quote as pending. A quote
// with zero area is returned but not stored.
func (c *Calculator) Calculate(productID string, width, height, unitPrice decimal.Decimal) Quote {
	q := Calculate(width, height, unitPrice)
	if q.Area.IsPositive() {
		c.pending = &Pending{ProductID: productID, Quote: q}
	} else {
		c.pending = nil
	}
	return q
}

// Pending returns the stored quote, if any.
func (c *Calculator) Pending() (Pending, bool) {
	if c.pending == nil {
		return Pending{}, false
	}
	return *c.pending, true
}

// Restore replaces the pending quote, used when loading persisted state.
func (c *Calculator) Restore(p *Pending) {
	c.pending = p
}

// Reset forgets the pending quote.
func (c *Calculator) Reset() {
	c.pending = nil
}
