// Package cart implements the storefront cart: area-priced line items,
// a discount code or promotion, and change notifications.
package cart

import (
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/turfshop/internal/domain/pricing"
	"github.com/xenking/turfshop/internal/domain/product"
	"github.com/xenking/turfshop/internal/domain/promotion"
	"github.com/xenking/turfshop/internal/notify"
)

var (
	// ErrNotFound is returned when no cart exists for an id.
	ErrNotFound = errors.New("cart not found")
	// ErrNothingCalculated is returned when adding to the cart before a
	// successful area calculation.
	ErrNothingCalculated = errors.New("calculate an area before adding to cart")
	// ErrEmpty is returned when checking out an empty cart.
	ErrEmpty = errors.New("cart is empty")
)

// Codes maps discount codes to rates in [0, 1].
type Codes map[string]decimal.Decimal

// DefaultCodes is the built-in discount code table.
func DefaultCodes() Codes {
	return Codes{"SAVE10": decimal.RequireFromString("0.1")}
}

// Merge returns a copy of c overlaid with other.
func (c Codes) Merge(other Codes) Codes {
	out := make(Codes, len(c)+len(other))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range other {
		out[k] = clampRate(v)
	}
	return out
}

var one = decimal.NewFromInt(1)

func clampRate(r decimal.Decimal) decimal.Decimal {
	if r.IsNegative() || r.GreaterThan(one) {
		return decimal.Zero
	}
	return r
}

// Item is a stored cart row. Price and totals are derived on read.
type Item struct {
	ID        string
	ProductID string
	Width     decimal.Decimal
	Height    decimal.Decimal
}

// Line is an Item priced against the catalog.
type Line struct {
	Item

	Product   *product.Product
	UnitPrice decimal.Decimal
	Area      decimal.Decimal
	Total     decimal.Decimal
}

func price(it Item, lookup product.Lookup) Line {
	unit := decimal.Zero
	var p *product.Product
	if lookup != nil {
		if found, ok := lookup(it.ProductID); ok {
			p = &found
			unit = found.Price
		}
	}
	q := pricing.Calculate(it.Width, it.Height, unit)
	return Line{Item: it, Product: p, UnitPrice: unit, Area: q.Area, Total: q.Total}
}

// State is what subscribers receive after every mutation.
type State struct {
	Items       []Line
	Subtotal    decimal.Decimal
	Total       decimal.Decimal
	Discount    decimal.Decimal
	Code        string
	PromotionID string
}

// Cart is a single shopper's cart. It is safe for concurrent use.
type Cart struct {
	id     string
	lookup product.Lookup
	codes  Codes
	hub    *notify.Hub[State]
	newID  func() string

	mu          sync.Mutex
	items       []Item
	discount    decimal.Decimal
	code        string
	promotionID string
	calc        pricing.Calculator
}

// New creates an empty cart.
func New(id string, lookup product.Lookup, codes Codes, lg *zap.Logger) *Cart {
	if codes == nil {
		codes = DefaultCodes()
	}
	return &Cart{
		id:       id,
		lookup:   lookup,
		codes:    codes,
		hub:      notify.NewHub[State](lg),
		newID:    func() string { return uuid.New().String() },
		discount: decimal.Zero,
	}
}

// ID returns the cart id.
func (c *Cart) ID() string { return c.id }

// Subscribe registers fn for state changes.
func (c *Cart) Subscribe(fn func(State)) (unsubscribe func()) {
	return c.hub.Subscribe(fn)
}

// mutate runs fn under the lock and publishes the resulting state.
func (c *Cart) mutate(fn func()) State {
	c.mu.Lock()
	fn()
	s := c.stateLocked()
	c.mu.Unlock()

	c.hub.Publish(s)
	return s
}

// Add appends a row for productID with the given dimensions. Rows are
// never merged.
func (c *Cart) Add(productID string, width, height decimal.Decimal) Line {
	var line Line
	c.mutate(func() {
		it := Item{ID: c.newID(), ProductID: productID, Width: width, Height: height}
		c.items = append(c.items, it)
		line = price(it, c.lookup)
	})
	return line
}

// Remove deletes the row with id. Unknown ids are ignored.
func (c *Cart) Remove(id string) {
	c.mutate(func() {
		out := c.items[:0]
		for _, it := range c.items {
			if it.ID != id {
				out = append(out, it)
			}
		}
		c.items = out
	})
}

// Clear empties the cart and drops any discount.
func (c *Cart) Clear() {
	c.mutate(c.clearLocked)
}

func (c *Cart) clearLocked() {
	c.items = nil
	c.discount = decimal.Zero
	c.code = ""
	c.promotionID = ""
}

// ApplyDiscount sets the discount from code. Codes match exactly; an
// unknown code resets the discount to zero. It reports whether the code
// was recognised.
func (c *Cart) ApplyDiscount(code string) bool {
	rate, ok := c.codes[code]
	c.mutate(func() {
		c.promotionID = ""
		if !ok {
			c.discount = decimal.Zero
			c.code = ""
			return
		}
		c.discount = rate
		c.code = code
	})
	return ok
}

// ApplyPromotion validates promotion id against the current subtotal and
// applies it when valid. An invalid promotion leaves the cart untouched.
func (c *Cart) ApplyPromotion(sel *promotion.Selector, id string) promotion.Result {
	c.mu.Lock()
	res := sel.Apply(id, c.subtotalLocked())
	c.mu.Unlock()
	if !res.Valid {
		return res
	}

	c.mutate(func() {
		c.discount = res.Rate
		c.code = ""
		c.promotionID = id
	})
	return res
}

// BestPromotion returns the best offer for the current subtotal.
func (c *Cart) BestPromotion(sel *promotion.Selector) (promotion.Offer, bool) {
	return sel.Best(c.Subtotal())
}

// Calculate prices width × height of productID and remembers the quote
// for AddPending.
func (c *Cart) Calculate(productID string, width, height decimal.Decimal) (pricing.Quote, error) {
	var p product.Product
	ok := false
	if c.lookup != nil {
		p, ok = c.lookup(productID)
	}
	if !ok {
		return pricing.Quote{}, product.ErrNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calc.Calculate(productID, width, height, p.Price), nil
}

// Pending returns the last successful calculation.
func (c *Cart) Pending() (pricing.Pending, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calc.Pending()
}

// AddPending adds the last calculated area to the cart. The pending
// quote is kept, so adding again adds another identical row.
func (c *Cart) AddPending() (Line, error) {
	c.mu.Lock()
	p, ok := c.calc.Pending()
	c.mu.Unlock()
	if !ok {
		return Line{}, ErrNothingCalculated
	}
	return c.Add(p.ProductID, p.Quote.Width, p.Quote.Height), nil
}

// Lines returns the priced rows in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.linesLocked()
}

// Len returns the number of rows.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Subtotal returns the sum of line totals before discount.
func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subtotalLocked()
}

// Discount returns the active discount rate.
func (c *Cart) Discount() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discount
}

// Total returns subtotal × (1 − discount) unrounded. Callers round when
// rendering.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return total(c.subtotalLocked(), c.discount)
}

// State returns the current state.
func (c *Cart) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Cart) linesLocked() []Line {
	lines := make([]Line, len(c.items))
	for i, it := range c.items {
		lines[i] = price(it, c.lookup)
	}
	return lines
}

func (c *Cart) subtotalLocked() decimal.Decimal {
	return sum(c.linesLocked())
}

func (c *Cart) stateLocked() State {
	lines := c.linesLocked()
	sub := sum(lines)
	return State{
		Items:       lines,
		Subtotal:    sub,
		Total:       total(sub, c.discount),
		Discount:    c.discount,
		Code:        c.code,
		PromotionID: c.promotionID,
	}
}

func sum(lines []Line) decimal.Decimal {
	s := decimal.Zero
	for _, l := range lines {
		s = s.Add(l.Total)
	}
	return s
}

func total(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(subtotal.Mul(rate))
}
