// Package promotion selects and validates storefront promotions.
package promotion

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Promotion is a percentage discount with a minimum order threshold.
// A zero ValidFrom or ValidTo leaves that side of the window open.
type Promotion struct {
	ID          string
	Name        string
	Description string
	Value       decimal.Decimal
	MinOrder    decimal.Decimal
	ValidFrom   time.Time
	ValidTo     time.Time
}

// Rate returns the promotion value as a fraction.
func (p Promotion) Rate() decimal.Decimal {
	return p.Value.Div(hundred)
}

// Savings returns the amount saved on subtotal, rounded to 2 decimal places.
func (p Promotion) Savings(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	return subtotal.Mul(p.Value).Div(hundred).Round(2)
}

// Qualifies reports whether subtotal meets the minimum order.
func (p Promotion) Qualifies(subtotal decimal.Decimal) bool {
	return p.MinOrder.LessThanOrEqual(subtotal)
}

func (p Promotion) activeAt(now time.Time) bool {
	if !p.ValidFrom.IsZero() && now.Before(p.ValidFrom) {
		return false
	}
	if !p.ValidTo.IsZero() && now.After(p.ValidTo) {
		return false
	}
	return true
}

// Offer is a promotion priced against a specific subtotal.
type Offer struct {
	Promotion        Promotion
	PotentialSavings decimal.Decimal
}

// Result is the outcome of applying a promotion.
type Result struct {
	Valid   bool
	Message string
	Rate    decimal.Decimal
}

// Selector picks among a fixed list of promotions.
type Selector struct {
	promotions []Promotion
	now        func() time.Time
}

// NewSelector creates a Selector over promotions.
func NewSelector(promotions []Promotion) *Selector {
	ps := make([]Promotion, len(promotions))
	copy(ps, promotions)
	return &Selector{promotions: ps, now: time.Now}
}

// Promotions returns the configured promotions.
func (s *Selector) Promotions() []Promotion {
	out := make([]Promotion, len(s.promotions))
	copy(out, s.promotions)
	return out
}

// Best returns the active promotion with the highest savings among those
// whose minimum order is met. Ties keep the earlier promotion.
func (s *Selector) Best(subtotal decimal.Decimal) (Offer, bool) {
	now := s.now()

	var (
		best  Offer
		found bool
	)
	for _, p := range s.promotions {
		if !p.Qualifies(subtotal) || !p.activeAt(now) {
			continue
		}
		savings := p.Savings(subtotal)
		if !found || savings.GreaterThan(best.PotentialSavings) {
			best = Offer{Promotion: p, PotentialSavings: savings}
			found = true
		}
	}
	return best, found
}

// Apply validates promotion id against the subtotal at the time of the
// call. The subtotal may have changed since the offer was shown.
func (s *Selector) Apply(id string, subtotal decimal.Decimal) Result {
	var (
		p  Promotion
		ok bool
	)
	for _, candidate := range s.promotions {
		if candidate.ID == id {
			p, ok = candidate, true
			break
		}
	}
	if !ok {
		return Result{Message: "Promotion not found"}
	}
	if !p.activeAt(s.now()) {
		return Result{Message: fmt.Sprintf("%s is no longer available", p.Name)}
	}
	if !p.Qualifies(subtotal) {
		return Result{Message: fmt.Sprintf(
			"Minimum order of KES %s required for %s",
			p.MinOrder.StringFixed(2), p.Name,
		)}
	}
	return Result{
		Valid: true,
		Message: fmt.Sprintf("%s applied: you save KES %s",
			p.Name, p.Savings(subtotal).StringFixed(2)),
		Rate: p.Rate(),
	}
}

// Defaults returns the retailer's standing promotions.
func Defaults() []Promotion {
	return []Promotion{
		{
			ID:          "welcome10",
			Name:        "Welcome Offer",
			Description: "10% off your first turf order above KES 25,000",
			Value:       decimal.NewFromInt(10),
			MinOrder:    decimal.NewFromInt(25000),
		},
		{
			ID:          "save15",
			Name:        "Big Lawn Saver",
			Description: "15% off orders above KES 50,000",
			Value:       decimal.NewFromInt(15),
			MinOrder:    decimal.NewFromInt(50000),
		},
		{
			ID:          "bulk20",
			Name:        "Bulk Contractor Deal",
			Description: "20% off orders above KES 150,000",
			Value:       decimal.NewFromInt(20),
			MinOrder:    decimal.NewFromInt(150000),
		},
	}
}
