// Package draft implements the broker's editable order, preorder and
// inquiry lists. A single List type serves all three kinds; per-kind
// behaviour comes from a Policy.
package draft

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/turfshop/internal/domain/product"
)

// Kind identifies a draft list flavour.
type Kind string

const (
	KindOrder    Kind = "order"
	KindPreorder Kind = "preorder"
	KindInquiry  Kind = "inquiry"
)

// ParseKind accepts both singular and plural forms ("orders").
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.TrimSuffix(strings.ToLower(s), "s")) {
	case KindOrder:
		return KindOrder, true
	case KindPreorder:
		return KindPreorder, true
	case KindInquiry, "inquirie":
		return KindInquiry, true
	}
	return "", false
}

// Field names an editable line item field.
type Field string

const (
	FieldProduct      Field = "productId"
	FieldQuantity     Field = "quantity"
	FieldExpectedDate Field = "expectedDate"
	FieldSpecialNotes Field = "specialNotes"
	FieldBargainPrice Field = "bargainPrice"
)

var (
	// ErrEmpty is returned when submitting a list with no items.
	ErrEmpty = errors.New("no items to submit")
)

// IncompleteItemError indicates a line item is missing a product or a
// positive primary value.
type IncompleteItemError struct {
	Kind   Kind
	ItemID int
}

func (e *IncompleteItemError) Error() string {
	return fmt.Sprintf("please complete all %s items before submitting (item %d)", e.Kind, e.ItemID)
}

// UnknownFieldError indicates a field that the list's kind does not edit.
type UnknownFieldError struct {
	Kind  Kind
	Field Field
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("field %q is not editable on %s items", e.Field, e.Kind)
}

// Item is one editable row. Only the product id is stored; the product,
// unit price and totals are derived from the catalog on every read.
type Item struct {
	ID           int
	ProductID    string
	Quantity     decimal.Decimal
	ExpectedDate string
	SpecialNotes string
	BargainPrice decimal.Decimal
}

// Line is an Item priced against the catalog.
type Line struct {
	Item

	// Product is nil when no product is selected or the id is unknown.
	Product   *product.Product
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
	// Difference is BargainPrice minus UnitPrice.
	Difference decimal.Decimal
}

// State returns the line state name: "empty" or "selected".
func (l Line) State() string {
	if l.Product == nil {
		return "empty"
	}
	return "selected"
}

func price(it Item, lookup product.Lookup) Line {
	l := Line{Item: it, UnitPrice: decimal.Zero}
	if lookup != nil {
		if p, ok := lookup(it.ProductID); ok {
			l.Product = &p
			l.UnitPrice = p.Price
		}
	}
	l.Total = l.UnitPrice.Mul(it.Quantity)
	l.Difference = it.BargainPrice.Sub(l.UnitPrice)
	return l
}
