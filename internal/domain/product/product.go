package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a turf grade offered by the retailer. Price is per square
// metre.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Thickness string
	UseCases  []string
	Features  []string
	Image     string
}

// Repository defines read operations for a product source.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}

// Lookup resolves a product by id against a loaded catalog.
type Lookup func(id string) (Product, bool)
