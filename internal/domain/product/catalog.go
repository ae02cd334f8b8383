package product

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Catalog is an immutable, in-memory snapshot of the product list. A nil
// *Catalog behaves as an empty catalog.
type Catalog struct {
	products []Product
	byID     map[string]int
}

var _ Repository = (*Catalog)(nil)

// NewCatalog builds a catalog from products. Later duplicates of an id are
// ignored so the first occurrence wins.
func NewCatalog(products []Product) *Catalog {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		if _, dup := c.byID[p.ID]; dup {
			continue
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c
}

// Lookup returns the product with the given id.
func (c *Catalog) Lookup(id string) (Product, bool) {
	if c == nil || id == "" {
		return Product{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

// Products returns a copy of the catalog in load order.
func (c *Catalog) Products() []Product {
	if c == nil {
		return nil
	}
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// List implements Repository.
func (c *Catalog) List(_ context.Context) ([]Product, error) {
	return c.Products(), nil
}

// GetByID implements Repository.
func (c *Catalog) GetByID(_ context.Context, id string) (*Product, error) {
	p, ok := c.Lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// Load fetches the product list once from repo. On failure the error is
// logged and an empty catalog is returned together with the error, so
// callers can keep serving with no selectable products.
func Load(ctx context.Context, repo Repository, lg *zap.Logger) (*Catalog, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	products, err := repo.List(ctx)
	if err != nil {
		lg.Error("Catalog load failed, serving empty catalog", zap.Error(err))
		return NewCatalog(nil), errors.Wrap(err, "load catalog")
	}
	lg.Info("Catalog loaded", zap.Int("products", len(products)))
	return NewCatalog(products), nil
}
