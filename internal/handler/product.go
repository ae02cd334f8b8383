package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"

	"github.com/xenking/turfshop/internal/domain/pricing"
	"github.com/xenking/turfshop/internal/domain/product"
	"github.com/xenking/turfshop/internal/jsonx"
)

// listProducts returns the catalog. When the startup load failed the list
// is empty and catalogUnavailable is true, so the storefront can show a
// notice instead of an empty shelf.
func (h *Handler) listProducts(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	products := h.catalog.Products()
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("products")
		e.ArrStart()
		for i := range products {
			h.encodeProduct(e, &products[i])
		}
		e.ArrEnd()
		e.FieldStart("catalogUnavailable")
		e.Bool(h.catalogErr != nil)
		e.ObjEnd()
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, ok := h.catalog.Lookup(ps.ByName("productID"))
	if !ok {
		h.fail(w, r, product.ErrNotFound)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) { h.encodeProduct(e, &p) })
}

// quoteRequest is the calculator input. Width and height are parsed
// leniently; anything that is not a number counts as zero.
type quoteRequest struct {
	ProductID string
	Width     decimal.Decimal
	Height    decimal.Decimal
}

func readQuoteRequest(w http.ResponseWriter, r *http.Request) (quoteRequest, error) {
	q := quoteRequest{Width: decimal.Zero, Height: decimal.Zero}
	err := readBody(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			v, err := jsonx.ReadOptStr(d)
			q.ProductID = v
			return err
		case "width":
			v, err := jsonx.ReadText(d)
			q.Width = pricing.ParseAmount(v)
			return err
		case "height":
			v, err := jsonx.ReadText(d)
			q.Height = pricing.ParseAmount(v)
			return err
		default:
			return d.Skip()
		}
	})
	return q, err
}

// quote prices an area without touching any cart.
func (h *Handler) quote(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := readQuoteRequest(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, ok := h.catalog.Lookup(req.ProductID)
	if !ok {
		h.fail(w, r, product.ErrNotFound)
		return
	}

	q := pricing.Calculate(req.Width, req.Height, p.Price)
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(p.ID)
		encodeQuote(e, q)
		e.ObjEnd()
	})
}
