package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/julienschmidt/httprouter"

	"github.com/xenking/turfshop/internal/domain/cart"
	"github.com/xenking/turfshop/internal/domain/promotion"
	"github.com/xenking/turfshop/internal/domain/submission"
	"github.com/xenking/turfshop/internal/jsonx"
)

func (h *Handler) createCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	c, err := h.carts.Create(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/carts/"+c.ID())
	respond(w, http.StatusCreated, func(e *jx.Encoder) { h.encodeCart(e, c) })
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	c, err := h.carts.Get(r.Context(), ps.ByName("cartID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) { h.encodeCart(e, c) })
}

func (h *Handler) deleteCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.carts.Delete(r.Context(), ps.ByName("cartID")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// updateCart runs fn against the stored cart and responds with the cart
// after the change.
func (h *Handler) updateCart(w http.ResponseWriter, r *http.Request, id string, code int, fn func(c *cart.Cart) error) {
	c, err := h.carts.Update(r.Context(), id, fn)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, code, func(e *jx.Encoder) { h.encodeCart(e, c) })
}

// calculate stores a pending quote on the cart. The quote, not the live
// inputs, is what a following add-to-cart uses.
func (h *Handler) calculate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	req, err := readQuoteRequest(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.updateCart(w, r, ps.ByName("cartID"), http.StatusOK, func(c *cart.Cart) error {
		_, err := c.Calculate(req.ProductID, req.Width, req.Height)
		return err
	})
}

// addCartItem adds the pending quote. A body with a productId adds those
// dimensions directly instead.
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	req, err := readQuoteRequest(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.updateCart(w, r, ps.ByName("cartID"), http.StatusCreated, func(c *cart.Cart) error {
		if req.ProductID == "" {
			_, err := c.AddPending()
			return err
		}
		c.Add(req.ProductID, req.Width, req.Height)
		return nil
	})
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itemID := ps.ByName("itemID")
	h.updateCart(w, r, ps.ByName("cartID"), http.StatusOK, func(c *cart.Cart) error {
		for _, l := range c.Lines() {
			if l.ID == itemID {
				c.Remove(itemID)
				return nil
			}
		}
		return errCartItemNotFound
	})
}

// applyDiscount never fails on an unknown code: the discount is reset and
// applied is false.
func (h *Handler) applyDiscount(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var code string
	if err := readBody(w, r, func(d *jx.Decoder, key string) error {
		if key != "code" {
			return d.Skip()
		}
		v, err := jsonx.ReadOptStr(d)
		code = v
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	var applied bool
	c, err := h.carts.Update(r.Context(), ps.ByName("cartID"), func(c *cart.Cart) error {
		applied = c.ApplyDiscount(code)
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("applied")
		e.Bool(applied)
		e.FieldStart("cart")
		h.encodeCart(e, c)
		e.ObjEnd()
	})
}

func (h *Handler) bestPromotion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	c, err := h.carts.Get(r.Context(), ps.ByName("cartID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	offer, ok := c.BestPromotion(h.promotions)
	if !ok {
		h.fail(w, r, errNoPromotion)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("promotion")
		encodePromotion(e, offer.Promotion)
		e.FieldStart("potentialSavings")
		jsonx.Money(e, offer.PotentialSavings)
		e.ObjEnd()
	})
}

// applyPromotion reports an invalid promotion in the body with 200; the
// cart is left untouched in that case.
func (h *Handler) applyPromotion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var res promotion.Result
	c, err := h.carts.Update(r.Context(), ps.ByName("cartID"), func(c *cart.Cart) error {
		res = c.ApplyPromotion(h.promotions, ps.ByName("promotionID"))
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("valid")
		e.Bool(res.Valid)
		e.FieldStart("message")
		e.Str(res.Message)
		e.FieldStart("cart")
		h.encodeCart(e, c)
		e.ObjEnd()
	})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var customer submission.Customer
	if err := readBody(w, r, func(d *jx.Decoder, key string) error {
		if key != "customer" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "name":
				customer.Name, err = jsonx.ReadOptStr(d)
			case "email":
				customer.Email, err = jsonx.ReadOptStr(d)
			case "phone":
				customer.Phone, err = jsonx.ReadOptStr(d)
			default:
				err = d.Skip()
			}
			return err
		})
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	receipt, err := h.carts.Checkout(r.Context(), ps.ByName("cartID"), customer, h.gateway)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) { encodeReceipt(e, receipt) })
}
