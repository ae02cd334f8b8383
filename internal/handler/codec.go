package handler

import (
	"strings"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/turfshop/internal/domain/cart"
	"github.com/xenking/turfshop/internal/domain/draft"
	"github.com/xenking/turfshop/internal/domain/pricing"
	"github.com/xenking/turfshop/internal/domain/product"
	"github.com/xenking/turfshop/internal/domain/promotion"
	"github.com/xenking/turfshop/internal/domain/submission"
	"github.com/xenking/turfshop/internal/jsonx"
)

func (h *Handler) encodeProduct(e *jx.Encoder, p *product.Product) {
	if p == nil {
		e.Null()
		return
	}
	out := *p
	if h.imageBaseURL != "" && strings.HasPrefix(out.Image, "/") {
		out.Image = h.imageBaseURL + out.Image
	}
	out.Encode(e)
}

func encodeQuote(e *jx.Encoder, q pricing.Quote) {
	e.FieldStart("width")
	jsonx.Decimal(e, q.Width)
	e.FieldStart("height")
	jsonx.Decimal(e, q.Height)
	e.FieldStart("area")
	jsonx.Decimal(e, q.Area)
	e.FieldStart("unitPrice")
	jsonx.Money(e, q.UnitPrice)
	e.FieldStart("total")
	jsonx.Money(e, q.Total)
}

func (h *Handler) encodeCart(e *jx.Encoder, c *cart.Cart) {
	st := c.State()

	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID())
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range st.Items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(l.ID)
		e.FieldStart("productId")
		e.Str(l.ProductID)
		e.FieldStart("product")
		h.encodeProduct(e, l.Product)
		e.FieldStart("width")
		jsonx.Decimal(e, l.Width)
		e.FieldStart("height")
		jsonx.Decimal(e, l.Height)
		e.FieldStart("area")
		jsonx.Decimal(e, l.Area)
		e.FieldStart("unitPrice")
		jsonx.Money(e, l.UnitPrice)
		e.FieldStart("total")
		jsonx.Money(e, l.Total)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("itemCount")
	e.Int(len(st.Items))
	e.FieldStart("subtotal")
	jsonx.Money(e, st.Subtotal)
	e.FieldStart("discount")
	jsonx.Decimal(e, st.Discount)
	if st.Code != "" {
		e.FieldStart("code")
		e.Str(st.Code)
	}
	if st.PromotionID != "" {
		e.FieldStart("promotionId")
		e.Str(st.PromotionID)
	}
	e.FieldStart("total")
	jsonx.Money(e, st.Total)
	if p, ok := c.Pending(); ok {
		e.FieldStart("pending")
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(p.ProductID)
		encodeQuote(e, p.Quote)
		e.ObjEnd()
	}
	e.ObjEnd()
}

func encodePromotion(e *jx.Encoder, p promotion.Promotion) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("value")
	jsonx.Decimal(e, p.Value)
	e.FieldStart("minOrder")
	jsonx.Money(e, p.MinOrder)
	e.ObjEnd()
}

func (h *Handler) encodeDraft(e *jx.Encoder, l *draft.List) {
	lines := l.Lines()

	e.ObjStart()
	e.FieldStart("kind")
	e.Str(string(l.Kind()))
	e.FieldStart("items")
	e.ArrStart()
	for _, ln := range lines {
		h.encodeDraftLine(e, l.Kind(), ln)
	}
	e.ArrEnd()
	e.FieldStart("count")
	e.Int(len(lines))
	e.FieldStart("total")
	jsonx.Money(e, l.Total())
	if l.Kind() == draft.KindInquiry {
		original, bargain := decimal.Zero, decimal.Zero
		for _, ln := range lines {
			original = original.Add(ln.UnitPrice)
			bargain = bargain.Add(ln.BargainPrice)
		}
		e.FieldStart("totalOriginal")
		jsonx.Money(e, original)
		e.FieldStart("totalBargain")
		jsonx.Money(e, bargain)
	}
	e.ObjEnd()
}

func (h *Handler) encodeDraftLine(e *jx.Encoder, kind draft.Kind, l draft.Line) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int(l.ID)
	e.FieldStart("state")
	e.Str(l.State())
	e.FieldStart("productId")
	e.Str(l.ProductID)
	e.FieldStart("product")
	h.encodeProduct(e, l.Product)
	e.FieldStart("unitPrice")
	jsonx.Money(e, l.UnitPrice)
	switch kind {
	case draft.KindInquiry:
		e.FieldStart("bargainPrice")
		jsonx.Decimal(e, l.BargainPrice)
		e.FieldStart("difference")
		jsonx.Money(e, l.Difference)
	default:
		e.FieldStart("quantity")
		jsonx.Decimal(e, l.Quantity)
		e.FieldStart("total")
		jsonx.Money(e, l.Total)
		if kind == draft.KindPreorder {
			e.FieldStart("expectedDate")
			e.Str(l.ExpectedDate)
			e.FieldStart("specialNotes")
			e.Str(l.SpecialNotes)
		}
	}
	e.ObjEnd()
}

func encodeReceipt(e *jx.Encoder, r *submission.Receipt) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(r.ID)
	e.FieldStart("kind")
	e.Str(string(r.Kind))
	e.FieldStart("link")
	e.Str(r.Link)
	e.FieldStart("message")
	e.Str(r.Message)
	e.FieldStart("submittedAt")
	jsonx.Time(e, r.SubmittedAt)
	e.ObjEnd()
}
