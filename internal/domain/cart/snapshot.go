package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/turfshop/internal/domain/pricing"
	"github.com/xenking/turfshop/internal/jsonx"
)

// Snapshot is the persisted form of a cart. Only ids and dimensions are
// stored; prices come from the catalog when the cart is restored.
type Snapshot struct {
	ID          string
	Items       []Item
	Discount    decimal.Decimal
	Code        string
	PromotionID string
	Pending     *pricing.Pending
}

// Snapshot captures the cart's persistent state.
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		ID:          c.id,
		Items:       append([]Item(nil), c.items...),
		Discount:    c.discount,
		Code:        c.code,
		PromotionID: c.promotionID,
	}
	if p, ok := c.calc.Pending(); ok {
		s.Pending = &p
	}
	return s
}

// restore replaces the cart's state with s without notifying subscribers.
func (c *Cart) restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append([]Item(nil), s.Items...)
	c.discount = clampRate(s.Discount)
	c.code = s.Code
	c.promotionID = s.PromotionID
	c.calc.Restore(s.Pending)
}

// Encode writes s as JSON.
func (s Snapshot) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(s.ID)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range s.Items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(it.ID)
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("width")
		jsonx.Decimal(e, it.Width)
		e.FieldStart("height")
		jsonx.Decimal(e, it.Height)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("discount")
	jsonx.Decimal(e, s.Discount)
	if s.Code != "" {
		e.FieldStart("code")
		e.Str(s.Code)
	}
	if s.PromotionID != "" {
		e.FieldStart("promotionId")
		e.Str(s.PromotionID)
	}
	if p := s.Pending; p != nil {
		e.FieldStart("pending")
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(p.ProductID)
		e.FieldStart("width")
		jsonx.Decimal(e, p.Quote.Width)
		e.FieldStart("height")
		jsonx.Decimal(e, p.Quote.Height)
		e.FieldStart("unitPrice")
		jsonx.Decimal(e, p.Quote.UnitPrice)
		e.ObjEnd()
	}
	e.ObjEnd()
}

// Decode reads s from JSON. Unknown fields are skipped.
func (s *Snapshot) Decode(d *jx.Decoder) error {
	*s = Snapshot{Discount: decimal.Zero}
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			s.ID, err = d.Str()
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				it, err := decodeItem(d)
				if err != nil {
					return err
				}
				s.Items = append(s.Items, it)
				return nil
			})
		case "discount":
			s.Discount, err = jsonx.ReadDecimal(d)
		case "code":
			s.Code, err = jsonx.ReadOptStr(d)
		case "promotionId":
			s.PromotionID, err = jsonx.ReadOptStr(d)
		case "pending":
			s.Pending, err = decodePending(d)
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "decode %q", key)
	})
}

func decodeItem(d *jx.Decoder) (Item, error) {
	var it Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			it.ID, err = d.Str()
		case "productId":
			it.ProductID, err = d.Str()
		case "width":
			it.Width, err = jsonx.ReadDecimal(d)
		case "height":
			it.Height, err = jsonx.ReadDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return Item{}, err
	}
	if it.ID == "" {
		return Item{}, errors.New("item without id")
	}
	return it, nil
}

func decodePending(d *jx.Decoder) (*pricing.Pending, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var (
		id                  string
		width, height, unit decimal.Decimal
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			id, err = d.Str()
		case "width":
			width, err = jsonx.ReadDecimal(d)
		case "height":
			height, err = jsonx.ReadDecimal(d)
		case "unitPrice":
			unit, err = jsonx.ReadDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	q := pricing.Calculate(width, height, unit)
	if !q.Area.IsPositive() {
		return nil, nil
	}
	return &pricing.Pending{ProductID: id, Quote: q}, nil
}

// MarshalSnapshot encodes s to bytes.
func MarshalSnapshot(s Snapshot) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	s.Encode(e)
	return append([]byte(nil), e.Bytes()...)
}

// UnmarshalSnapshot decodes s from bytes.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := s.Decode(jx.DecodeBytes(data)); err != nil {
		return Snapshot{}, errors.Wrap(err, "decode cart snapshot")
	}
	return s, nil
}
