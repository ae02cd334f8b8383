package submission

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/turfshop/internal/jsonx"
)

// EncodePayload writes p as JSON. The shape mirrors the messages sent to
// the shop, with amounts as numbers.
func EncodePayload(e *jx.Encoder, p Payload) error {
	switch v := p.(type) {
	case Order:
		e.ObjStart()
		encodeOrderFields(e, v)
		e.ObjEnd()
	case Preorder:
		e.ObjStart()
		encodeOrderFields(e, v.Order)
		e.FieldStart("expectedDate")
		e.Str(v.ExpectedDate)
		e.FieldStart("specialNotes")
		e.Str(v.SpecialNotes)
		e.ObjEnd()
	case Inquiry:
		e.ObjStart()
		encodeBroker(e, v.Broker)
		e.FieldStart("items")
		e.ArrStart()
		for _, it := range v.Items {
			e.ObjStart()
			e.FieldStart("productId")
			e.Str(it.ProductID)
			e.FieldStart("productName")
			e.Str(it.ProductName)
			e.FieldStart("originalPrice")
			jsonx.Decimal(e, it.OriginalPrice)
			e.FieldStart("bargainPrice")
			jsonx.Decimal(e, it.BargainPrice)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.FieldStart("totalOriginal")
		jsonx.Decimal(e, v.TotalOriginal)
		e.FieldStart("totalBargain")
		jsonx.Decimal(e, v.TotalBargain)
		e.ObjEnd()
	case Checkout:
		e.ObjStart()
		e.FieldStart("cartId")
		e.Str(v.CartID)
		e.FieldStart("customer")
		e.ObjStart()
		e.FieldStart("name")
		e.Str(v.Customer.Name)
		e.FieldStart("email")
		e.Str(v.Customer.Email)
		e.FieldStart("phone")
		e.Str(v.Customer.Phone)
		e.ObjEnd()
		e.FieldStart("items")
		e.ArrStart()
		for _, it := range v.Items {
			e.ObjStart()
			e.FieldStart("productId")
			e.Str(it.ProductID)
			e.FieldStart("productName")
			e.Str(it.ProductName)
			e.FieldStart("width")
			jsonx.Decimal(e, it.Width)
			e.FieldStart("height")
			jsonx.Decimal(e, it.Height)
			e.FieldStart("area")
			jsonx.Decimal(e, it.Area)
			e.FieldStart("unitPrice")
			jsonx.Decimal(e, it.UnitPrice)
			e.FieldStart("total")
			jsonx.Decimal(e, it.Total)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.FieldStart("subtotal")
		jsonx.Decimal(e, v.Subtotal)
		e.FieldStart("discountRate")
		jsonx.Decimal(e, v.DiscountRate)
		e.FieldStart("total")
		jsonx.Decimal(e, v.Total)
		e.ObjEnd()
	case Contact:
		e.ObjStart()
		for _, f := range []struct{ k, v string }{
			{"fullName", v.FullName},
			{"email", v.Email},
			{"phone", v.Phone},
			{"projectType", v.ProjectType},
			{"areaSize", v.AreaSize},
			{"location", v.Location},
			{"message", v.Message},
		} {
			e.FieldStart(f.k)
			e.Str(f.v)
		}
		e.ObjEnd()
	default:
		return errors.Errorf("unsupported payload %T", p)
	}
	return nil
}

// MarshalPayload encodes p to bytes.
func MarshalPayload(p Payload) ([]byte, error) {
	var e jx.Encoder
	if err := EncodePayload(&e, p); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

func encodeBroker(e *jx.Encoder, b Broker) {
	e.FieldStart("brokerId")
	e.Str(b.ID)
	e.FieldStart("brokerName")
	e.Str(b.Name)
	e.FieldStart("brokerEmail")
	e.Str(b.Email)
}

func encodeOrderFields(e *jx.Encoder, o Order) {
	encodeBroker(e, o.Broker)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("productName")
		e.Str(it.ProductName)
		e.FieldStart("quantity")
		jsonx.Decimal(e, it.Quantity)
		e.FieldStart("unitPrice")
		jsonx.Decimal(e, it.UnitPrice)
		e.FieldStart("total")
		jsonx.Decimal(e, it.Total)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	jsonx.Decimal(e, o.Total)
}
