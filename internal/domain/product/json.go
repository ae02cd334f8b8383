package product

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/turfshop/internal/jsonx"
)

// Encode writes p in the storefront JSON shape.
func (p Product) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	jsonx.Decimal(e, p.Price)
	e.FieldStart("thickness")
	e.Str(p.Thickness)
	e.FieldStart("useCases")
	jsonx.Strs(e, p.UseCases)
	e.FieldStart("features")
	jsonx.Strs(e, p.Features)
	e.FieldStart("image")
	e.Str(p.Image)
	e.ObjEnd()
}

// Decode reads p from the storefront JSON shape. Unknown fields are
// skipped; id, name and a non-negative price are required.
func (p *Product) Decode(d *jx.Decoder) error {
	*p = Product{}
	hasPrice := false
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = jsonx.ReadOptStr(d)
		case "name":
			p.Name, err = jsonx.ReadOptStr(d)
		case "price":
			p.Price, err = jsonx.ReadDecimal(d)
			hasPrice = true
		case "thickness":
			p.Thickness, err = jsonx.ReadOptStr(d)
		case "useCases":
			p.UseCases, err = jsonx.ReadStrs(d)
		case "features":
			p.Features, err = jsonx.ReadStrs(d)
		case "image":
			p.Image, err = jsonx.ReadOptStr(d)
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "%q", key)
	})
	if err != nil {
		return err
	}

	switch {
	case p.ID == "":
		return errors.New("product without id")
	case p.Name == "":
		return errors.Errorf("product %s: missing name", p.ID)
	case !hasPrice || p.Price.IsNegative():
		return errors.Errorf("product %s: missing or negative price", p.ID)
	}
	return nil
}

// DecodeList reads a JSON array of products.
func DecodeList(d *jx.Decoder) ([]Product, error) {
	var out []Product
	err := d.Arr(func(d *jx.Decoder) error {
		var p Product
		if err := p.Decode(d); err != nil {
			return errors.Wrapf(err, "product %d", len(out))
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParseList decodes a JSON array of products from data.
func ParseList(data []byte) ([]Product, error) {
	products, err := DecodeList(jx.DecodeBytes(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}
