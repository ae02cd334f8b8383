package draft

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xenking/turfshop/internal/domain/submission"
)

// Policy configures a List for one draft kind.
type Policy struct {
	Kind Kind
	// Fields lists the fields Update accepts.
	Fields []Field
	// NewItem returns the defaults for a freshly added row.
	NewItem func(id int) Item
	// Complete reports whether a line may be submitted.
	Complete func(Line) bool
	// Payload builds the submission for a validated, non-empty list.
	Payload func(b submission.Broker, lines []Line) submission.Payload
}

func (p Policy) accepts(f Field) bool {
	return slices.Contains(p.Fields, f)
}

// OrderPolicy drives broker orders: product × quantity (m²).
func OrderPolicy() Policy {
	return Policy{
		Kind:   KindOrder,
		Fields: []Field{FieldProduct, FieldQuantity},
		NewItem: func(id int) Item {
			return Item{ID: id, Quantity: decimal.NewFromInt(1)}
		},
		Complete: quantityComplete,
		Payload: func(b submission.Broker, lines []Line) submission.Payload {
			return orderPayload(b, lines)
		},
	}
}

// PreorderPolicy drives preorders. The expected date and notes of the
// first line are reported for the whole preorder.
func PreorderPolicy() Policy {
	return Policy{
		Kind:   KindPreorder,
		Fields: []Field{FieldProduct, FieldQuantity, FieldExpectedDate, FieldSpecialNotes},
		NewItem: func(id int) Item {
			return Item{ID: id, Quantity: decimal.NewFromInt(1)}
		},
		Complete: quantityComplete,
		Payload: func(b submission.Broker, lines []Line) submission.Payload {
			p := submission.Preorder{
				Order:        orderPayload(b, lines),
				ExpectedDate: "Not specified",
				SpecialNotes: "None",
			}
			if first := lines[0]; first.ExpectedDate != "" {
				p.ExpectedDate = first.ExpectedDate
			}
			if first := lines[0]; first.SpecialNotes != "" {
				p.SpecialNotes = first.SpecialNotes
			}
			return p
		},
	}
}

// InquiryPolicy drives price inquiries: a bargain price per product.
func InquiryPolicy() Policy {
	return Policy{
		Kind:   KindInquiry,
		Fields: []Field{FieldProduct, FieldBargainPrice},
		NewItem: func(id int) Item {
			return Item{ID: id}
		},
		Complete: func(l Line) bool {
			return l.Product != nil && l.BargainPrice.IsPositive()
		},
		Payload: func(b submission.Broker, lines []Line) submission.Payload {
			p := submission.Inquiry{
				Broker:        b,
				Items:         make([]submission.InquiryLine, len(lines)),
				TotalOriginal: decimal.Zero,
				TotalBargain:  decimal.Zero,
			}
			for i, l := range lines {
				p.Items[i] = submission.InquiryLine{
					ProductID:     l.ProductID,
					ProductName:   l.Product.Name,
					OriginalPrice: l.UnitPrice,
					BargainPrice:  l.BargainPrice,
				}
				p.TotalOriginal = p.TotalOriginal.Add(l.UnitPrice)
				p.TotalBargain = p.TotalBargain.Add(l.BargainPrice)
			}
			return p
		},
	}
}

// PolicyFor returns the built-in policy for kind.
func PolicyFor(kind Kind) (Policy, bool) {
	switch kind {
	case KindOrder:
		return OrderPolicy(), true
	case KindPreorder:
		return PreorderPolicy(), true
	case KindInquiry:
		return InquiryPolicy(), true
	}
	return Policy{}, false
}

func quantityComplete(l Line) bool {
	return l.Product != nil && l.Quantity.IsPositive()
}

func orderPayload(b submission.Broker, lines []Line) submission.Order {
	o := submission.Order{
		Broker: b,
		Items:  make([]submission.Line, len(lines)),
		Total:  decimal.Zero,
	}
	for i, l := range lines {
		o.Items[i] = submission.Line{
			ProductID:   l.ProductID,
			ProductName: l.Product.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Total:       l.Total,
		}
		o.Total = o.Total.Add(l.Total)
	}
	return o
}
