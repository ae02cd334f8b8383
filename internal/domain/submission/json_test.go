package submission

import (
	"testing"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type strangePayload struct{}

func (strangePayload) Kind() Kind     { return "strange" }
func (strangePayload) Sender() string { return "" }

func TestMarshalPayload(t *testing.T) {
	broker := Broker{ID: "b1", Name: "Amina", Email: "amina@example.com"}
	order := Order{
		Broker: broker,
		Items: []Line{{
			ProductID: "p1", ProductName: "Premium",
			Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(1000), Total: decimal.NewFromInt(2000),
		}},
		Total: decimal.NewFromInt(2000),
	}

	tests := []struct {
		name    string
		payload Payload
		fields  []string
	}{
		{name: "order", payload: order, fields: []string{"brokerName", "items", "total"}},
		{
			name:    "preorder",
			payload: Preorder{Order: order, ExpectedDate: "2026-05-01", SpecialNotes: "None"},
			fields:  []string{"brokerEmail", "expectedDate", "specialNotes"},
		},
		{
			name: "inquiry",
			payload: Inquiry{Broker: broker, Items: []InquiryLine{{ProductID: "p1"}},
				TotalOriginal: decimal.NewFromInt(1000), TotalBargain: decimal.NewFromInt(900)},
			fields: []string{"totalOriginal", "totalBargain"},
		},
		{
			name:    "checkout",
			payload: Checkout{CartID: "c1", Subtotal: decimal.NewFromInt(10), DiscountRate: decimal.Zero, Total: decimal.NewFromInt(10)},
			fields:  []string{"cartId", "customer", "discountRate"},
		},
		{
			name:    "contact",
			payload: Contact{FullName: "Jane", Email: "jane@example.com"},
			fields:  []string{"fullName", "projectType", "message"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalPayload(tt.payload)
			require.NoError(t, err)
			require.NoError(t, jx.DecodeBytes(data).Validate(), string(data))

			seen := map[string]bool{}
			require.NoError(t, jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
				seen[key] = true
				return d.Skip()
			}))
			for _, f := range tt.fields {
				assert.True(t, seen[f], "missing %q in %s", f, data)
			}
		})
	}
}

func TestMarshalPayload_Unsupported(t *testing.T) {
	_, err := MarshalPayload(strangePayload{})
	require.Error(t, err)
}
