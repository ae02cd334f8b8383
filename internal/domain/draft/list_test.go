package draft

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/turfshop/internal/domain/product"
	"github.com/xenking/turfshop/internal/domain/submission"
)

// --- Mock implementations ---

type mockGateway struct {
	calls    int
	payloads []submission.Payload
	err      error
}

func (m *mockGateway) Send(_ context.Context, p submission.Payload) (*submission.Receipt, error) {
	m.calls++
	m.payloads = append(m.payloads, p)
	if m.err != nil {
		return nil, m.err
	}
	return &submission.Receipt{ID: "r1", Kind: p.Kind()}, nil
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testCatalog() *product.Catalog {
	return product.NewCatalog([]product.Product{
		{ID: "golf", Name: "Golf Pro 15mm", Price: d("1000")},
		{ID: "land", Name: "Landscape 30mm", Price: d("1450.50")},
	})
}

func newOrders() *List {
	return NewList(OrderPolicy(), testCatalog().Lookup, nil)
}

var broker = submission.Broker{ID: "b1", Name: "Broker User", Email: "broker@example.com"}

// --- Tests ---

func TestList_AddAssignsSequentialIDs(t *testing.T) {
	l := newOrders()

	a := l.Add()
	b := l.Add()

	assert.Equal(t, 1, a.ID)
	assert.Equal(t, 2, b.ID)
	assert.Equal(t, "empty", a.State())
	assert.True(t, d("1").Equal(a.Quantity), "orders default to quantity 1")
	assert.True(t, a.UnitPrice.IsZero())
	assert.Equal(t, 2, l.Count())
}

func TestList_UpdateProductRecomputesTotal(t *testing.T) {
	l := newOrders()
	it := l.Add()

	line, found, err := l.Update(it.ID, FieldQuantity, "2.5")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, line.Total.IsZero(), "no product selected yet")

	line, _, err = l.Update(it.ID, FieldProduct, "golf")
	require.NoError(t, err)
	assert.Equal(t, "selected", line.State())
	assert.True(t, d("1000").Equal(line.UnitPrice))
	assert.True(t, d("2500").Equal(line.Total))

	line, _, err = l.Update(it.ID, FieldProduct, "land")
	require.NoError(t, err)
	assert.True(t, d("3626.25").Equal(line.Total), "got %s", line.Total)

	line, _, err = l.Update(it.ID, FieldProduct, "discontinued")
	require.NoError(t, err)
	assert.Nil(t, line.Product)
	assert.True(t, line.UnitPrice.IsZero())
	assert.True(t, line.Total.IsZero())
}

func TestList_UpdateNonNumericQuantityIsZero(t *testing.T) {
	l := newOrders()
	it := l.Add()
	_, _, err := l.Update(it.ID, FieldProduct, "golf")
	require.NoError(t, err)

	line, _, err := l.Update(it.ID, FieldQuantity, "lots")
	require.NoError(t, err)
	assert.True(t, line.Quantity.IsZero())
	assert.True(t, line.Total.IsZero())
}

func TestList_UpdateUnknownIDIsNoop(t *testing.T) {
	l := newOrders()
	l.Add()

	calls := 0
	unsub := l.Subscribe(func(Snapshot) { calls++ })
	defer unsub()

	_, found, err := l.Update(99, FieldQuantity, "5")
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, d("1").Equal(l.Lines()[0].Quantity))

	l.Remove(99)
	assert.Zero(t, calls, "nothing changed")
}

func TestList_UpdateQuantityWithUnit(t *testing.T) {
	l := newOrders()
	it := l.Add()
	_, _, err := l.Update(it.ID, FieldProduct, "golf")
	require.NoError(t, err)

	line, _, err := l.Update(it.ID, FieldQuantity, "2.5m")
	require.NoError(t, err)
	assert.True(t, d("2.5").Equal(line.Quantity))
	assert.True(t, line.Total.Equal(line.UnitPrice.Mul(d("2.5"))))
}

func TestList_UpdateFieldNotOfKind(t *testing.T) {
	l := newOrders()
	it := l.Add()

	_, _, err := l.Update(it.ID, FieldBargainPrice, "10")

	var ufErr *UnknownFieldError
	require.ErrorAs(t, err, &ufErr)
	assert.Equal(t, KindOrder, ufErr.Kind)
	assert.Equal(t, FieldBargainPrice, ufErr.Field)
}

func TestList_RemoveUnknownIDIsNoop(t *testing.T) {
	l := newOrders()
	a := l.Add()
	l.Add()

	l.Remove(42)
	assert.Equal(t, 2, l.Count())

	l.Remove(a.ID)
	require.Equal(t, 1, l.Count())
	assert.Equal(t, 2, l.Lines()[0].ID)
}

func TestList_TotalMatchesSumOfLines(t *testing.T) {
	l := newOrders()
	ops := []struct {
		field Field
		value string
	}{
		{FieldProduct, "golf"},
		{FieldQuantity, "3"},
		{FieldProduct, "land"},
		{FieldQuantity, "0.5"},
	}

	a := l.Add()
	b := l.Add()
	for i, op := range ops {
		id := a.ID
		if i%2 == 1 {
			id = b.ID
		}
		_, _, err := l.Update(id, op.field, op.value)
		require.NoError(t, err)

		sum := decimal.Zero
		for _, line := range l.Lines() {
			assert.True(t, line.UnitPrice.Mul(line.Quantity).Equal(line.Total))
			sum = sum.Add(line.Total)
		}
		assert.True(t, sum.Equal(l.Total()), "step %d: want %s, got %s", i, sum, l.Total())
	}
}

func TestList_SubscribersSeeEveryChange(t *testing.T) {
	l := newOrders()

	var snaps []Snapshot
	unsub := l.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })

	it := l.Add()
	_, _, err := l.Update(it.ID, FieldProduct, "golf")
	require.NoError(t, err)
	l.Remove(it.ID)
	unsub()
	l.Add()

	require.Len(t, snaps, 3)
	assert.True(t, d("1000").Equal(snaps[1].Total))
	assert.Empty(t, snaps[2].Lines)
}

func TestList_SubmitEmpty(t *testing.T) {
	l := newOrders()
	gw := &mockGateway{}

	_, err := l.Submit(context.Background(), broker, gw)
	require.ErrorIs(t, err, ErrEmpty)
	assert.Zero(t, gw.calls)
}

func TestList_SubmitIncomplete(t *testing.T) {
	tests := []struct {
		name  string
		setup func(l *List, id int)
	}{
		{name: "no product", setup: func(*List, int) {}},
		{name: "zero quantity", setup: func(l *List, id int) {
			_, _, _ = l.Update(id, FieldProduct, "golf")
			_, _, _ = l.Update(id, FieldQuantity, "0")
		}},
		{name: "negative quantity", setup: func(l *List, id int) {
			_, _, _ = l.Update(id, FieldProduct, "golf")
			_, _, _ = l.Update(id, FieldQuantity, "-1")
		}},
		{name: "unknown product", setup: func(l *List, id int) {
			_, _, _ = l.Update(id, FieldProduct, "ghost")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newOrders()
			it := l.Add()
			tt.setup(l, it.ID)
			gw := &mockGateway{}

			_, err := l.Submit(context.Background(), broker, gw)

			var incErr *IncompleteItemError
			require.ErrorAs(t, err, &incErr)
			assert.Equal(t, it.ID, incErr.ItemID)
			assert.Zero(t, gw.calls)
			assert.Equal(t, 1, l.Count())
		})
	}
}

func TestList_SubmitSuccessClearsAndResetsIDs(t *testing.T) {
	l := newOrders()
	a := l.Add()
	b := l.Add()
	_, _, _ = l.Update(a.ID, FieldProduct, "golf")
	_, _, _ = l.Update(a.ID, FieldQuantity, "2")
	_, _, _ = l.Update(b.ID, FieldProduct, "land")
	gw := &mockGateway{}

	receipt, err := l.Submit(context.Background(), broker, gw)
	require.NoError(t, err)
	assert.Equal(t, "r1", receipt.ID)
	assert.Equal(t, 1, gw.calls)
	assert.Zero(t, l.Count())

	order, ok := gw.payloads[0].(submission.Order)
	require.True(t, ok)
	assert.Equal(t, "Broker User", order.Broker.Name)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Golf Pro 15mm", order.Items[0].ProductName)
	assert.True(t, d("3450.50").Equal(order.Total), "got %s", order.Total)

	assert.Equal(t, 1, l.Add().ID, "id counter restarts after submit")
}

func TestList_SubmitFailureKeepsList(t *testing.T) {
	l := newOrders()
	it := l.Add()
	_, _, _ = l.Update(it.ID, FieldProduct, "golf")
	before := l.Lines()
	gw := &mockGateway{err: errors.New("whatsapp unavailable")}

	_, err := l.Submit(context.Background(), broker, gw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submit order")
	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, before, l.Lines())
	assert.Equal(t, 2, l.Add().ID, "id counter untouched")
}

func TestList_SubmitThrottledIsDetectable(t *testing.T) {
	l := newOrders()
	it := l.Add()
	_, _, _ = l.Update(it.ID, FieldProduct, "golf")

	_, err := l.Submit(context.Background(), broker, &mockGateway{err: submission.ErrThrottled})
	require.ErrorIs(t, err, submission.ErrThrottled)
}

func TestPreorder_PayloadUsesFirstLine(t *testing.T) {
	l := NewList(PreorderPolicy(), testCatalog().Lookup, nil)
	a := l.Add()
	b := l.Add()
	_, _, _ = l.Update(a.ID, FieldProduct, "golf")
	_, _, _ = l.Update(a.ID, FieldExpectedDate, "2026-11-01")
	_, _, _ = l.Update(b.ID, FieldProduct, "land")
	_, _, _ = l.Update(b.ID, FieldExpectedDate, "2026-12-24")
	_, _, _ = l.Update(b.ID, FieldSpecialNotes, "deliver to site B")
	gw := &mockGateway{}

	_, err := l.Submit(context.Background(), broker, gw)
	require.NoError(t, err)

	pre, ok := gw.payloads[0].(submission.Preorder)
	require.True(t, ok)
	assert.Equal(t, "2026-11-01", pre.ExpectedDate)
	assert.Equal(t, "None", pre.SpecialNotes)
	assert.True(t, d("2450.50").Equal(pre.Total))
}

func TestInquiry_BargainPriceAndDifference(t *testing.T) {
	l := NewList(InquiryPolicy(), testCatalog().Lookup, nil)
	it := l.Add()
	_, _, _ = l.Update(it.ID, FieldProduct, "golf")

	line, _, err := l.Update(it.ID, FieldBargainPrice, "850")
	require.NoError(t, err)
	assert.True(t, d("-150").Equal(line.Difference))

	_, _, err = l.Update(it.ID, FieldQuantity, "3")
	var ufErr *UnknownFieldError
	require.ErrorAs(t, err, &ufErr)
}

func TestInquiry_SubmitRequiresBargainPrice(t *testing.T) {
	l := NewList(InquiryPolicy(), testCatalog().Lookup, nil)
	a := l.Add()
	_, _, _ = l.Update(a.ID, FieldProduct, "golf")
	gw := &mockGateway{}

	_, err := l.Submit(context.Background(), broker, gw)
	var incErr *IncompleteItemError
	require.ErrorAs(t, err, &incErr)

	_, _, _ = l.Update(a.ID, FieldBargainPrice, "900")
	b := l.Add()
	_, _, _ = l.Update(b.ID, FieldProduct, "land")
	_, _, _ = l.Update(b.ID, FieldBargainPrice, "1400")

	_, err = l.Submit(context.Background(), broker, gw)
	require.NoError(t, err)

	inq, ok := gw.payloads[0].(submission.Inquiry)
	require.True(t, ok)
	assert.True(t, d("2450.50").Equal(inq.TotalOriginal))
	assert.True(t, d("2300").Equal(inq.TotalBargain))
	assert.Zero(t, l.Count())
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"order":     KindOrder,
		"orders":    KindOrder,
		"Preorders": KindPreorder,
		"inquiry":   KindInquiry,
		"inquiries": KindInquiry,
	} {
		got, ok := ParseKind(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseKind("refund")
	assert.False(t, ok)
}

func TestWorkspace_ItemCountAggregatesLists(t *testing.T) {
	r := NewRegistry(testCatalog().Lookup, nil)
	w := r.Workspace("b1")

	w.Orders.Add()
	w.Orders.Add()
	w.Preorders.Add()
	w.Inquiries.Add()

	assert.Equal(t, 4, w.ItemCount())
	assert.Equal(t, 2, w.Counts()[KindOrder])
	assert.Same(t, w, r.Workspace("b1"))
	assert.Zero(t, r.Workspace("b2").ItemCount())

	l, ok := w.List(KindPreorder)
	require.True(t, ok)
	assert.Same(t, w.Preorders, l)
}
