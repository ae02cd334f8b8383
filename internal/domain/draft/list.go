package draft

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/turfshop/internal/domain/pricing"
	"github.com/xenking/turfshop/internal/domain/product"
	"github.com/xenking/turfshop/internal/domain/submission"
	"github.com/xenking/turfshop/internal/notify"
)

// Snapshot is published to subscribers after every change.
type Snapshot struct {
	Kind  Kind
	Lines []Line
	Total decimal.Decimal
}

// List is an ordered, editable collection of draft items. It is safe for
// concurrent use; mutations are serialized.
type List struct {
	policy Policy
	lookup product.Lookup
	hub    *notify.Hub[Snapshot]

	mu     sync.Mutex
	items  []Item
	nextID int
}

// NewList creates an empty list governed by policy. lookup resolves
// product ids; a nil lookup resolves nothing.
func NewList(policy Policy, lookup product.Lookup, lg *zap.Logger) *List {
	return &List{
		policy: policy,
		lookup: lookup,
		hub:    notify.NewHub[Snapshot](lg),
		nextID: 1,
	}
}

// Kind returns the list's kind.
func (l *List) Kind() Kind {
	return l.policy.Kind
}

// Subscribe registers fn for change notifications.
func (l *List) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return l.hub.Subscribe(fn)
}

// Add appends a new item with default fields and returns it.
func (l *List) Add() Line {
	l.mu.Lock()
	it := l.policy.NewItem(l.nextID)
	l.nextID++
	l.items = append(l.items, it)
	line := price(it, l.lookup)
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.hub.Publish(snap)
	return line
}

// Remove deletes the item with the given id. Unknown ids are ignored.
func (l *List) Remove(id int) {
	l.mu.Lock()
	n := len(l.items)
	l.items = removeItem(l.items, id)
	if len(l.items) == n {
		l.mu.Unlock()
		return
	}
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.hub.Publish(snap)
}

func removeItem(items []Item, id int) []Item {
	out := items[:0]
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

// Update sets field on the item with the given id. Numeric input keeps
// its leading number, or zero when it has none. Unknown ids are ignored
// without notifying subscribers; fields the
// kind does not edit return *UnknownFieldError without changing state.
func (l *List) Update(id int, field Field, value string) (Line, bool, error) {
	if !l.policy.accepts(field) {
		return Line{}, false, &UnknownFieldError{Kind: l.policy.Kind, Field: field}
	}

	l.mu.Lock()
	idx := -1
	for i := range l.items {
		if l.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		return Line{}, false, nil
	}

	it := &l.items[idx]
	switch field {
	case FieldProduct:
		it.ProductID = value
	case FieldQuantity:
		it.Quantity = pricing.ParseAmount(value)
	case FieldExpectedDate:
		it.ExpectedDate = value
	case FieldSpecialNotes:
		it.SpecialNotes = value
	case FieldBargainPrice:
		it.BargainPrice = pricing.ParseAmount(value)
	}
	line := price(*it, l.lookup)
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.hub.Publish(snap)
	return line, true, nil
}

// Lines returns the priced items in insertion order.
func (l *List) Lines() []Line {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.linesLocked()
}

// Total returns the sum of line totals.
func (l *List) Total() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sumTotals(l.linesLocked())
}

// Count returns the number of items.
func (l *List) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Submit validates the list, hands the payload to gw and clears the list
// on success. On any failure the list is left as it was.
func (l *List) Submit(ctx context.Context, b submission.Broker, gw submission.Gateway) (*submission.Receipt, error) {
	receipt, snap, err := l.submit(ctx, b, gw)
	if err != nil {
		return nil, err
	}
	l.hub.Publish(snap)
	return receipt, nil
}

// submit holds the lock across the gateway call so that no edit can land
// between validation and clearing.
func (l *List) submit(ctx context.Context, b submission.Broker, gw submission.Gateway) (*submission.Receipt, Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lines := l.linesLocked()
	if len(lines) == 0 {
		return nil, Snapshot{}, ErrEmpty
	}
	for _, line := range lines {
		if !l.policy.Complete(line) {
			return nil, Snapshot{}, &IncompleteItemError{Kind: l.policy.Kind, ItemID: line.ID}
		}
	}

	receipt, err := gw.Send(ctx, l.policy.Payload(b, lines))
	if err != nil {
		return nil, Snapshot{}, errors.Wrapf(err, "submit %s", l.policy.Kind)
	}

	l.items = nil
	l.nextID = 1
	return receipt, l.snapshotLocked(), nil
}

func (l *List) linesLocked() []Line {
	lines := make([]Line, len(l.items))
	for i, it := range l.items {
		lines[i] = price(it, l.lookup)
	}
	return lines
}

func (l *List) snapshotLocked() Snapshot {
	lines := l.linesLocked()
	return Snapshot{Kind: l.policy.Kind, Lines: lines, Total: sumTotals(lines)}
}

func sumTotals(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Total)
	}
	return sum
}
