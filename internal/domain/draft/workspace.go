package draft

import (
	"sync"

	"go.uber.org/zap"

	"github.com/xenking/turfshop/internal/domain/product"
)

// Workspace holds one broker's three independent draft lists.
type Workspace struct {
	Orders    *List
	Preorders *List
	Inquiries *List
}

// NewWorkspace creates empty order, preorder and inquiry lists.
func NewWorkspace(lookup product.Lookup, lg *zap.Logger) *Workspace {
	return &Workspace{
		Orders:    NewList(OrderPolicy(), lookup, lg),
		Preorders: NewList(PreorderPolicy(), lookup, lg),
		Inquiries: NewList(InquiryPolicy(), lookup, lg),
	}
}

// List returns the list for kind.
func (w *Workspace) List(kind Kind) (*List, bool) {
	switch kind {
	case KindOrder:
		return w.Orders, true
	case KindPreorder:
		return w.Preorders, true
	case KindInquiry:
		return w.Inquiries, true
	}
	return nil, false
}

// Counts returns the item count per kind.
func (w *Workspace) Counts() map[Kind]int {
	return map[Kind]int{
		KindOrder:    w.Orders.Count(),
		KindPreorder: w.Preorders.Count(),
		KindInquiry:  w.Inquiries.Count(),
	}
}

// ItemCount sums the three lists; it backs the dashboard cart badge.
func (w *Workspace) ItemCount() int {
	return w.Orders.Count() + w.Preorders.Count() + w.Inquiries.Count()
}

// Registry keeps a workspace per broker for the life of the process.
type Registry struct {
	lookup product.Lookup
	lg     *zap.Logger

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewRegistry creates an empty registry.
func NewRegistry(lookup product.Lookup, lg *zap.Logger) *Registry {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Registry{
		lookup:     lookup,
		lg:         lg,
		workspaces: make(map[string]*Workspace),
	}
}

// Workspace returns the broker's workspace, creating it on first use.
func (r *Registry) Workspace(brokerID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.workspaces[brokerID]
	if !ok {
		w = NewWorkspace(r.lookup, r.lg.With(zap.String("broker_id", brokerID)))
		r.workspaces[brokerID] = w
	}
	return w
}
