package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/turfshop/internal/domain/pricing"
	"github.com/xenking/turfshop/internal/domain/product"
	"github.com/xenking/turfshop/internal/domain/submission"
)

// Store persists cart snapshots. It is a cache: losing an entry loses
// the cart and nothing else.
type Store interface {
	// Load returns ErrNotFound when no snapshot exists for id.
	Load(ctx context.Context, id string) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
	Delete(ctx context.Context, id string) error
}

// Service manages cart sessions on top of a Store. Changes to one cart
// are serialized; a Store that also implements Locker extends that to
// every process sharing it.
type Service struct {
	store  Store
	lookup product.Lookup
	codes  Codes
	locks  keyedMutex
	lg     *zap.Logger
}

// NewService creates a cart Service.
func NewService(store Store, lookup product.Lookup, codes Codes, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	if codes == nil {
		codes = DefaultCodes()
	}
	return &Service{
		store:  store,
		lookup: lookup,
		codes:  codes,
		lg:     lg,
	}
}

// Create starts and persists an empty cart.
func (s *Service) Create(ctx context.Context) (*Cart, error) {
	c := s.newCart(uuid.New().String())
	if err := s.store.Save(ctx, c.Snapshot()); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Get restores the cart with id. A snapshot that cannot be decoded is
// logged and treated as an empty cart.
func (s *Service) Get(ctx context.Context, id string) (*Cart, error) {
	snap, err := s.store.Load(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, ErrNotFound
	case errors.As(err, new(*CorruptError)):
		s.lg.Warn("Discarding unreadable cart",
			zap.String("cart_id", id),
			zap.Error(err),
		)
		return s.newCart(id), nil
	case err != nil:
		return nil, errors.Wrap(err, "load cart")
	}

	c := s.newCart(id)
	c.restore(snap)
	return c, nil
}

// lock holds the cart with id for the duration of a load and save.
func (s *Service) lock(ctx context.Context, id string) (func(), error) {
	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "lock cart")
	}
	locker, ok := s.store.(Locker)
	if !ok {
		return unlock, nil
	}
	unlockStore, err := locker.Lock(ctx, id)
	if err != nil {
		unlock()
		return nil, errors.Wrap(err, "lock cart")
	}
	return func() {
		unlockStore()
		unlock()
	}, nil
}

// Update loads the cart, applies fn, and saves the cart when fn changed
// it. The save happens even if fn returns an error after a change. No
// other Update or Delete of the same cart runs in between.
func (s *Service) Update(ctx context.Context, id string, fn func(c *Cart) error) (*Cart, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false
	unsubscribe := c.Subscribe(func(State) { changed = true })
	before, hadPending := c.Pending()
	fnErr := fn(c)
	unsubscribe()

	// A new calculation is not a cart mutation but must survive the request.
	if after, ok := c.Pending(); ok != hadPending || (ok && !samePending(before, after)) {
		changed = true
	}
	if changed {
		if err := s.store.Save(ctx, c.Snapshot()); err != nil {
			return nil, errors.Wrap(err, "save cart")
		}
	}
	if fnErr != nil {
		return c, fnErr
	}
	return c, nil
}

// Delete removes the cart. Deleting an unknown cart is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return errors.Wrap(err, "delete cart")
	}
	return nil
}

// Checkout sends the cart to gw as a checkout submission and clears the
// cart on success. On failure the cart is unchanged.
func (s *Service) Checkout(ctx context.Context, id string, customer submission.Customer, gw submission.Gateway) (*submission.Receipt, error) {
	var receipt *submission.Receipt
	_, err := s.Update(ctx, id, func(c *Cart) error {
		st := c.State()
		if len(st.Items) == 0 {
			return ErrEmpty
		}
		for _, l := range st.Items {
			if l.Product == nil {
				return &UnavailableProductError{ItemID: l.ID, ProductID: l.ProductID}
			}
		}

		r, err := gw.Send(ctx, checkoutPayload(c.ID(), customer, st))
		if err != nil {
			return errors.Wrap(err, "submit checkout")
		}
		receipt = r
		c.Clear()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func samePending(a, b pricing.Pending) bool {
	return a.ProductID == b.ProductID &&
		a.Quote.Width.Equal(b.Quote.Width) &&
		a.Quote.Height.Equal(b.Quote.Height) &&
		a.Quote.Total.Equal(b.Quote.Total)
}

func (s *Service) newCart(id string) *Cart {
	return New(id, s.lookup, s.codes, s.lg.With(zap.String("cart_id", id)))
}

func checkoutPayload(id string, customer submission.Customer, st State) submission.Checkout {
	p := submission.Checkout{
		CartID:       id,
		Customer:     customer,
		Items:        make([]submission.CheckoutLine, len(st.Items)),
		Subtotal:     st.Subtotal,
		DiscountRate: st.Discount,
		Total:        st.Total,
	}
	for i, l := range st.Items {
		p.Items[i] = submission.CheckoutLine{
			ProductID:   l.ProductID,
			ProductName: l.Product.Name,
			Width:       l.Width,
			Height:      l.Height,
			Area:        l.Area,
			UnitPrice:   l.UnitPrice,
			Total:       l.Total,
		}
	}
	return p
}

// CorruptError wraps a persisted snapshot that could not be decoded.
type CorruptError struct {
	ID  string
	Err error
}

func (e *CorruptError) Error() string {
	return "cart " + e.ID + " is corrupt: " + e.Err.Error()
}

func (e *CorruptError) Unwrap() error { return e.Err }

// UnavailableProductError indicates a cart row whose product is no
// longer in the catalog.
type UnavailableProductError struct {
	ItemID    string
	ProductID string
}

func (e *UnavailableProductError) Error() string {
	return "product " + e.ProductID + " is no longer available"
}
