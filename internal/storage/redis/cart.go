// Package redis stores cart sessions in Redis.
package redis

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/turfshop/internal/domain/cart"
)

// NewClient connects to url, which is either a redis:// URL or a plain
// host:port address.
func NewClient(url string) (*redis.Client, error) {
	if !strings.Contains(url, "://") {
		return redis.NewClient(&redis.Options{Addr: url}), nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	return redis.NewClient(opts), nil
}

// Client is the subset of the go-redis API used by CartStore.
type Client interface {
	GetEx(ctx context.Context, key string, expiration time.Duration) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

const (
	lockTTL   = 10 * time.Second
	lockRetry = 25 * time.Millisecond
)

// unlockScript deletes the lock only while it still holds the caller's token.
const unlockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`

var (
	_ cart.Store  = (*CartStore)(nil)
	_ cart.Locker = (*CartStore)(nil)
)

// CartStore keeps cart snapshots as JSON strings that expire after ttl
// without a Load or Save.
type CartStore struct {
	client Client
	ttl    time.Duration
	prefix string
}

// NewCartStore creates a CartStore. A zero ttl keeps carts forever.
func NewCartStore(client Client, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl, prefix: "turfshop:cart:"}
}

func (s *CartStore) key(id string) string {
	return s.prefix + id
}

// Load implements cart.Store. A hit extends the expiry.
func (s *CartStore) Load(ctx context.Context, id string) (cart.Snapshot, error) {
	data, err := s.client.GetEx(ctx, s.key(id), s.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return cart.Snapshot{}, cart.ErrNotFound
		}
		return cart.Snapshot{}, errors.Wrapf(err, "get cart %q", id)
	}

	snap, err := cart.UnmarshalSnapshot(data)
	if err != nil {
		return cart.Snapshot{}, &cart.CorruptError{ID: id, Err: err}
	}
	if snap.ID != id {
		return cart.Snapshot{}, &cart.CorruptError{ID: id, Err: errors.Errorf("stored id %q", snap.ID)}
	}
	return snap, nil
}

// Save implements cart.Store. Every save refreshes the expiry.
func (s *CartStore) Save(ctx context.Context, snap cart.Snapshot) error {
	if err := s.client.Set(ctx, s.key(snap.ID), cart.MarshalSnapshot(snap), s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set cart %q", snap.ID)
	}
	return nil
}

// Delete implements cart.Store.
func (s *CartStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return errors.Wrapf(err, "delete cart %q", id)
	}
	if n == 0 {
		return cart.ErrNotFound
	}
	return nil
}

// Lock implements cart.Locker with a SET NX key per cart. A lock whose
// owner never releases it expires after lockTTL.
func (s *CartStore) Lock(ctx context.Context, id string) (func(), error) {
	key := s.key(id) + ":lock"
	token := uuid.NewString()
	for {
		ok, err := s.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "lock cart %q", id)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetry):
		}
	}

	return func() {
		// Release even when the request context is already canceled.
		_ = s.client.Eval(context.WithoutCancel(ctx), unlockScript, []string{key}, token).Err()
	}, nil
}
