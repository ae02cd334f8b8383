package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/turfshop/internal/domain/cart"
)

const (
	listDiscountCodesSQL = `SELECT code, rate FROM discount_codes WHERE active = TRUE`

	upsertDiscountCodeSQL = `INSERT INTO discount_codes (code, rate, active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (code) DO UPDATE SET rate = EXCLUDED.rate, active = TRUE`
)

// DiscountCodeRepository stores the cart discount code table.
type DiscountCodeRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountCodeRepository returns a DiscountCodeRepository that uses the
// given pool.
func NewDiscountCodeRepository(pool *pgxpool.Pool) *DiscountCodeRepository {
	return &DiscountCodeRepository{pool: pool}
}

// Codes returns all active codes.
func (r *DiscountCodeRepository) Codes(ctx context.Context) (cart.Codes, error) {
	rows, err := r.pool.Query(ctx, listDiscountCodesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list discount codes")
	}

	codes := cart.Codes{}
	var (
		code string
		rate decimal.Decimal
	)
	_, err = pgx.ForEachRow(rows, []any{&code, &rate}, func() error {
		codes[code] = rate
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan discount codes")
	}
	return codes, nil
}

// UpsertBatch stores many codes in one round trip.
func (r *DiscountCodeRepository) UpsertBatch(ctx context.Context, codes cart.Codes) error {
	batch := &pgx.Batch{}
	for code, rate := range codes {
		batch.Queue(upsertDiscountCodeSQL, code, rate)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "upsert discount codes")
	}
	return nil
}
