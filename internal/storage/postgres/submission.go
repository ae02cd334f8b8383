package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/turfshop/internal/domain/submission"
)

const createSubmissionSQL = `INSERT INTO submissions (id, kind, sender, payload, link, submitted_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

var _ submission.Repository = (*SubmissionRepository)(nil)

// SubmissionRepository archives delivered submissions in PostgreSQL.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository returns a SubmissionRepository that uses the
// given pool.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Create persists rec. The payload is stored as JSONB.
func (r *SubmissionRepository) Create(ctx context.Context, rec *submission.Record) error {
	payload, err := submission.MarshalPayload(rec.Payload)
	if err != nil {
		return errors.Wrap(err, "encode payload")
	}

	_, err = r.pool.Exec(ctx, createSubmissionSQL,
		rec.Receipt.ID,
		string(rec.Receipt.Kind),
		rec.Payload.Sender(),
		payload,
		rec.Receipt.Link,
		rec.Receipt.SubmittedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "create submission %q", rec.Receipt.ID)
	}
	return nil
}
