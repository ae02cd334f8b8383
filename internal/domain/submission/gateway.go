package submission

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Throttled limits how often each sender may submit.
type Throttled struct {
	next  Gateway
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*throttleEntry
	now      func() time.Time
}

type throttleEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewThrottled wraps next with a per-sender token bucket allowing
// burst submissions and refilling at limit per second.
func NewThrottled(next Gateway, limit rate.Limit, burst int) *Throttled {
	return &Throttled{
		next:     next,
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*throttleEntry),
		now:      time.Now,
	}
}

// Send implements Gateway.
func (t *Throttled) Send(ctx context.Context, p Payload) (*Receipt, error) {
	if !t.allow(p.Sender()) {
		return nil, ErrThrottled
	}
	return t.next.Send(ctx, p)
}

func (t *Throttled) allow(sender string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	e, ok := t.limiters[sender]
	if !ok {
		e = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[sender] = e
	}
	e.seen = now
	return e.limiter.AllowN(now, 1)
}

// Prune forgets senders idle for longer than idle.
func (t *Throttled) Prune(idle time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for k, e := range t.limiters {
		if now.Sub(e.seen) > idle {
			delete(t.limiters, k)
		}
	}
}

// Archived stores every successful submission. Archive failures are
// logged and do not fail the submission: the hand-off already happened.
type Archived struct {
	next Gateway
	repo Repository
	lg   *zap.Logger
}

// NewArchived wraps next so that successful sends are written to repo.
func NewArchived(next Gateway, repo Repository, lg *zap.Logger) *Archived {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Archived{next: next, repo: repo, lg: lg}
}

// Send implements Gateway.
func (a *Archived) Send(ctx context.Context, p Payload) (*Receipt, error) {
	r, err := a.next.Send(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := a.repo.Create(ctx, &Record{Receipt: *r, Payload: p}); err != nil {
		a.lg.Warn("Archive submission failed",
			zap.String("submission_id", r.ID),
			zap.String("kind", string(r.Kind)),
			zap.Error(err),
		)
	}
	return r, nil
}

// Instrumented records a span and a counter for every submission.
type Instrumented struct {
	next    Gateway
	tracer  trace.Tracer
	counter metric.Int64Counter
}

// NewInstrumented wraps next with tracing and metrics.
func NewInstrumented(next Gateway, tp trace.TracerProvider, mp metric.MeterProvider) (*Instrumented, error) {
	counter, err := mp.Meter("turfshop/submission").Int64Counter("turfshop.submissions",
		metric.WithDescription("Submissions handed to the messaging gateway"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create submissions counter")
	}
	return &Instrumented{
		next:    next,
		tracer:  tp.Tracer("turfshop/submission"),
		counter: counter,
	}, nil
}

// Send implements Gateway.
func (i *Instrumented) Send(ctx context.Context, p Payload) (*Receipt, error) {
	kind := attribute.String("submission.kind", string(p.Kind()))
	ctx, span := i.tracer.Start(ctx, "submission.Send", trace.WithAttributes(kind))
	defer span.End()

	r, err := i.next.Send(ctx, p)
	outcome := "ok"
	switch {
	case errors.Is(err, ErrThrottled):
		outcome = "throttled"
	case err != nil:
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	default:
		span.SetAttributes(attribute.String("submission.id", r.ID))
	}
	i.counter.Add(ctx, 1, metric.WithAttributes(kind, attribute.String("outcome", outcome)))
	return r, err
}
