// Package static serves the product catalog from a JSON document, either a
// local file or an HTTP(S) URL.
package static

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/turfshop/internal/domain/product"
)

// maxCatalogSize bounds how much of a remote document is read.
const maxCatalogSize = 4 << 20

// Option configures a Source.
type Option func(*Source)

// WithHTTPClient replaces the client used for URL locations.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) { s.client = c }
}

// WithTelemetry instruments remote fetches.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(s *Source) {
		s.client = &http.Client{
			Timeout: s.client.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithTracerProvider(tp),
				otelhttp.WithMeterProvider(mp),
			),
		}
	}
}

// Source reads the product array from location on every List call. Wrap
// it with product.Load to fetch once.
type Source struct {
	location string
	client   *http.Client
}

var _ product.Repository = (*Source)(nil)

// NewSource creates a Source for a file path or http(s) URL.
func NewSource(location string, opts ...Option) *Source {
	s := &Source{
		location: location,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Source) remote() bool {
	return strings.HasPrefix(s.location, "http://") || strings.HasPrefix(s.location, "https://")
}

// List fetches and decodes the catalog.
func (s *Source) List(ctx context.Context) ([]product.Product, error) {
	var (
		data []byte
		err  error
	)
	if s.remote() {
		data, err = s.fetch(ctx)
	} else {
		data, err = os.ReadFile(s.location)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read catalog %s", s.location)
	}
	return product.ParseList(data)
}

// GetByID fetches the catalog and returns the product with id.
func (s *Source) GetByID(ctx context.Context, id string) (*product.Product, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return product.NewCatalog(products).GetByID(ctx, id)
}

func (s *Source) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.location, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxCatalogSize))
}
