// Package handler exposes the storefront, broker and contact operations
// over HTTP.
package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/xenking/turfshop/internal/domain/auth"
	"github.com/xenking/turfshop/internal/domain/cart"
	"github.com/xenking/turfshop/internal/domain/draft"
	"github.com/xenking/turfshop/internal/domain/product"
	"github.com/xenking/turfshop/internal/domain/promotion"
	"github.com/xenking/turfshop/internal/domain/submission"
	"github.com/xenking/turfshop/pkg/httpmiddleware"
)

const maxBodyBytes = 1 << 20

// APIKeyHeader carries the broker API key.
const APIKeyHeader = "api_key"

// Authenticator resolves an API key to a broker.
type Authenticator interface {
	Authenticate(ctx context.Context, key, scope string) (*auth.Broker, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative product image paths.
	ImageBaseURL string
	// CatalogErr is the error of the startup catalog load, if any. While
	// set, product listings carry the catalogUnavailable flag.
	CatalogErr error
}

// Handler serves the HTTP API.
type Handler struct {
	catalog    *product.Catalog
	carts      *cart.Service
	promotions *promotion.Selector
	drafts     *draft.Registry
	gateway    submission.Gateway
	auth       Authenticator

	imageBaseURL string
	catalogErr   error
}

// New creates a Handler.
func New(
	cfg Config,
	catalog *product.Catalog,
	carts *cart.Service,
	promotions *promotion.Selector,
	drafts *draft.Registry,
	gateway submission.Gateway,
	authenticator Authenticator,
) *Handler {
	return &Handler{
		catalog:      catalog,
		carts:        carts,
		promotions:   promotions,
		drafts:       drafts,
		gateway:      gateway,
		auth:         authenticator,
		imageBaseURL: strings.TrimSuffix(cfg.ImageBaseURL, "/"),
		catalogErr:   cfg.CatalogErr,
	}
}

// Register adds the API routes to router.
func (h *Handler) Register(router *httprouter.Router) {
	router.GET("/api/products", h.listProducts)
	router.GET("/api/products/:productID", h.getProduct)
	router.POST("/api/quote", h.quote)
	router.POST("/api/contact", h.contact)

	router.POST("/api/carts", h.createCart)
	router.GET("/api/carts/:cartID", h.getCart)
	router.DELETE("/api/carts/:cartID", h.deleteCart)
	router.POST("/api/carts/:cartID/calculate", h.calculate)
	router.POST("/api/carts/:cartID/items", h.addCartItem)
	router.DELETE("/api/carts/:cartID/items/:itemID", h.removeCartItem)
	router.POST("/api/carts/:cartID/discount", h.applyDiscount)
	router.GET("/api/carts/:cartID/promotion", h.bestPromotion)
	router.POST("/api/carts/:cartID/promotion/:promotionID", h.applyPromotion)
	router.POST("/api/carts/:cartID/checkout", h.checkout)

	router.GET("/api/broker/drafts", h.broker(h.draftCounts))
	router.GET("/api/broker/drafts/:kind", h.broker(h.getDraft))
	router.POST("/api/broker/drafts/:kind/items", h.broker(h.addDraftItem))
	router.PATCH("/api/broker/drafts/:kind/items/:itemID", h.broker(h.updateDraftItem))
	router.DELETE("/api/broker/drafts/:kind/items/:itemID", h.broker(h.removeDraftItem))
	router.POST("/api/broker/drafts/:kind/submit", h.broker(h.submitDraft))

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpmiddleware.WriteError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpmiddleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// badRequestError marks malformed input.
type badRequestError struct {
	msg string
	err error
}

func (e *badRequestError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &badRequestError{msg: msg, err: err}
}

var (
	errCartItemNotFound  = errors.New("cart item not found")
	errDraftItemNotFound = errors.New("draft item not found")
	errUnknownKind       = errors.New("unknown draft kind")
	errNoPromotion       = errors.New("no promotion available")
)

// status maps err to an HTTP status and the message shown to the client.
func status(err error) (int, string) {
	var (
		bad         *badRequestError
		field       *draft.UnknownFieldError
		incomplete  *draft.IncompleteItemError
		unavailable *cart.UnavailableProductError
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, bad.Error()
	case errors.As(err, &field):
		return http.StatusBadRequest, field.Error()
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, "product not found"
	case errors.Is(err, cart.ErrNotFound):
		return http.StatusNotFound, "cart not found"
	case errors.Is(err, errCartItemNotFound), errors.Is(err, errDraftItemNotFound),
		errors.Is(err, errUnknownKind), errors.Is(err, errNoPromotion):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, cart.ErrNothingCalculated):
		return http.StatusConflict, cart.ErrNothingCalculated.Error()
	case errors.As(err, &incomplete):
		return http.StatusUnprocessableEntity, incomplete.Error()
	case errors.As(err, &unavailable):
		return http.StatusUnprocessableEntity, unavailable.Error()
	case errors.Is(err, draft.ErrEmpty):
		return http.StatusUnprocessableEntity, draft.ErrEmpty.Error()
	case errors.Is(err, cart.ErrEmpty):
		return http.StatusUnprocessableEntity, cart.ErrEmpty.Error()
	case errors.Is(err, submission.ErrMissingFields):
		return http.StatusUnprocessableEntity, submission.ErrMissingFields.Error()
	case errors.Is(err, submission.ErrInvalidEmail):
		return http.StatusUnprocessableEntity, submission.ErrInvalidEmail.Error()
	case errors.Is(err, submission.ErrThrottled):
		return http.StatusTooManyRequests, submission.ErrThrottled.Error()
	case errors.Is(err, submission.ErrDelivery):
		return http.StatusBadGateway, "failed to send, please try again"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := status(err)
	lg := zctx.From(r.Context())
	if code >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.Error(err))
	} else {
		lg.Debug("Request rejected", zap.Int("status", code), zap.Error(err))
	}
	httpmiddleware.WriteError(w, code, msg)
}

func respond(w http.ResponseWriter, code int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// readBody decodes a JSON object from the request body. An empty body is
// treated as an empty object.
func readBody(w http.ResponseWriter, r *http.Request, field func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("read body", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := jx.DecodeBytes(data).Obj(field); err != nil {
		return badRequest("invalid request body", err)
	}
	return nil
}
