// Package submission defines what gets handed to the messaging gateway
// when a broker draft, a storefront cart or a contact form is submitted.
package submission

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind identifies the payload shape.
type Kind string

const (
	KindOrder    Kind = "order"
	KindPreorder Kind = "preorder"
	KindInquiry  Kind = "inquiry"
	KindCheckout Kind = "checkout"
	KindContact  Kind = "contact"
)

var (
	// ErrDelivery is returned when the gateway could not hand off a payload.
	ErrDelivery = errors.New("submission delivery failed")
	// ErrThrottled is returned when a sender submits faster than allowed.
	ErrThrottled = errors.New("too many submissions, try again shortly")
	// ErrMissingFields is returned by Contact.Validate when required
	// fields are blank.
	ErrMissingFields = errors.New("please fill in all required fields")
	// ErrInvalidEmail is returned by Contact.Validate for malformed e-mails.
	ErrInvalidEmail = errors.New("please enter a valid email address")
)

// Payload is a finalized submission.
type Payload interface {
	Kind() Kind
	// Sender returns a stable key for the submitting party.
	Sender() string
}

// Broker identifies an authenticated broker.
type Broker struct {
	ID    string
	Name  string
	Email string
}

// Customer identifies a storefront buyer. All fields are optional.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// Line is an order or preorder row.
type Line struct {
	ProductID   string
	ProductName string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// Order is a broker order.
type Order struct {
	Broker Broker
	Items  []Line
	Total  decimal.Decimal
}

func (Order) Kind() Kind         { return KindOrder }
func (o Order) Sender() string   { return o.Broker.ID }
func (Preorder) Kind() Kind      { return KindPreorder }
func (Inquiry) Kind() Kind       { return KindInquiry }
func (i Inquiry) Sender() string { return i.Broker.ID }
func (Checkout) Kind() Kind      { return KindCheckout }
func (Contact) Kind() Kind       { return KindContact }

// Preorder is a broker order for stock that is not yet available.
// ExpectedDate and SpecialNotes apply to the whole preorder.
type Preorder struct {
	Order
	ExpectedDate string
	SpecialNotes string
}

// InquiryLine is a counter-offer on one product.
type InquiryLine struct {
	ProductID     string
	ProductName   string
	OriginalPrice decimal.Decimal
	BargainPrice  decimal.Decimal
}

// Inquiry is a broker price negotiation request.
type Inquiry struct {
	Broker        Broker
	Items         []InquiryLine
	TotalOriginal decimal.Decimal
	TotalBargain  decimal.Decimal
}

// CheckoutLine is a storefront cart row.
type CheckoutLine struct {
	ProductID   string
	ProductName string
	Width       decimal.Decimal
	Height      decimal.Decimal
	Area        decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// Checkout is a storefront cart submission.
type Checkout struct {
	CartID       string
	Customer     Customer
	Items        []CheckoutLine
	Subtotal     decimal.Decimal
	DiscountRate decimal.Decimal
	Total        decimal.Decimal
}

// Sender keys checkouts by cart so anonymous buyers are throttled
// independently.
func (c Checkout) Sender() string { return "cart:" + c.CartID }

// Contact is a contact form submission.
type Contact struct {
	FullName    string
	Email       string
	Phone       string
	ProjectType string
	AreaSize    string
	Location    string
	Message     string
}

// Sender keys contact forms by e-mail address.
func (c Contact) Sender() string { return "contact:" + strings.ToLower(c.Email) }

// Validate checks the required contact form fields.
func (c Contact) Validate() error {
	if strings.TrimSpace(c.FullName) == "" || strings.TrimSpace(c.Email) == "" {
		return ErrMissingFields
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// Receipt describes a successfully handed-off submission.
type Receipt struct {
	ID          string
	Kind        Kind
	Link        string
	Message     string
	SubmittedAt time.Time
}

// Gateway hands a payload to the external messaging collaborator.
type Gateway interface {
	Send(ctx context.Context, p Payload) (*Receipt, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, p Payload) (*Receipt, error)

// Send implements Gateway.
func (f GatewayFunc) Send(ctx context.Context, p Payload) (*Receipt, error) {
	return f(ctx, p)
}

// Record is an archived submission.
type Record struct {
	Receipt Receipt
	Payload Payload
}

// Repository archives submissions.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
}
