// Package whatsapp renders submissions as WhatsApp messages and builds
// the click-to-chat links that deliver them.
package whatsapp

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/xenking/turfshop/internal/domain/submission"
)

// Fallbacks used when a broker record has no name or e-mail.
const (
	DefaultBrokerName  = "Broker User"
	DefaultBrokerEmail = "broker@eastleighturf.com"
)

// ErrUnsupported is returned for payload types without a template.
var ErrUnsupported = errors.New("unsupported submission type")

// Renderer formats payloads into message text.
type Renderer struct {
	Company  string
	Currency string
	Location *time.Location

	p *message.Printer
}

// NewRenderer creates a Renderer formatting amounts for the Kenyan
// English locale.
func NewRenderer(company, currency string, loc *time.Location) *Renderer {
	if currency == "" {
		currency = "KES"
	}
	if loc == nil {
		loc = time.FixedZone("EAT", 3*60*60)
	}
	return &Renderer{
		Company:  company,
		Currency: currency,
		Location: loc,
		p:        message.NewPrinter(language.MustParse("en-KE")),
	}
}

// Render returns the message for p, stamped with at.
func (r *Renderer) Render(p submission.Payload, at time.Time) (string, error) {
	var b strings.Builder
	switch v := p.(type) {
	case submission.Order:
		r.order(&b, "Order", v, nil)
	case submission.Preorder:
		r.order(&b, "Preorder", v.Order, &v)
	case submission.Inquiry:
		r.inquiry(&b, v)
	case submission.Checkout:
		r.checkout(&b, v)
	case submission.Contact:
		r.contact(&b, v)
	default:
		return "", errors.Wrapf(ErrUnsupported, "%T", p)
	}
	r.p.Fprintf(&b, "\n\n*Submitted:* %s", at.In(r.Location).Format("02/01/2006, 15:04:05"))
	return b.String(), nil
}

func (r *Renderer) money(v decimal.Decimal) string {
	return r.Currency + " " + r.p.Sprint(number.Decimal(v.InexactFloat64(), number.MaxFractionDigits(2)))
}

func (r *Renderer) num(v decimal.Decimal) string {
	return r.p.Sprint(number.Decimal(v.InexactFloat64(), number.MaxFractionDigits(3)))
}

func (r *Renderer) broker(b *strings.Builder, br submission.Broker) {
	name, email := br.Name, br.Email
	if name == "" {
		name = DefaultBrokerName
	}
	if email == "" {
		email = DefaultBrokerEmail
	}
	r.p.Fprintf(b, "*Broker Details:*\n• Name: %s\n• Email: %s\n\n", name, email)
}

func (r *Renderer) order(b *strings.Builder, title string, o submission.Order, pre *submission.Preorder) {
	r.p.Fprintf(b, "*New %s Submission - %s*\n\n", title, r.Company)
	r.broker(b, o.Broker)

	priceLabel := "Price"
	if pre != nil {
		priceLabel = "Unit Price"
	}
	r.p.Fprintf(b, "*%s Items:*\n", title)
	for _, it := range o.Items {
		r.p.Fprintf(b, "• %s - Qty: %s - %s: %s - Total: %s\n",
			it.ProductName, r.num(it.Quantity), priceLabel, r.money(it.UnitPrice), r.money(it.Total))
	}

	if pre != nil {
		r.p.Fprintf(b, "\n*Preorder Details:*\n• Expected Date: %s\n• Special Notes: %s\n",
			pre.ExpectedDate, pre.SpecialNotes)
	} else {
		b.WriteString("\n*Order Summary:*\n")
	}
	r.p.Fprintf(b, "• Total Items: %d\n• Total Value: %s", len(o.Items), r.money(o.Total))
}

func (r *Renderer) inquiry(b *strings.Builder, q submission.Inquiry) {
	r.p.Fprintf(b, "*New Price Inquiry - %s*\n\n", r.Company)
	r.broker(b, q.Broker)

	b.WriteString("*Inquiry Items:*\n")
	for _, it := range q.Items {
		r.p.Fprintf(b, "• %s - Original: %s - Bargain: %s - Difference: %s\n",
			it.ProductName, r.money(it.OriginalPrice), r.money(it.BargainPrice),
			r.money(it.OriginalPrice.Sub(it.BargainPrice)))
	}

	r.p.Fprintf(b, "\n*Inquiry Summary:*\n• Total Items: %d\n• Total Original Value: %s\n• Total Bargain Value: %s\n• Total Savings: %s",
		len(q.Items), r.money(q.TotalOriginal), r.money(q.TotalBargain),
		r.money(q.TotalOriginal.Sub(q.TotalBargain)))
}

func (r *Renderer) checkout(b *strings.Builder, c submission.Checkout) {
	r.p.Fprintf(b, "*New Website Order - %s*\n\n", r.Company)
	r.p.Fprintf(b, "*Customer Details:*\n• Name: %s\n• Email: %s\n• Phone: %s\n\n",
		orDefault(c.Customer.Name, "Customer"),
		orDefault(c.Customer.Email, "Not provided"),
		orDefault(c.Customer.Phone, "Not provided"))

	b.WriteString("*Cart Items:*\n")
	for _, it := range c.Items {
		r.p.Fprintf(b, "• %s - %s m × %s m (%s m²) - Price: %s/m² - Total: %s\n",
			it.ProductName, r.num(it.Width), r.num(it.Height), r.num(it.Area),
			r.money(it.UnitPrice), r.money(it.Total))
	}

	r.p.Fprintf(b, "\n*Order Summary:*\n• Total Items: %d\n• Subtotal: %s\n", len(c.Items), r.money(c.Subtotal))
	if c.DiscountRate.IsPositive() {
		r.p.Fprintf(b, "• Discount: %s%%\n", c.DiscountRate.Shift(2).String())
	}
	r.p.Fprintf(b, "• Total Value: %s", r.money(c.Total))
}

func (r *Renderer) contact(b *strings.Builder, c submission.Contact) {
	area := "Not specified"
	if s := strings.TrimSpace(c.AreaSize); s != "" {
		area = s + " m²"
	}
	r.p.Fprintf(b, "*New Contact Form Submission - %s*\n\n", r.Company)
	r.p.Fprintf(b, "*Customer Details:*\n• Name: %s\n• Email: %s\n• Phone: %s\n\n",
		c.FullName, c.Email, orDefault(c.Phone, "Not provided"))
	r.p.Fprintf(b, "*Project Details:*\n• Project Type: %s\n• Area Size: %s\n• Location: %s\n\n",
		c.ProjectType, area, orDefault(c.Location, "Not specified"))
	r.p.Fprintf(b, "*Message:*\n%s", orDefault(c.Message, "No additional details provided"))
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
