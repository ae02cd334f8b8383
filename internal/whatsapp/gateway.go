package whatsapp

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/turfshop/internal/domain/submission"
)

// FormatPhone normalises a Kenyan phone number to international form
// without the leading plus: non-digits are stripped, a leading 0 becomes
// 254, and a bare 7xx number gets the 254 prefix. Anything else is
// returned as digits only.
func FormatPhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	switch {
	case strings.HasPrefix(digits, "254"):
		return digits
	case strings.HasPrefix(digits, "0"):
		return "254" + digits[1:]
	case strings.HasPrefix(digits, "7"):
		return "254" + digits
	}
	return digits
}

// Link builds a wa.me click-to-chat URL with text pre-filled.
func Link(phone, text string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return "https://wa.me/" + FormatPhone(phone) + "?text=" + escaped
}

// Gateway delivers submissions as wa.me links addressed to the shop.
type Gateway struct {
	phone    string
	renderer *Renderer
	now      func() time.Time
	newID    func() string
}

var _ submission.Gateway = (*Gateway)(nil)

// NewGateway creates a Gateway sending to phone.
func NewGateway(phone string, r *Renderer) (*Gateway, error) {
	formatted := FormatPhone(phone)
	if formatted == "" {
		return nil, errors.Errorf("invalid whatsapp phone %q", phone)
	}
	return &Gateway{
		phone:    formatted,
		renderer: r,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}, nil
}

// Send renders p and returns a receipt carrying the link that opens the
// pre-filled chat.
func (g *Gateway) Send(ctx context.Context, p submission.Payload) (*submission.Receipt, error) {
	at := g.now()
	text, err := g.renderer.Render(p, at)
	if err != nil {
		return nil, errors.Wrapf(submission.ErrDelivery, "render: %v", err)
	}

	r := &submission.Receipt{
		ID:          g.newID(),
		Kind:        p.Kind(),
		Link:        Link(g.phone, text),
		Message:     text,
		SubmittedAt: at,
	}
	zctx.From(ctx).Debug("WhatsApp message prepared",
		zap.String("receipt_id", r.ID),
		zap.String("kind", string(r.Kind)),
		zap.Int("message_len", len(text)),
	)
	return r, nil
}
