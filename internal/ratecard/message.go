package ratecard

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/ratecard/entity"
)

// Delivery is what an operator relays to the requester out-of-band. Nothing is sent by the service.
type Delivery struct {
	Link        string    `json:"link"`
	Message     string    `json:"message"`
	WhatsAppURL string    `json:"whatsapp_url"`
	ExpiresAt   time.Time `json:"token_expires_at"`
}

// Delivery composes the redemption link and message for an approved, unexpired request.
func (s *Service) Delivery(req *entity.AccessRequest) (*Delivery, error) {
	if !req.IsApproved || req.Token == nil || req.TokenExpiresAt == nil {
		return nil, ErrNotApproved
	}
	if req.Expired(s.clock.Now()) {
		return nil, ErrInvalidOrExpiredToken
	}
	link := RedemptionLink(s.cfg.PublicURL, *req.Token)
	msg := fmt.Sprintf("Hi %s, here's your private access link to view our rate card:\n%s\nIt's valid for %s only.",
		req.FullName, link, humanWindow(s.cfg.TokenWindow))
	return &Delivery{
		Link:        link,
		Message:     msg,
		WhatsAppURL: WhatsAppURL(req.PhoneNumber, msg),
		ExpiresAt:   *req.TokenExpiresAt,
	}, nil
}

// RedemptionLink is the protected page URL carrying the token as a query parameter.
func RedemptionLink(publicURL, token string) string {
	return strings.TrimRight(publicURL, "/") + "/rate-card?token=" + url.QueryEscape(token)
}

// WhatsAppURL builds a click-to-chat link; the phone number is reduced to digits.
func WhatsAppURL(phone, message string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return "https://wa.me/" + digits.String() + "?text=" + url.QueryEscape(message)
}

func humanWindow(d time.Duration) string {
	switch {
	case d >= 48*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%d days", int(d/(24*time.Hour)))
	case d >= time.Hour && d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	default:
		return d.String()
	}
}
