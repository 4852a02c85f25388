package ratecard

import (
	"os"
	"strings"
	"time"
)

// DefaultTokenWindow is the time between approval and token expiry when
// RATE_CARD_TOKEN_WINDOW is not set.
const DefaultTokenWindow = 24 * time.Hour

const DefaultPublicURL = "https://rates.thekontenthub.com"

type Config struct {
	// TokenWindow is added to the approval time to get tokenExpiresAt.
	TokenWindow time.Duration
	// PublicURL is the site the redemption link points at.
	PublicURL string
	// DocumentPath is the JSON rate card served after a successful redemption.
	DocumentPath string
}

// ConfigFromEnv reads the rate card settings; invalid values fall back to defaults.
func ConfigFromEnv() Config {
	window := DefaultTokenWindow
	if v := strings.TrimSpace(os.Getenv("RATE_CARD_TOKEN_WINDOW")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			window = d
		}
	}
	publicURL := strings.TrimRight(strings.TrimSpace(os.Getenv("RATE_CARD_PUBLIC_URL")), "/")
	if publicURL == "" {
		publicURL = DefaultPublicURL
	}
	return Config{
		TokenWindow:  window,
		PublicURL:    publicURL,
		DocumentPath: os.Getenv("RATE_CARD_DOCUMENT"),
	}
}
