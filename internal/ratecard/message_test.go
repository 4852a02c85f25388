package ratecard

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedemptionLink(t *testing.T) {
	assert.Equal(t, "https://rates.example.com/rate-card?token=abc_-1", RedemptionLink("https://rates.example.com/", "abc_-1"))
	assert.Equal(t, "https://x.test/rate-card?token=a%2Bb", RedemptionLink("https://x.test", "a+b"))
}

func TestWhatsAppURL(t *testing.T) {
	u, err := url.Parse(WhatsAppURL("+234 (800) 000-0000", "Hi Ada\nline two"))
	require.NoError(t, err)
	assert.Equal(t, "wa.me", u.Host)
	assert.Equal(t, "/2348000000000", u.Path)
	assert.Equal(t, "Hi Ada\nline two", u.Query().Get("text"))
}

func TestHumanWindow(t *testing.T) {
	cases := map[time.Duration]string{
		time.Hour:          "1 hour",
		24 * time.Hour:     "24 hours",
		72 * time.Hour:     "3 days",
		7 * 24 * time.Hour: "7 days",
		90 * time.Minute:   "1h30m0s",
	}
	for d, want := range cases {
		assert.Equal(t, want, humanWindow(d), d.String())
	}
}

func TestDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.submit(t, "Ada")

	req, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	_, err = f.svc.Delivery(req)
	assert.ErrorIs(t, err, ErrNotApproved)

	issued, err := f.svc.Approve(ctx, id)
	require.NoError(t, err)
	req, err = f.svc.Get(ctx, id)
	require.NoError(t, err)

	d, err := f.svc.Delivery(req)
	require.NoError(t, err)
	assert.Equal(t, "https://rates.example.com/rate-card?token="+url.QueryEscape(issued.Token), d.Link)
	assert.True(t, strings.HasPrefix(d.Message, "Hi Ada, here's your private access link"))
	assert.Contains(t, d.Message, d.Link)
	assert.Contains(t, d.Message, "valid for 24 hours only")
	assert.True(t, strings.HasPrefix(d.WhatsAppURL, "https://wa.me/2348000000000?text="))
	assert.True(t, d.ExpiresAt.Equal(issued.ExpiresAt))

	f.clock.Advance(25 * time.Hour)
	_, err = f.svc.Delivery(req)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}
