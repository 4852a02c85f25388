package ratecard

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/ratecard/entity"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/pkg/utilities"
)

// MarkAccessed records the first access for token. Repeat calls are no-ops and
// keep the original accessedAt. Access is only tracked for the operator; it
// never limits how often a valid token can be redeemed.
func (s *Service) MarkAccessed(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	rows, err := s.store.MarkAccessed(ctx, token, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if rows > 0 {
		s.metrics.AccessRecorded.Inc()
		s.logger.Infow("rate card first access", "token", utilities.TokenHint(token))
	}
	return nil
}

// Redeem validates token and, only when valid, records the access.
// A failure to record is logged and does not deny access.
func (s *Service) Redeem(ctx context.Context, token string) (entity.Validation, error) {
	v, err := s.Validate(ctx, token)
	if err != nil {
		s.metrics.Redemptions.WithLabelValues(metrics.OutcomeError).Inc()
		return entity.Validation{}, err
	}
	if !v.Valid {
		s.metrics.Redemptions.WithLabelValues(metrics.OutcomeDenied).Inc()
		return entity.Validation{}, ErrInvalidOrExpiredToken
	}
	s.metrics.Redemptions.WithLabelValues(metrics.OutcomeGranted).Inc()
	if err := s.MarkAccessed(ctx, token); err != nil {
		s.logger.Warnw("record access failed", "id", v.RequestID, "err", err)
	}
	return v, nil
}
