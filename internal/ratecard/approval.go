package ratecard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/ratecard/entity"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/pkg/utilities"
)

// Approve moves a pending request to approved and issues its token, expiring
// TokenWindow from now. A request is approved at most once: later calls get
// ErrAlreadyApproved and the token already handed out stays the only one.
func (s *Service) Approve(ctx context.Context, requestID string) (*entity.Issued, error) {
	token, err := s.tokens.NewToken()
	if err != nil {
		s.metrics.Approvals.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("generate token: %w", err)
	}
	expiresAt := s.clock.Now().UTC().Add(s.cfg.TokenWindow)

	rows, err := s.store.Approve(ctx, requestID, token, expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.Approvals.WithLabelValues(metrics.OutcomeNotFound).Inc()
			return nil, ErrNotFound
		}
		s.metrics.Approvals.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}
	if rows == 0 {
		s.metrics.Approvals.WithLabelValues(metrics.OutcomeAlreadyApproved).Inc()
		return nil, ErrAlreadyApproved
	}

	s.metrics.Approvals.WithLabelValues(metrics.OutcomeIssued).Inc()
	s.logger.Infow("rate card request approved",
		"id", requestID,
		"token", utilities.TokenHint(token),
		"expires_at", expiresAt,
	)
	// the store keeps millisecond precision; report what a later read will see
	return &entity.Issued{RequestID: requestID, Token: token, ExpiresAt: expiresAt.Truncate(time.Millisecond)}, nil
}
