package ratecard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/ratecard/entity"
)

// Validate reports whether token currently grants access: it must belong to an
// approved request and now must not be past its expiry. Unknown and expired
// tokens produce the same result. Validate never writes.
//
// The returned error is only set for store failures.
func (s *Service) Validate(ctx context.Context, token string) (entity.Validation, error) {
	if token == "" {
		return entity.Validation{}, nil
	}
	req, err := s.store.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Validation{}, nil
		}
		return entity.Validation{}, fmt.Errorf("lookup token: %w", err)
	}
	// lookup is by exact match in the store; re-check in case of collation quirks
	if req.Token == nil || *req.Token != token {
		return entity.Validation{}, nil
	}
	if !req.IsApproved || req.TokenExpiresAt == nil {
		return entity.Validation{}, nil
	}
	if req.Expired(s.clock.Now()) {
		return entity.Validation{}, nil
	}
	return entity.Validation{
		Valid:     true,
		FullName:  req.FullName,
		RequestID: req.ID,
		ExpiresAt: *req.TokenExpiresAt,
	}, nil
}
