package ratecard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/ratecard/entity"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/pkg/utilities"
)

// Store is the Request Store the lifecycle operations run against.
// Lookups return sql.ErrNoRows when nothing matches.
type Store interface {
	Create(ctx context.Context, in *entity.AccessRequest) error
	GetByID(ctx context.Context, id string) (*entity.AccessRequest, error)
	GetByToken(ctx context.Context, token string) (*entity.AccessRequest, error)
	Approve(ctx context.Context, id, token string, expiresAt time.Time) (int64, error)
	MarkAccessed(ctx context.Context, token string, at time.Time) (int64, error)
	List(ctx context.Context, f entity.Filter, now time.Time) ([]*entity.AccessRequest, error)
	Stats(ctx context.Context, now time.Time) (entity.Stats, error)
	Delete(ctx context.Context, id string) (int64, error)
}

var (
	ErrNotFound              = errors.New("request not found")
	ErrAlreadyApproved       = errors.New("request already approved")
	ErrNotApproved           = errors.New("request not approved")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrInvalidRequest        = errors.New("full name and phone number are required")
)

// Service implements the access lifecycle: intake, approval, validation and access recording.
type Service struct {
	store   Store
	cfg     Config
	clock   clockwork.Clock
	tokens  TokenSource
	newID   func() string
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithClock(c clockwork.Clock) Option { return func(s *Service) { s.clock = c } }

func WithTokenSource(t TokenSource) Option { return func(s *Service) { s.tokens = t } }

func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

func WithLogger(l *zap.SugaredLogger) Option { return func(s *Service) { s.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func NewService(store Store, cfg Config, opts ...Option) *Service {
	if cfg.TokenWindow <= 0 {
		cfg.TokenWindow = DefaultTokenWindow
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = DefaultPublicURL
	}
	s := &Service{
		store:  store,
		cfg:    cfg,
		clock:  clockwork.NewRealClock(),
		tokens: RandomTokens{},
		newID:  utilities.NewSnowflakeID,
		logger: zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// Now is the service clock's current time.
func (s *Service) Now() time.Time { return s.clock.Now() }

// Submit records a new pending request from the intake form and returns its id.
func (s *Service) Submit(ctx context.Context, in entity.NewAccessRequest) (string, error) {
	fullName := strings.TrimSpace(in.FullName)
	phone := strings.TrimSpace(in.PhoneNumber)
	if fullName == "" || phone == "" {
		return "", ErrInvalidRequest
	}
	req := &entity.AccessRequest{
		ID:              s.newID(),
		FullName:        fullName,
		PhoneNumber:     phone,
		SubmittedAt:     s.clock.Now().UTC(),
		Email:           optional(strings.ToLower(in.Email)),
		BrandName:       optional(in.BrandName),
		InstagramHandle: optional(in.InstagramHandle),
		AboutBusiness:   optional(in.AboutBusiness),
		ServiceInterest: optional(in.ServiceInterest),
		HelpNeeded:      optional(in.HelpNeeded),
		AdditionalInfo:  optional(in.AdditionalInfo),
		Notes:           optional(in.Notes),
	}
	if err := s.store.Create(ctx, req); err != nil {
		return "", err
	}
	s.metrics.RequestsSubmitted.Inc()
	s.logger.Infow("rate card request submitted", "id", req.ID)
	return req.ID, nil
}

// Get returns one request by id.
func (s *Service) Get(ctx context.Context, id string) (*entity.AccessRequest, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// List returns requests for the operator dashboard.
func (s *Service) List(ctx context.Context, f entity.Filter) ([]*entity.AccessRequest, error) {
	return s.store.List(ctx, f, s.clock.Now())
}

// Stats returns the per-status counts at the current time.
func (s *Service) Stats(ctx context.Context) (entity.Stats, error) {
	return s.store.Stats(ctx, s.clock.Now())
}

// Delete removes a request. This sits outside the lifecycle and is only offered to operators.
func (s *Service) Delete(ctx context.Context, id string) error {
	rows, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	s.logger.Infow("rate card request deleted", "id", id)
	return nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
