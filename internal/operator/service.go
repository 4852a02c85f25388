package operator

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotConfigured = errors.New("operator credentials not configured")
)

type Config struct {
	Username     string
	PasswordHash string
	JWTSecret    string
	SessionTTL   time.Duration
	Issuer       string
}

// ConfigFromEnv reads operator credentials. PasswordHash is a bcrypt hash
// (see `ratecardctl hash-password`).
func ConfigFromEnv() Config {
	ttl := 12 * time.Hour
	if v := os.Getenv("OPERATOR_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}
	issuer := os.Getenv("OPERATOR_ISSUER")
	if issuer == "" {
		issuer = "ratecard"
	}
	return Config{
		Username:     strings.TrimSpace(os.Getenv("OPERATOR_USERNAME")),
		PasswordHash: os.Getenv("OPERATOR_PASSWORD_HASH"),
		JWTSecret:    os.Getenv("OPERATOR_JWT_SECRET"),
		SessionTTL:   ttl,
		Issuer:       issuer,
	}
}

// PasswordHasher defines minimal hashing interface.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Principal is the authenticated operator behind a request.
type Principal struct {
	Username  string
	ExpiresAt time.Time
}

// Authorizer decides whether an HTTP request comes from an operator.
type Authorizer interface {
	Authorize(r *http.Request) (*Principal, error)
}

// Session is an issued operator bearer token.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Service checks the operator credential and issues / verifies HS256 session tokens.
type Service struct {
	cfg    Config
	hasher PasswordHasher
	clock  clockwork.Clock
}

func NewService(cfg Config, hasher PasswordHasher, clock clockwork.Clock) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	return &Service{cfg: cfg, hasher: hasher, clock: clock}
}

func (s *Service) configured() bool {
	return s.cfg.Username != "" && s.cfg.PasswordHash != "" && s.cfg.JWTSecret != ""
}

// Login verifies username/password and returns a signed session token.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	if !s.configured() {
		return nil, ErrNotConfigured
	}
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(s.cfg.Username)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	pwOK := s.hasher.Verify(s.cfg.PasswordHash, password)
	if !userOK || !pwOK {
		return nil, ErrUnauthorized
	}
	now := s.clock.Now()
	exp := now.Add(s.cfg.SessionTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   s.cfg.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &Session{AccessToken: signed, ExpiresAt: time.Unix(exp.Unix(), 0).UTC()}, nil
}

// Verify parses a session token and returns its principal.
func (s *Service) Verify(token string) (*Principal, error) {
	if !s.configured() || token == "" {
		return nil, ErrUnauthorized
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithSubject(s.cfg.Username),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, ErrUnauthorized
	}
	p := &Principal{Username: claims.Subject}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return p, nil
}

// Authorize implements Authorizer using an `Authorization: Bearer` header.
func (s *Service) Authorize(r *http.Request) (*Principal, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" || !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return nil, ErrUnauthorized
	}
	return s.Verify(strings.TrimSpace(auth[len("bearer "):]))
}
