package operator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func login(h *Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/operator/login", bytes.NewBufferString(body)))
	return rec
}

func TestHandler_Login(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc, zap.NewNop().Sugar())

	rec := login(h, `{"username":"ops","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.EqualValues(t, 3600, resp.ExpiresIn)
	_, err := svc.Verify(resp.AccessToken)
	assert.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, login(h, `{"username":"ops","password":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, login(h, `{"username":"ops"}`).Code)
	assert.Equal(t, http.StatusBadRequest, login(h, `{`).Code)
}

func TestHandler_Login_NotConfigured(t *testing.T) {
	h := NewHandler(NewService(Config{}, BcryptHasher{Cost: 4}, clockwork.NewFakeClock()), zap.NewNop().Sugar())
	assert.Equal(t, http.StatusServiceUnavailable, login(h, `{"username":"ops","password":"x"}`).Code)
}

type stubAuthorizer struct {
	p   *Principal
	err error
}

func (s stubAuthorizer) Authorize(*http.Request) (*Principal, error) { return s.p, s.err }

func TestRequire(t *testing.T) {
	var seen *Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	Require(stubAuthorizer{err: ErrUnauthorized}, zap.NewNop().Sugar())(next).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	assert.Nil(t, seen)

	p := &Principal{Username: "ops", ExpiresAt: time.Now().Add(time.Hour)}
	rec = httptest.NewRecorder()
	Require(stubAuthorizer{p: p}, zap.NewNop().Sugar())(next).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, p, seen)
}
