package ratecard

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMux(t *testing.T, f *fixture) *http.ServeMux {
	t.Helper()
	doc, err := LoadDocument("testdata/rate-card.json")
	require.NoError(t, err)
	h := NewHandler(f.svc, doc, zap.NewNop().Sugar())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /requests", h.Submit)
	mux.HandleFunc("GET /rate-card", h.Redeem)
	mux.HandleFunc("GET /requests", h.List)
	mux.HandleFunc("GET /requests/stats", h.Stats)
	mux.HandleFunc("GET /requests/{id}", h.Get)
	mux.HandleFunc("POST /requests/{id}/approve", h.Approve)
	mux.HandleFunc("GET /requests/{id}/message", h.Message)
	mux.HandleFunc("DELETE /requests/{id}", h.Delete)
	return mux
}

func do(mux http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, &buf))
	return rec
}

func TestHandler_Submit(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(t, f)

	rec := do(mux, http.MethodPost, "/requests", SubmitRequest{FullName: "Ada", PhoneNumber: "+2348000000000", Email: "ada@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)

	req, err := f.svc.Get(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.False(t, req.IsApproved)

	rec = do(mux, http.MethodPost, "/requests", SubmitRequest{FullName: "Ada"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(mux, http.MethodPost, "/requests", SubmitRequest{FullName: "Ada", PhoneNumber: "1", Email: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/requests", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ApproveAndRedeem(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(t, f)
	id := f.submit(t, "Ada")

	rec := do(mux, http.MethodGet, "/rate-card", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(mux, http.MethodPost, "/requests/"+id+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var approved ApproveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approved))
	require.NotEmpty(t, approved.Token)
	require.NotNil(t, approved.Delivery)
	assert.Contains(t, approved.Delivery.Message, approved.Delivery.Link)

	rec = do(mux, http.MethodPost, "/requests/"+id+"/approve", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(mux, http.MethodGet, "/rate-card?token="+approved.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var redeemed RedeemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &redeemed))
	assert.Equal(t, "Ada", redeemed.FullName)
	assert.Contains(t, string(redeemed.Document), `"currency"`)

	rec = do(mux, http.MethodGet, "/requests/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Status      string `json:"status"`
		WasAccessed bool   `json:"was_accessed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "approved", view.Status)
	assert.True(t, view.WasAccessed)

	f.clock.Advance(25 * time.Hour)
	rec = do(mux, http.MethodGet, "/rate-card?token="+approved.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(mux, http.MethodGet, "/requests/"+id+"/message", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_NotFound(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(t, f)

	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, "/requests/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodPost, "/requests/nope/approve", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodDelete, "/requests/nope", nil).Code)
}

func TestHandler_MessageRequiresApproval(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(t, f)
	id := f.submit(t, "Ada")

	assert.Equal(t, http.StatusConflict, do(mux, http.MethodGet, "/requests/"+id+"/message", nil).Code)
}

func TestHandler_ListStatsDelete(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(t, f)
	pending := f.submit(t, "Pat")
	f.clock.Advance(time.Second)
	_, err := f.svc.Approve(context.Background(), f.submit(t, "Ada"))
	require.NoError(t, err)

	rec := do(mux, http.MethodGet, "/requests?status=approved", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Ada", views[0]["full_name"])
	assert.Equal(t, "approved", views[0]["status"])

	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodGet, "/requests?status=bogus", nil).Code)

	rec = do(mux, http.MethodGet, "/requests/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 2, st["total"])
	assert.Equal(t, 1, st["pending"])
	assert.Equal(t, 1, st["approved"])

	assert.Equal(t, http.StatusNoContent, do(mux, http.MethodDelete, "/requests/"+pending, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, "/requests/"+pending, nil).Code)
}
