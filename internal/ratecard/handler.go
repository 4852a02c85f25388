package ratecard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/operator"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/ratecard/entity"
)

var intakeValidate = validator.New()

// Handler exposes the intake, redemption and operator endpoints.
type Handler struct {
	svc      *Service
	document json.RawMessage
	logger   *zap.SugaredLogger
}

func NewHandler(svc *Service, document json.RawMessage, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, document: document, logger: logger}
}

// SubmitRequest is the public intake form body. Format checks live here, not in the service.
type SubmitRequest struct {
	FullName        string `json:"full_name" validate:"required,max=200"`
	PhoneNumber     string `json:"phone_number" validate:"required,max=32"`
	Email           string `json:"email" validate:"omitempty,email,max=254"`
	BrandName       string `json:"brand_name" validate:"max=200"`
	InstagramHandle string `json:"instagram_handle" validate:"max=100"`
	AboutBusiness   string `json:"about_business" validate:"max=2000"`
	ServiceInterest string `json:"service_interest" validate:"max=200"`
	HelpNeeded      string `json:"help_needed" validate:"max=2000"`
	AdditionalInfo  string `json:"additional_info" validate:"max=2000"`
}

// SubmitResponse response body containing the new request id.
type SubmitResponse struct {
	ID string `json:"id"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid intake payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := intakeValidate.Struct(req); err != nil {
		h.logger.Debugw("intake validation failed", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "validation error"})
		return
	}
	id, err := h.svc.Submit(r.Context(), entity.NewAccessRequest{
		FullName:        req.FullName,
		PhoneNumber:     req.PhoneNumber,
		Email:           req.Email,
		BrandName:       req.BrandName,
		InstagramHandle: req.InstagramHandle,
		AboutBusiness:   req.AboutBusiness,
		ServiceInterest: req.ServiceInterest,
		HelpNeeded:      req.HelpNeeded,
		AdditionalInfo:  req.AdditionalInfo,
	})
	if err != nil {
		h.writeError(w, "submit", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, SubmitResponse{ID: id})
}

// RedeemResponse is returned to a valid token holder.
type RedeemResponse struct {
	FullName  string          `json:"full_name"`
	ExpiresAt time.Time       `json:"expires_at"`
	Document  json.RawMessage `json:"document,omitempty"`
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Redeem(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.writeError(w, "redeem", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.writeJSON(w, http.StatusOK, RedeemResponse{FullName: v.FullName, ExpiresAt: v.ExpiresAt, Document: h.document})
}

// RequestView is a request as shown to operators, with the derived status.
type RequestView struct {
	*entity.AccessRequest
	Status string `json:"status"`
}

func (h *Handler) view(req *entity.AccessRequest) RequestView {
	return RequestView{AccessRequest: req, Status: string(req.Status(h.svc.Now()))}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := entity.Filter{Status: q.Get("status"), Query: q.Get("q")}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	switch f.Status {
	case "", "all", "pending", "approved", "accessed", "expired":
	default:
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status filter"})
		return
	}
	reqs, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.writeError(w, "list", err)
		return
	}
	out := make([]RequestView, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, h.view(req))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		h.writeError(w, "stats", err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, "get", err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.view(req))
}

// ApproveResponse carries the issued token plus the ready-to-send message.
type ApproveResponse struct {
	entity.Issued
	Delivery *Delivery `json:"delivery,omitempty"`
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	issued, err := h.svc.Approve(r.Context(), id)
	if err != nil {
		h.writeError(w, "approve", err)
		return
	}
	if p, ok := operator.FromContext(r.Context()); ok {
		h.logger.Infow("approved by operator", "id", id, "operator", p.Username)
	}
	resp := ApproveResponse{Issued: *issued}
	if req, err := h.svc.Get(r.Context(), id); err == nil {
		if d, err := h.svc.Delivery(req); err == nil {
			resp.Delivery = d
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, "message", err)
		return
	}
	d, err := h.svc.Delivery(req)
	if err != nil {
		h.writeError(w, "message", err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrAlreadyApproved):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": "already approved"})
	case errors.Is(err, ErrNotApproved):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": "not approved"})
	case errors.Is(err, ErrInvalidOrExpiredToken):
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid or expired token"})
	case errors.Is(err, ErrInvalidRequest):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logger.Errorw("rate card operation failed", "op", op, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
