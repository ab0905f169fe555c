package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"

	"github.com/yesviral/checkout-api/internal/common"
	"github.com/yesviral/checkout-api/internal/order"
)

// Handler exposes the checkout session flow over HTTP.
type Handler struct {
	Svc *Service

	// OrderStash optionally recovers storefront-stashed payloads for clients
	// that lost the order query parameter mid-flow.
	OrderStash  *redis.Client
	StashCookie string
}

const orderStashPrefix = "checkout:orderstash:"

func (h *Handler) stashCookie() string {
	if h.StashCookie != "" {
		return h.StashCookie
	}
	return "yv_order"
}

// bodySource adapts the request-body payload to the order.Source contract.
type bodySource string

func (bodySource) Name() string { return "body" }

func (s bodySource) Raw(context.Context) (string, error) {
	raw := strings.TrimSpace(string(s))
	if raw == "" {
		return "", order.ErrNoPayload
	}
	return raw, nil
}

type createSessionRequest struct {
	Order string `json:"order"`
}

type submitRequest struct {
	Email       string `json:"email"`
	Acknowledge bool   `json:"acknowledge"`
}

type confirmRequest struct {
	PaymentMethodID string `json:"paymentMethodId"`
}

// CreateSession opens a session from the opaque order payload, taken from the
// request body, the order query parameter, or the storefront stash. Without a
// payload the customer is told to start over from the product page; no backend
// call is made.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload createSessionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}
	sources := []order.Source{
		bodySource(payload.Order),
		order.ParamSource{Values: r.URL.Query()},
	}
	if h.OrderStash != nil {
		if c, err := r.Cookie(h.stashCookie()); err == nil && c.Value != "" {
			sources = append(sources, order.StoredSource{Client: h.OrderStash, Prefix: orderStashPrefix, Key: c.Value})
		}
	}
	raw, source, err := order.FromSources(r.Context(), sources...)
	if err != nil {
		if errors.Is(err, order.ErrNoPayload) {
			common.JSONError(w, http.StatusBadRequest, "ORDER_REQUIRED", "no order found; please start checkout from the product page", nil)
			return
		}
		h.writeError(w, err)
		return
	}
	sess, err := h.Svc.Begin(r.Context(), raw, source)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": sessionView(sess)})
}

// Submit mints the payment intent for the session.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var payload submitRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}
	email := payload.Email
	if email == "" {
		if ctxEmail, ok := common.CustomerEmail(r.Context()); ok {
			email = ctxEmail
		}
	}
	sess, err := h.Svc.Submit(r.Context(), chi.URLParam(r, "id"), email, payload.Acknowledge)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sessionView(sess)})
}

// Confirm finalises the payment with the submitted payment-method handle.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var payload confirmRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}
	sess, err := h.Svc.Confirm(r.Context(), chi.URLParam(r, "id"), payload.PaymentMethodID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sessionView(sess)})
}

// GetSession returns the session state and its user-visible message.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sessionView(sess)})
}

// Success redirects a completed session to the success page.
func (h *Handler) Success(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !sess.Terminal() {
		common.JSONError(w, http.StatusConflict, "PAYMENT_INCOMPLETE", "the payment has not completed", map[string]any{"status": sess.Status})
		return
	}
	target, err := BuildSuccessURL(h.Svc.SuccessBaseURL, sess.Order)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not build success URL", nil)
		return
	}
	Redirect(w, r, target)
}

// OrderStatus is the public order-status lookup, keyed by order reference.
func (h *Handler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	sess, err := h.Svc.StatusByReference(r.Context(), reference)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"reference": sess.Order.Reference,
		"status":    sess.Status,
		"message":   sess.Message(),
		"updatedAt": sess.UpdatedAt,
	}})
}

func sessionView(s PaymentSession) map[string]any {
	return map[string]any{
		"id":           s.ID,
		"status":       s.Status,
		"message":      s.Message(),
		"reason":       s.Reason,
		"retryable":    s.Retryable,
		"clientSecret": s.ClientSecret,
		"order": map[string]any{
			"platform":  s.Order.Platform,
			"service":   s.Order.Service,
			"quantity":  s.Order.Quantity,
			"reference": s.Order.Reference,
			"total":     s.Order.Total.String(),
			"package":   s.Order.Package,
			"type":      s.Order.Type,
		},
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
	case errors.Is(err, ErrSessionNotFound):
		common.JSONError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "checkout session not found or expired", nil)
	default:
		var decodeErr *order.DecodeError
		if errors.As(err, &decodeErr) {
			common.JSONError(w, http.StatusBadRequest, "ORDER_INVALID", "the order payload could not be read; please start checkout from the product page", map[string]any{"reason": decodeErr.Reason})
			return
		}
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			status := appErr.HTTPStatus
			if status == 0 {
				status = http.StatusBadRequest
			}
			code := appErr.Code
			if code == "" {
				code = "BAD_REQUEST"
			}
			common.JSONError(w, status, code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
