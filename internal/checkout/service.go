package checkout

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yesviral/checkout-api/internal/common"
	"github.com/yesviral/checkout-api/internal/lock"
	"github.com/yesviral/checkout-api/internal/obs"
	"github.com/yesviral/checkout-api/internal/order"
	"github.com/yesviral/checkout-api/internal/payment"
)

// IntentCreator mints a payment intent for an amount in minor units and
// returns its client secret. Satisfied by payment.IntentClient.
type IntentCreator interface {
	Create(ctx context.Context, amountMinorUnits int64, meta payment.Metadata, email string) (string, error)
}

// ReceiptEnqueuer schedules the post-purchase receipt email. Enqueue failures
// never fail the checkout; the payment has already settled.
type ReceiptEnqueuer interface {
	EnqueueReceipt(ctx context.Context, s PaymentSession) error
}

// Service drives the payment session state machine: order intake, intent
// creation, and provider confirmation. All transitions for a session are
// serialised through a per-session lock plus state checks, so at most one
// intent call and one confirmation can be in flight per session.
type Service struct {
	Store          Store
	Intents        IntentCreator
	Provider       payment.Provider
	Locker         *lock.Locker
	Receipts       ReceiptEnqueuer
	SessionTTL     time.Duration
	ConfirmTimeout time.Duration
	SuccessBaseURL string
	Log            zerolog.Logger
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return time.Hour
}

func (s *Service) confirmTimeout() time.Duration {
	if s.ConfirmTimeout > 0 {
		return s.ConfirmTimeout
	}
	return 30 * time.Second
}

// withSessionLock serialises a transition for one session. Runs can proceed
// without Redis locking in tests; state checks still reject double entry.
func (s *Service) withSessionLock(ctx context.Context, id string, fn func(context.Context) error) error {
	if s.Locker == nil {
		return fn(ctx)
	}
	return s.Locker.WithLock(ctx, "checkout:lock:"+id, s.confirmTimeout()+5*time.Second, fn)
}

// loadForUpdate reads a session under the caller's lock and repairs one found
// wedged in confirming. A stored confirming session older than the confirm
// timeout cannot have a live confirmation behind it; whatever interrupted it
// (a crash mid-confirmation, a lost outcome write) left the real outcome
// unknown, so it is recovered as failed/status-unknown and the acknowledge
// path takes over from there.
func (s *Service) loadForUpdate(ctx context.Context, id string) (PaymentSession, error) {
	sess, err := s.Store.Get(ctx, id)
	if err != nil {
		return PaymentSession{}, err
	}
	if sess.Status != StatusConfirming || time.Since(sess.UpdatedAt) <= s.confirmTimeout()+confirmingSlack {
		return sess, nil
	}
	sess.Status = StatusFailed
	sess.Reason = payment.ConfirmReasonStatusUnknown
	sess.LastError = "the payment outcome was lost before it could be recorded"
	sess.Retryable = false
	sess.ClientSecret = ""
	sess.UpdatedAt = time.Now().UTC()
	if err := s.Store.Save(ctx, sess, s.sessionTTL()); err != nil {
		return PaymentSession{}, err
	}
	s.Log.Warn().Str("session_id", sess.ID).Msg("stale confirming session recovered as status-unknown")
	return sess, nil
}

// confirmingSlack pads the staleness cutoff so a confirmation that is merely
// slow is never declared lost while its lock is still held.
const confirmingSlack = 5 * time.Second

// Begin decodes the raw order payload and opens a new idle session. Decode
// failures are returned as-is; nothing is persisted and the payment backend
// is never contacted.
func (s *Service) Begin(ctx context.Context, raw, source string) (PaymentSession, error) {
	if s == nil || s.Store == nil {
		return PaymentSession{}, errors.New("checkout service not configured")
	}
	ord, err := order.Decode(raw)
	if err != nil {
		if reason, ok := order.DecodeReason(err); ok && obs.OrderDecodeFailures != nil {
			obs.OrderDecodeFailures.WithLabelValues(reason).Inc()
		}
		return PaymentSession{}, err
	}

	now := time.Now().UTC()
	sess := PaymentSession{
		ID:        uuid.NewString(),
		Order:     ord,
		RawOrder:  strings.TrimSpace(raw),
		Email:     ord.Email,
		Status:    StatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Save(ctx, sess, s.sessionTTL()); err != nil {
		return PaymentSession{}, err
	}
	if obs.CheckoutSessionsStarted != nil {
		obs.CheckoutSessionsStarted.WithLabelValues(source).Inc()
	}
	s.Log.Info().
		Str("session_id", sess.ID).
		Str("reference", ord.Reference).
		Str("platform", ord.Platform).
		Str("source", source).
		Msg("checkout session started")
	return sess, nil
}

// Submit creates the payment intent and moves the session to awaiting-method.
// Submitting an awaiting-method session is an idempotent no-op returning the
// existing client secret. After a non-retryable failure the caller must set
// acknowledge to mint a fresh intent.
func (s *Service) Submit(ctx context.Context, id, email string, acknowledge bool) (PaymentSession, error) {
	var out PaymentSession
	err := s.withSessionLock(ctx, id, func(ctx context.Context) error {
		sess, err := s.loadForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case sess.InFlight():
			return common.NewAppError("CONFIRMATION_IN_FLIGHT", "a payment confirmation is already in progress", http.StatusConflict, nil)
		case sess.Terminal():
			out = sess
			return nil
		case sess.Status == StatusAwaitingMethod:
			out = sess
			return nil
		case sess.Status == StatusFailed && sess.Retryable && sess.ClientSecret != "":
			// Declined, but the intent is still confirmable; reuse its secret.
			out = sess
			return nil
		case sess.Status == StatusFailed && !sess.Retryable && !acknowledge:
			return common.NewAppError("PAYMENT_UNVERIFIED", "the previous payment outcome is unverified; check your order status first", http.StatusConflict, nil)
		}

		if email = strings.TrimSpace(email); email != "" {
			sess.Email = email
		}
		amount := payment.MinorUnits(sess.Order.Total)
		secret, err := s.Intents.Create(ctx, amount, payment.Metadata{"order": sess.RawOrder}, sess.Email)
		now := time.Now().UTC()
		sess.UpdatedAt = now
		if err != nil {
			reason, _ := payment.IntentReason(err)
			if reason == "" {
				reason = payment.IntentReasonNetwork
			}
			sess.Status = StatusFailed
			sess.Reason = reason
			sess.LastError = err.Error()
			sess.Retryable = true
			sess.ClientSecret = ""
			if saveErr := s.Store.Save(ctx, sess, s.sessionTTL()); saveErr != nil {
				return saveErr
			}
			s.Log.Warn().Err(err).Str("session_id", sess.ID).Str("reason", reason).Msg("payment intent creation failed")
			out = sess
			return nil
		}
		sess.Status = StatusAwaitingMethod
		sess.ClientSecret = secret
		sess.LastError = ""
		sess.Reason = ""
		sess.Retryable = false
		if err := s.Store.Save(ctx, sess, s.sessionTTL()); err != nil {
			return err
		}
		s.Log.Info().Str("session_id", sess.ID).Msg("payment intent created")
		out = sess
		return nil
	})
	return out, err
}

// Confirm runs the provider confirmation for the session's intent. A decline
// leaves the session failed but retryable with the secret intact; an
// indeterminate outcome leaves it failed and not retryable.
func (s *Service) Confirm(ctx context.Context, id, methodHandle string) (PaymentSession, error) {
	methodHandle = strings.TrimSpace(methodHandle)
	if methodHandle == "" {
		return PaymentSession{}, common.NewAppError("BAD_REQUEST", "paymentMethodId is required", http.StatusBadRequest, nil)
	}
	var out PaymentSession
	err := s.withSessionLock(ctx, id, func(ctx context.Context) error {
		sess, err := s.loadForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case sess.InFlight():
			return common.NewAppError("CONFIRMATION_IN_FLIGHT", "a payment confirmation is already in progress", http.StatusConflict, nil)
		case sess.Terminal():
			out = sess
			return nil
		case sess.Status == StatusFailed && sess.Retryable && sess.ClientSecret != "":
			// Declined earlier; the secret is still valid, retry with it.
		case sess.Status != StatusAwaitingMethod:
			return common.NewAppError("NO_PAYMENT_INTENT", "submit the order before confirming payment", http.StatusConflict, nil)
		}
		if sess.ClientSecret == "" {
			return common.NewAppError("NO_PAYMENT_INTENT", "submit the order before confirming payment", http.StatusConflict, nil)
		}

		sess.Status = StatusConfirming
		sess.UpdatedAt = time.Now().UTC()
		if err := s.Store.Save(ctx, sess, s.sessionTTL()); err != nil {
			return err
		}

		out, err = s.runConfirmation(ctx, sess, methodHandle)
		return err
	})
	return out, err
}

func (s *Service) runConfirmation(ctx context.Context, sess PaymentSession, methodHandle string) (PaymentSession, error) {
	ctx, span := otel.Tracer("checkout.Service").Start(ctx, "Service.Confirm")
	defer span.End()
	span.SetAttributes(attribute.String("checkout.session_id", sess.ID))

	cctx, cancel := context.WithTimeout(ctx, s.confirmTimeout())
	defer cancel()

	start := time.Now()
	res, err := s.Provider.Confirm(cctx, sess.ClientSecret, methodHandle, payment.BillingDetails{Email: sess.Email})
	elapsed := time.Since(start)

	now := time.Now().UTC()
	sess.UpdatedAt = now
	switch {
	case err != nil:
		reason, _ := payment.ConfirmReason(err)
		if reason == "" {
			reason = payment.ConfirmReasonStatusUnknown
		}
		sess.Status = StatusFailed
		sess.Reason = reason
		sess.LastError = providerMessage(err)
		// Only a clean decline is safe to retry against the same intent;
		// timeouts and unknown outcomes may have charged the customer.
		sess.Retryable = reason == payment.ConfirmReasonDeclined
		if !sess.Retryable {
			sess.ClientSecret = ""
		}
		s.recordConfirmation("failed", reason, elapsed)
		s.Log.Warn().Err(err).Str("session_id", sess.ID).Str("reason", reason).Msg("payment confirmation failed")
	case res.Terminal():
		sess.Status = StatusSucceeded
		sess.Reason = ""
		sess.LastError = ""
		sess.Retryable = false
		s.recordConfirmation("succeeded", "", elapsed)
		s.Log.Info().Str("session_id", sess.ID).Str("reference", sess.Order.Reference).Msg("payment confirmed")
	default:
		// requires_action or processing: this flow has no challenge step, so
		// the outcome cannot be resolved here.
		sess.Status = StatusFailed
		sess.Reason = payment.ConfirmReasonStatusUnknown
		sess.LastError = "payment ended in status " + res.Status
		sess.Retryable = false
		sess.ClientSecret = ""
		s.recordConfirmation("failed", payment.ConfirmReasonStatusUnknown, elapsed)
		s.Log.Warn().Str("session_id", sess.ID).Str("provider_status", res.Status).Msg("payment outcome indeterminate")
	}

	if err := s.saveOutcome(ctx, sess); err != nil {
		// The outcome is already decided; surface it to the caller anyway.
		// The stored session stays confirming until the staleness escape in
		// loadForUpdate recovers it on the next read.
		s.Log.Error().Err(err).Str("session_id", sess.ID).Str("status", sess.Status).Msg("confirmation outcome could not be persisted")
	}
	if sess.Status == StatusSucceeded && s.Receipts != nil {
		if err := s.Receipts.EnqueueReceipt(ctx, sess); err != nil {
			s.Log.Error().Err(err).Str("session_id", sess.ID).Msg("receipt email enqueue failed")
		}
	}
	return sess, nil
}

// saveOutcome persists the confirmation result, retrying once so a transient
// store hiccup does not strand the session in confirming.
func (s *Service) saveOutcome(ctx context.Context, sess PaymentSession) error {
	if err := s.Store.Save(ctx, sess, s.sessionTTL()); err == nil {
		return nil
	}
	return s.Store.Save(ctx, sess, s.sessionTTL())
}

func (s *Service) recordConfirmation(result, reason string, elapsed time.Duration) {
	if obs.ConfirmationsTotal != nil {
		obs.ConfirmationsTotal.WithLabelValues(result, reason).Inc()
	}
	if obs.ConfirmLatency != nil {
		obs.ConfirmLatency.WithLabelValues(result).Observe(float64(elapsed.Milliseconds()))
	}
}

// Get returns the current session state.
func (s *Service) Get(ctx context.Context, id string) (PaymentSession, error) {
	return s.Store.Get(ctx, id)
}

// StatusByReference resolves the latest session for an order reference. Backs
// the public order-status lookup, so it exposes status only.
func (s *Service) StatusByReference(ctx context.Context, reference string) (PaymentSession, error) {
	return s.Store.GetByReference(ctx, reference)
}

// providerMessage prefers the provider's human-readable decline text over the
// wrapped transport error.
func providerMessage(err error) string {
	var pe *payment.ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}
