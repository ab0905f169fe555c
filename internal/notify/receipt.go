package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/yesviral/checkout-api/internal/checkout"
)

// TaskTypeReceiptEmail identifies the post-purchase receipt email task.
const TaskTypeReceiptEmail = "email:receipt"

// QueueEmails is the asynq queue receipt tasks are placed on.
const QueueEmails = "emails"

// ReceiptPayload is the task payload for a receipt email. It carries display
// fields only; the client secret never enters the queue.
type ReceiptPayload struct {
	SessionID string `json:"sessionId"`
	Reference string `json:"reference"`
	Platform  string `json:"platform"`
	Service   string `json:"service"`
	Quantity  int64  `json:"quantity"`
	Total     string `json:"total"`
	Email     string `json:"email"`
	PaidAt    string `json:"paidAt"`
}

// NewReceiptTask builds the asynq task for a receipt payload.
func NewReceiptTask(p ReceiptPayload) (*asynq.Task, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("notify: marshal receipt payload: %w", err)
	}
	return asynq.NewTask(TaskTypeReceiptEmail, raw,
		asynq.Queue(QueueEmails),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	), nil
}

// Enqueuer schedules receipt emails after a successful payment. It satisfies
// checkout.ReceiptEnqueuer.
type Enqueuer struct {
	Client  *asynq.Client
	Enabled bool
	Log     zerolog.Logger
}

// EnqueueReceipt queues the receipt email for a succeeded session. Sessions
// without a customer email are skipped silently; the order still completes.
func (e Enqueuer) EnqueueReceipt(ctx context.Context, s checkout.PaymentSession) error {
	if !e.Enabled || e.Client == nil {
		return nil
	}
	if s.Email == "" {
		e.Log.Debug().Str("session_id", s.ID).Msg("no customer email; receipt skipped")
		return nil
	}
	task, err := NewReceiptTask(ReceiptPayload{
		SessionID: s.ID,
		Reference: s.Order.Reference,
		Platform:  s.Order.Platform,
		Service:   s.Order.Service,
		Quantity:  s.Order.Quantity,
		Total:     s.Order.Total.String(),
		Email:     s.Email,
		PaidAt:    s.UpdatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	info, err := e.Client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("notify: enqueue receipt: %w", err)
	}
	e.Log.Info().Str("session_id", s.ID).Str("task_id", info.ID).Msg("receipt email queued")
	return nil
}
