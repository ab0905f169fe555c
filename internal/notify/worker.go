package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/yesviral/checkout-api/internal/common"
)

// ReceiptWorker renders and sends receipt emails consumed from the task
// queue.
type ReceiptWorker struct {
	Mail common.EmailSender
	From string
	Log  zerolog.Logger
}

// HandleReceiptEmail is the asynq handler for TaskTypeReceiptEmail.
func (w ReceiptWorker) HandleReceiptEmail(_ context.Context, t *asynq.Task) error {
	if w.Mail == nil {
		return nil
	}
	var p ReceiptPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// A payload that cannot be decoded will never succeed.
		return fmt.Errorf("notify: decode receipt payload: %w: %w", err, asynq.SkipRetry)
	}
	if strings.TrimSpace(p.Email) == "" {
		return nil
	}
	subject := fmt.Sprintf("Your order is confirmed — %s %s", p.Platform, p.Service)
	if err := w.Mail.Send(p.Email, subject, receiptBody(p, w.From)); err != nil {
		return fmt.Errorf("notify: send receipt: %w", err)
	}
	w.Log.Info().Str("session_id", p.SessionID).Msg("receipt email sent")
	return nil
}

func receiptBody(p ReceiptPayload, from string) string {
	var b strings.Builder
	b.WriteString("<h2>Thanks for your purchase!</h2>")
	b.WriteString("<p>Your payment was successful and your order is being processed.</p>")
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li>Platform: %s</li>", html.EscapeString(p.Platform))
	fmt.Fprintf(&b, "<li>Service: %s</li>", html.EscapeString(p.Service))
	fmt.Fprintf(&b, "<li>Quantity: %d</li>", p.Quantity)
	fmt.Fprintf(&b, "<li>Reference: %s</li>", html.EscapeString(p.Reference))
	fmt.Fprintf(&b, "<li>Total: $%s</li>", html.EscapeString(p.Total))
	if p.PaidAt != "" {
		fmt.Fprintf(&b, "<li>Paid at: %s</li>", html.EscapeString(p.PaidAt))
	}
	b.WriteString("</ul>")
	b.WriteString("<p>You can check progress any time on the order status page using your reference.</p>")
	if from = strings.TrimSpace(from); from != "" {
		fmt.Fprintf(&b, "<p>Questions about your order? Write to %s.</p>", html.EscapeString(from))
	}
	return b.String()
}
