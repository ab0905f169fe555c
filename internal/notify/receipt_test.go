package notify

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/yesviral/checkout-api/internal/checkout"
	"github.com/yesviral/checkout-api/internal/common"
	"github.com/yesviral/checkout-api/internal/order"
)

func succeededSession() checkout.PaymentSession {
	return checkout.PaymentSession{
		ID: "sess-1",
		Order: order.Order{
			Platform:  "instagram",
			Service:   "followers",
			Quantity:  1000,
			Reference: "@someuser",
			Total:     decimal.RequireFromString("19.99"),
		},
		Email:     "buyer@example.com",
		Status:    checkout.StatusSucceeded,
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewReceiptTaskCarriesDisplayFieldsOnly(t *testing.T) {
	s := succeededSession()
	s.ClientSecret = "pi_1_secret_2"

	task, err := NewReceiptTask(ReceiptPayload{
		SessionID: s.ID,
		Reference: s.Order.Reference,
		Platform:  s.Order.Platform,
		Service:   s.Order.Service,
		Quantity:  s.Order.Quantity,
		Total:     s.Order.Total.String(),
		Email:     s.Email,
	})
	require.NoError(t, err)
	require.Equal(t, TaskTypeReceiptEmail, task.Type())
	require.NotContains(t, string(task.Payload()), "secret")
	require.Contains(t, string(task.Payload()), "@someuser")
}

func TestEnqueuerSkipsWhenDisabledOrNoEmail(t *testing.T) {
	e := Enqueuer{Enabled: false, Log: zerolog.Nop()}
	require.NoError(t, e.EnqueueReceipt(context.Background(), succeededSession()))

	noEmail := succeededSession()
	noEmail.Email = ""
	e = Enqueuer{Enabled: true, Log: zerolog.Nop()}
	require.NoError(t, e.EnqueueReceipt(context.Background(), noEmail))
}

func TestHandleReceiptEmailSends(t *testing.T) {
	mail := &common.InMemoryEmail{}
	w := ReceiptWorker{Mail: mail, From: "orders@shop.example.com", Log: zerolog.Nop()}

	task, err := NewReceiptTask(ReceiptPayload{
		SessionID: "sess-1",
		Reference: "@someuser",
		Platform:  "instagram",
		Service:   "followers",
		Quantity:  1000,
		Total:     "19.99",
		Email:     "buyer@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, w.HandleReceiptEmail(context.Background(), task))
	require.Len(t, mail.Outbox, 1)
	require.Equal(t, "buyer@example.com", mail.Outbox[0].To)
	require.Contains(t, mail.Outbox[0].HTML, "@someuser")
	require.Contains(t, mail.Outbox[0].HTML, "$19.99")
	require.Contains(t, mail.Outbox[0].HTML, "orders@shop.example.com")
}

func TestHandleReceiptEmailSkipsUndecodablePayload(t *testing.T) {
	mail := &common.InMemoryEmail{}
	w := ReceiptWorker{Mail: mail, Log: zerolog.Nop()}

	err := w.HandleReceiptEmail(context.Background(), asynq.NewTask(TaskTypeReceiptEmail, []byte("{broken")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, mail.Outbox)
}
