package mailer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/internal/domain"
	"github.com/dmitrymomot/billingkit/internal/mailer"
)

func TestMessageValidate(t *testing.T) {
	t.Parallel()

	valid := mailer.Message{To: "john@example.com", Subject: "Hello", Body: "Hi"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name string
		msg  mailer.Message
	}{
		{"bad recipient", mailer.Message{To: "nope", Subject: "Hello", Body: "Hi"}},
		{"empty subject", mailer.Message{To: "john@example.com", Body: "Hi"}},
		{"empty body", mailer.Message{To: "john@example.com", Subject: "Hello"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, tc.msg.Validate(), mailer.ErrInvalidMessage)
		})
	}
}

func TestTemplates(t *testing.T) {
	t.Parallel()

	t.Run("payment reminder", func(t *testing.T) {
		t.Parallel()

		msg := mailer.PaymentReminder("john@example.com", "John Doe", domain.PlanMonthly)
		assert.Equal(t, "Payment Reminder Notification", msg.Subject)
		assert.Equal(t, "john@example.com", msg.To)
		assert.Contains(t, msg.Body, "Dear John Doe,")
		assert.Contains(t, msg.Body, `"Monthly"`)
		assert.Contains(t, msg.Body, "Subscription Management Team")
		require.NoError(t, msg.Validate())
	})

	t.Run("payment failure", func(t *testing.T) {
		t.Parallel()

		msg := mailer.PaymentFailure("john@example.com", "John Doe", domain.Money{Amount: 4999, Currency: "usd"})
		assert.Equal(t, "Payment Failed Notification", msg.Subject)
		assert.Contains(t, msg.Body, "$49.99")
		assert.Contains(t, msg.Body, "update your payment information")
		require.NoError(t, msg.Validate())
	})
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sender := mailer.NewDevSender(filepath.Join(dir, "emails"))

	msg := mailer.PaymentReminder("john@example.com", "John Doe", domain.PlanAnnually)
	require.NoError(t, sender.Send(context.Background(), msg))

	entries, err := os.ReadDir(filepath.Join(dir, "emails"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, err := os.ReadFile(filepath.Join(dir, "emails", entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), "To: john@example.com")
	assert.Contains(t, string(content), "Subject: Payment Reminder Notification")
}

func TestNewPostmarkSender(t *testing.T) {
	t.Parallel()

	t.Run("requires tokens and sender address", func(t *testing.T) {
		t.Parallel()

		_, err := mailer.NewPostmarkSender(mailer.Config{SenderEmail: "billing@example.com"})
		require.ErrorIs(t, err, mailer.ErrInvalidConfig)

		_, err = mailer.NewPostmarkSender(mailer.Config{
			PostmarkServerToken:  "server",
			PostmarkAccountToken: "account",
			SenderEmail:          "not-an-email",
		})
		require.ErrorIs(t, err, mailer.ErrInvalidConfig)
	})

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()

		sender, err := mailer.NewPostmarkSender(mailer.Config{
			PostmarkServerToken:  "server",
			PostmarkAccountToken: "account",
			SenderEmail:          "billing@example.com",
		})
		require.NoError(t, err)
		require.NotNil(t, sender)
	})
}
