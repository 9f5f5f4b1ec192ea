package mailer

import (
	"fmt"

	"github.com/dmitrymomot/billingkit/internal/domain"
)

// Subjects for the two notices the billing core sends.
const (
	SubjectPaymentReminder = "Payment Reminder Notification"
	SubjectPaymentFailed   = "Payment Failed Notification"
)

const signature = "Best regards,\nSubscription Management Team"

// PaymentReminder builds the expiry reminder sent when a subscription is
// about to run out.
func PaymentReminder(to string, memberName string, plan domain.PlanKind) Message {
	body := fmt.Sprintf(
		"Dear %s,\n\nThis is a friendly reminder that your payment for the subscription plan %q is due soon. Please ensure your payment is completed to avoid any interruptions to your services.\n\n%s",
		memberName, plan, signature,
	)
	return Message{To: to, Subject: SubjectPaymentReminder, Body: body, Tag: "payment-reminder"}
}

// PaymentFailure builds the notice sent after a charge attempt fails.
func PaymentFailure(to string, memberName string, amount domain.Money) Message {
	body := fmt.Sprintf(
		"Dear %s,\n\nWe noticed that your payment of $%s failed. Please update your payment information to avoid interruption to your subscription.\n\n%s",
		memberName, amount.Display(), signature,
	)
	return Message{To: to, Subject: SubjectPaymentFailed, Body: body, Tag: "payment-failed"}
}
