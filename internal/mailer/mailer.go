// Package mailer is the outbound notification port: a narrow send contract
// plus a Postmark-backed implementation and a file-based sender for local
// development. Concrete transport failures surface as ErrFailedToSend and
// are never allowed to unwind the billing operation that triggered them.
package mailer

import (
	"context"
	"fmt"
	"regexp"
)

// Sender dispatches a single email. Implementations must be safe for
// concurrent use; the payment service and the reminder sweep share one
// instance constructed at startup.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string // plain text
	Tag     string // optional, for provider-side analytics
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks the message has a deliverable recipient and content.
func (m Message) Validate() error {
	if !emailRegex.MatchString(m.To) {
		return fmt.Errorf("%w: recipient %q is not a valid email address", ErrInvalidMessage, m.To)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if m.Body == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}
