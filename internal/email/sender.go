// Package email delivers the address-confirmation mail sent after a
// registration whose provider did not vouch for the email address.
package email

import "context"

// Sender delivers one message. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// Noop discards every message. Used when email is disabled in config.
type Noop struct{}

func (Noop) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	return nil
}
