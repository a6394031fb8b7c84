package email

import (
	"context"
	"fmt"
)

// VerificationMailer composes the confirm-your-address message on top
// of a Sender.
type VerificationMailer struct {
	Sender      Sender
	ServiceName string
}

// SendVerification sends the confirmation mail to a freshly registered
// address.
func (v *VerificationMailer) SendVerification(ctx context.Context, to, fullName string) error {
	if v.Sender == nil {
		return nil
	}
	name := fullName
	if name == "" {
		name = to
	}
	service := v.ServiceName
	if service == "" {
		service = "fedgate"
	}

	subject := fmt.Sprintf("Confirm your email for %s", service)
	text := fmt.Sprintf(
		"Hi %s,\n\nYour account on %s was created with this address. "+
			"If this was you, no action is needed. If not, reply to this mail.\n",
		name, service)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your account on <b>%s</b> was created with this address. "+
			"If this was you, no action is needed. If not, reply to this mail.</p>",
		name, service)

	return v.Sender.Send(ctx, to, subject, html, text)
}
