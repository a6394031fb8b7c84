package email

import (
	"context"
	"strings"
	"testing"
)

type captureSender struct {
	to, subject, html, text string
}

func (c *captureSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	c.to, c.subject, c.html, c.text = to, subject, htmlBody, textBody
	return nil
}

func TestSendVerification(t *testing.T) {
	sender := &captureSender{}
	m := &VerificationMailer{Sender: sender, ServiceName: "fedgate"}

	if err := m.SendVerification(context.Background(), "new@example.com", "Ada"); err != nil {
		t.Fatal(err)
	}
	if sender.to != "new@example.com" {
		t.Fatalf("to = %q", sender.to)
	}
	if !strings.Contains(sender.subject, "fedgate") {
		t.Fatalf("subject = %q", sender.subject)
	}
	if !strings.Contains(sender.text, "Ada") || !strings.Contains(sender.html, "Ada") {
		t.Fatal("both bodies must address the recipient by name")
	}
}

func TestSendVerification_FallsBackToAddress(t *testing.T) {
	sender := &captureSender{}
	m := &VerificationMailer{Sender: sender}

	if err := m.SendVerification(context.Background(), "no-name@example.com", ""); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sender.text, "no-name@example.com") {
		t.Fatalf("text = %q", sender.text)
	}
}

func TestNoopSenderDiscards(t *testing.T) {
	m := &VerificationMailer{Sender: Noop{}, ServiceName: "fedgate"}
	if err := m.SendVerification(context.Background(), "a@example.com", "A"); err != nil {
		t.Fatal(err)
	}
}
