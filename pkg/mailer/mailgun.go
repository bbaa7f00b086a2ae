package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Sender delivers a single rendered email. html is optional.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Mailgun sends directly through the Mailgun HTTP API.
type Mailgun struct {
	client  *mg.MailgunImpl
	from    string
	Timeout time.Duration
}

func NewMailgun(domain, apiKey, from string) *Mailgun {
	return &Mailgun{client: mg.NewMailgun(domain, apiKey), from: from, Timeout: 10 * time.Second}
}

func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.from, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	if _, _, err := m.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("mailgun send to %s: %w", to, err)
	}
	return nil
}

// IsPermanent reports whether retrying err cannot succeed: a job without a
// recipient, or a 4xx from Mailgun other than timeout and throttling.
func IsPermanent(err error) bool {
	if errors.Is(err, ErrEmptyRecipient) {
		return true
	}
	var ure *mg.UnexpectedResponseError
	if !errors.As(err, &ure) {
		return false
	}
	status := ure.Actual
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return false
	}
	return status >= 400 && status < 500
}

var _ Sender = (*Mailgun)(nil)
