package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/oksasatya/go-task-tracker/pkg/mailer/templates"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either the rendered Subject/Text/HTML are set, or Template and Data are
// rendered by the worker.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "task_reminder"
	Data     map[string]any `json:"data,omitempty"`
}

var ErrEmptyRecipient = errors.New("email job has no recipient")

// Resolve renders the job's template when the body was not rendered upstream.
func (j EmailJob) Resolve() (subject, text, html string, err error) {
	if j.To == "" {
		return "", "", "", ErrEmptyRecipient
	}
	if j.Template == "" || j.Subject != "" {
		return j.Subject, j.Text, j.HTML, nil
	}
	return templates.Render(j.Template, j.Data)
}

// Publisher puts a JSON message on a queue. helpers.RabbitPublisher satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueSender hands rendered emails to the email worker instead of calling
// the provider inline.
type QueueSender struct {
	pub Publisher
}

func NewQueueSender(pub Publisher) *QueueSender {
	return &QueueSender{pub: pub}
}

func (q *QueueSender) Send(ctx context.Context, to, subject, text, html string) error {
	job := EmailJob{To: to, Subject: subject, Text: text, HTML: html}
	if err := q.pub.PublishJSON(ctx, job); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}

var _ Sender = (*QueueSender)(nil)
