package mailer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	mg "github.com/mailgun/mailgun-go/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-task-tracker/pkg/mailer/templates"
)

type fakePublisher struct {
	jobs []any
	err  error
}

func (f *fakePublisher) PublishJSON(_ context.Context, body any) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, body)
	return nil
}

func TestQueueSenderPublishesRenderedJob(t *testing.T) {
	pub := &fakePublisher{}
	s := NewQueueSender(pub)

	require.NoError(t, s.Send(context.Background(), "a@example.com", "subj", "text", "<p>html</p>"))
	require.Len(t, pub.jobs, 1)
	assert.Equal(t, EmailJob{To: "a@example.com", Subject: "subj", Text: "text", HTML: "<p>html</p>"}, pub.jobs[0])
}

func TestQueueSenderWrapsPublishError(t *testing.T) {
	boom := errors.New("channel closed")
	s := NewQueueSender(&fakePublisher{err: boom})

	err := s.Send(context.Background(), "a@example.com", "s", "t", "")
	assert.ErrorIs(t, err, boom)
}

func TestEmailJobResolve(t *testing.T) {
	_, _, _, err := EmailJob{Subject: "x"}.Resolve()
	assert.ErrorIs(t, err, ErrEmptyRecipient)

	subject, text, _, err := EmailJob{To: "a@example.com", Subject: "s", Text: "t"}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "s", subject)
	assert.Equal(t, "t", text)

	data := templates.TaskReminderData{Title: "Ship", DueDate: "2025-05-05"}
	subject, text, html, err := EmailJob{To: "a@example.com", Template: templates.TaskReminder, Data: data.ToMap()}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "Todo Reminder: Ship", subject)
	assert.Contains(t, text, "2025-05-05")
	assert.NotEmpty(t, html)
}

func TestIsPermanent(t *testing.T) {
	reject := func(status int) error {
		return fmt.Errorf("mailgun send to a@example.com: %w", &mg.UnexpectedResponseError{Actual: status})
	}
	assert.True(t, IsPermanent(ErrEmptyRecipient))
	assert.True(t, IsPermanent(reject(400)))
	assert.True(t, IsPermanent(reject(401)))
	assert.False(t, IsPermanent(reject(429)))
	assert.False(t, IsPermanent(reject(408)))
	assert.False(t, IsPermanent(reject(502)))
	assert.False(t, IsPermanent(errors.New("dial tcp: connection refused")))
}
