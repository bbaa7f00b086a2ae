package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-task-tracker/pkg/mailer"
)

type ackRecorder struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.acked++
	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

type stubSender struct {
	err   error
	calls int
}

func (s *stubSender) Send(context.Context, string, string, string, string) error {
	s.calls++
	return s.err
}

type stubRepublisher struct {
	err     error
	headers []amqp.Table
}

func (r *stubRepublisher) Republish(_ context.Context, _ amqp.Delivery, headers amqp.Table) error {
	if r.err != nil {
		return r.err
	}
	r.headers = append(r.headers, headers)
	return nil
}

func newWorker(sender mailer.Sender, retry republisher) *worker {
	logger, _ := test.NewNullLogger()
	return &worker{
		sender:      sender,
		retry:       retry,
		logger:      logger.WithField("component", "email_worker"),
		maxAttempts: 3,
		sendTimeout: time.Second,
	}
}

func delivery(t *testing.T, ack *ackRecorder, headers amqp.Table) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(mailer.EmailJob{To: "ada@example.com", Subject: "Hi", Text: "hello"})
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body, Headers: headers, ContentType: "application/json"}
}

func TestHandleAcksSentEmail(t *testing.T) {
	ack := &ackRecorder{}
	sender := &stubSender{}
	newWorker(sender, &stubRepublisher{}).handle(context.Background(), delivery(t, ack, nil))

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, 1, ack.acked)
	assert.Zero(t, ack.nacked)
}

func TestHandleDropsMalformedJob(t *testing.T) {
	ack := &ackRecorder{}
	sender := &stubSender{}
	newWorker(sender, &stubRepublisher{}).handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{")})

	assert.Zero(t, sender.calls)
	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestHandleDropsPermanentRejection(t *testing.T) {
	ack := &ackRecorder{}
	retry := &stubRepublisher{}
	sender := &stubSender{err: fmt.Errorf("mailgun send: %w", &mg.UnexpectedResponseError{Actual: 400})}
	newWorker(sender, retry).handle(context.Background(), delivery(t, ack, nil))

	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeue)
	assert.Empty(t, retry.headers)
}

func TestHandleRetriesTransientFailureWithAttemptCount(t *testing.T) {
	ack := &ackRecorder{}
	retry := &stubRepublisher{}
	w := newWorker(&stubSender{err: errors.New("connection reset")}, retry)

	w.handle(context.Background(), delivery(t, ack, amqp.Table{"trace": "abc"}))
	require.Len(t, retry.headers, 1)
	assert.Equal(t, int32(1), retry.headers[0][attemptsHeader])
	assert.Equal(t, "abc", retry.headers[0]["trace"])
	assert.Equal(t, 1, ack.acked)
	assert.Zero(t, ack.nacked)

	w.handle(context.Background(), delivery(t, ack, retry.headers[0]))
	require.Len(t, retry.headers, 2)
	assert.Equal(t, int32(2), retry.headers[1][attemptsHeader])
}

func TestHandleStopsAfterMaxAttempts(t *testing.T) {
	ack := &ackRecorder{}
	retry := &stubRepublisher{}
	newWorker(&stubSender{err: errors.New("connection reset")}, retry).
		handle(context.Background(), delivery(t, ack, amqp.Table{attemptsHeader: int32(2)}))

	assert.Empty(t, retry.headers)
	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestHandleRequeuesWhenRepublishFails(t *testing.T) {
	ack := &ackRecorder{}
	newWorker(&stubSender{err: errors.New("timeout")}, &stubRepublisher{err: errors.New("channel closed")}).
		handle(context.Background(), delivery(t, ack, nil))

	assert.Zero(t, ack.acked)
	assert.Equal(t, 1, ack.nacked)
	assert.True(t, ack.requeue)
}

func TestHandleWaitsBeforeRetryAndStopsOnShutdown(t *testing.T) {
	ack := &ackRecorder{}
	retry := &stubRepublisher{}
	w := newWorker(&stubSender{err: errors.New("timeout")}, retry)
	w.retryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	w.handle(ctx, delivery(t, ack, nil))

	assert.Empty(t, retry.headers)
	assert.Equal(t, 1, ack.nacked)
	assert.True(t, ack.requeue)
}
