package main

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-tracker/pkg/mailer"
)

// attemptsHeader counts failed deliveries of a job.
const attemptsHeader = "x-attempts"

type republisher interface {
	Republish(ctx context.Context, d amqp.Delivery, headers amqp.Table) error
}

type worker struct {
	sender      mailer.Sender
	retry       republisher
	logger      *logrus.Entry
	maxAttempts int
	retryDelay  time.Duration
	sendTimeout time.Duration
}

// handle sends one queued email. Malformed jobs and permanent provider
// rejections are dropped. Transient failures are republished after a delay
// with an incremented attempt count until maxAttempts is reached.
func (w *worker) handle(ctx context.Context, msg amqp.Delivery) {
	var job mailer.EmailJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		w.logger.WithError(err).Warn("bad message")
		_ = msg.Nack(false, false)
		return
	}
	log := w.logger.WithField("to", job.To)

	subject, text, html, err := job.Resolve()
	if err != nil {
		log.WithError(err).WithField("template", job.Template).Warn("render failed")
		_ = msg.Nack(false, false)
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.sendTimeout)
	err = w.sender.Send(sendCtx, job.To, subject, text, html)
	cancel()
	if err == nil {
		_ = msg.Ack(false)
		return
	}

	attempt := attempts(msg.Headers) + 1
	log = log.WithError(err).WithField("attempt", attempt)
	if mailer.IsPermanent(err) {
		log.Error("email rejected, dropping")
		_ = msg.Nack(false, false)
		return
	}
	if attempt >= w.maxAttempts {
		log.Error("email retries exhausted, dropping")
		_ = msg.Nack(false, false)
		return
	}

	log.Warn("send failed, retrying")
	if !w.wait(ctx, attempt) {
		_ = msg.Nack(false, true)
		return
	}
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[attemptsHeader] = int32(attempt)
	if err := w.retry.Republish(context.WithoutCancel(ctx), msg, headers); err != nil {
		log.WithError(err).Warn("republish failed, requeueing")
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

// wait sleeps retryDelay times attempt and reports false when ctx ends first.
func (w *worker) wait(ctx context.Context, attempt int) bool {
	d := w.retryDelay * time.Duration(attempt)
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func attempts(h amqp.Table) int {
	switch v := h[attemptsHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
