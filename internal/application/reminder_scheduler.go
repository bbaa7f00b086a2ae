package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/oksasatya/go-task-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
	"github.com/oksasatya/go-task-tracker/internal/domain/repository"
	"github.com/oksasatya/go-task-tracker/pkg/mailer"
	"github.com/oksasatya/go-task-tracker/pkg/mailer/templates"
)

// ErrScanInProgress is returned by RunOnce while another scan is running.
var ErrScanInProgress = errors.New("reminder scan already in progress")

type ReminderConfig struct {
	// Schedule is a standard five-field cron expression.
	Schedule    string
	HorizonDays int
	SendTimeout time.Duration
	// SendRate caps dispatches per second; zero or less means unlimited.
	SendRate float64
	Location *time.Location
	AppName  string
}

// ReminderMetrics receives scan outcomes. *metrics.Collector satisfies it.
type ReminderMetrics interface {
	ScanCompleted(sent, skipped, failed int, d time.Duration)
	ScanFailed()
}

// ScanResult summarizes one pass over the due window.
type ScanResult struct {
	Candidates int
	Sent       int
	Skipped    int
	Failed     int
}

// ReminderScheduler periodically reminds owners of open tasks whose due date
// falls within the horizon. Each (task, due date) occurrence is reminded once.
type ReminderScheduler struct {
	tasks   repository.TaskRepository
	users   repository.UserRepository
	sender  mailer.Sender
	ledger  ReminderLedger
	cfg     ReminderConfig
	limiter *rate.Limiter
	metrics ReminderMetrics
	logger  *logrus.Entry
	now     func() time.Time

	running atomic.Bool
}

// NewReminderScheduler builds the scheduler. A nil sender yields a disabled
// scheduler whose Start returns immediately.
func NewReminderScheduler(tasks repository.TaskRepository, users repository.UserRepository, sender mailer.Sender, ledger ReminderLedger, cfg ReminderConfig, logger logrus.FieldLogger) *ReminderScheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 9 * * *"
	}
	if cfg.HorizonDays < 0 {
		cfg.HorizonDays = 0
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if ledger == nil {
		ledger = NewMemoryReminderLedger()
	}
	limit := rate.Inf
	burst := 1
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
		burst = int(cfg.SendRate)
		if burst < 1 {
			burst = 1
		}
	}
	return &ReminderScheduler{
		tasks:   tasks,
		users:   users,
		sender:  sender,
		ledger:  ledger,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.WithField("component", "reminder_scheduler"),
		now:     time.Now,
	}
}

// WithMetrics attaches a metrics sink.
func (s *ReminderScheduler) WithMetrics(m ReminderMetrics) *ReminderScheduler {
	s.metrics = m
	return s
}

// Enabled reports whether a mail transport is configured.
func (s *ReminderScheduler) Enabled() bool { return s.sender != nil }

// Start runs the cron schedule until ctx is cancelled, then waits for a
// running scan to finish.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Warn("reminder scheduler disabled: no mail transport configured")
		return nil
	}

	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", s.cfg.Schedule, err)
	}

	c.Start()
	s.logger.WithFields(logrus.Fields{
		"schedule": s.cfg.Schedule,
		"horizon":  s.cfg.HorizonDays,
		"location": s.cfg.Location.String(),
	}).Info("reminder scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("reminder scheduler stopped")
	return nil
}

func (s *ReminderScheduler) tick(ctx context.Context) {
	res, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrScanInProgress):
		s.logger.Debug("previous reminder scan still running, skipping tick")
	case err != nil:
		s.logger.WithError(err).Error("reminder scan failed")
	default:
		s.logger.WithFields(logrus.Fields{
			"candidates": res.Candidates,
			"sent":       res.Sent,
			"skipped":    res.Skipped,
			"failed":     res.Failed,
		}).Info("reminder scan completed")
	}
}

// RunOnce scans the due window and dispatches reminders. Per-task failures
// are counted and do not stop the scan; a failed query aborts it.
func (s *ReminderScheduler) RunOnce(ctx context.Context) (ScanResult, error) {
	var res ScanResult
	if !s.Enabled() {
		return res, nil
	}
	if !s.running.CompareAndSwap(false, true) {
		return res, ErrScanInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	from, to := s.window()
	tasks, err := s.tasks.ListDueBetween(ctx, from, to)
	if err != nil {
		s.observeFailure()
		return res, apperror.Unavailable("list due tasks", err)
	}

	for _, t := range tasks {
		if ctx.Err() != nil {
			break
		}
		if t.DueDate == nil {
			continue
		}
		res.Candidates++
		log := s.logger.WithFields(logrus.Fields{"task_id": t.ID, "due_date": entity.FormatDueDate(t.DueDate)})

		claimed, err := s.ledger.Claim(ctx, t.ID, *t.DueDate)
		if err != nil {
			res.Failed++
			log.WithError(err).Warn("reminder ledger claim failed")
			continue
		}
		if !claimed {
			res.Skipped++
			continue
		}

		if err := s.remind(ctx, t); err != nil {
			res.Failed++
			log.WithError(err).Warn("reminder dispatch failed")
			if rerr := s.ledger.Release(context.WithoutCancel(ctx), t.ID, *t.DueDate); rerr != nil {
				log.WithError(rerr).Warn("reminder ledger release failed")
			}
			continue
		}
		res.Sent++
		log.Debug("reminder sent")
	}

	if s.metrics != nil {
		s.metrics.ScanCompleted(res.Sent, res.Skipped, res.Failed, time.Since(start))
	}
	return res, nil
}

// window returns [today, today+horizon] as calendar dates in the configured location.
func (s *ReminderScheduler) window() (time.Time, time.Time) {
	y, m, d := s.now().In(s.cfg.Location).Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 0, s.cfg.HorizonDays)
}

func (s *ReminderScheduler) remind(ctx context.Context, t *entity.Task) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	owner, err := s.users.GetByID(ctx, t.UserID)
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}

	subject, text, html, err := templates.Render(templates.TaskReminder, templates.TaskReminderData{
		AppName:     s.cfg.AppName,
		Name:        owner.Name,
		Email:       owner.Email,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     entity.FormatDueDate(t.DueDate),
		Priority:    string(t.Priority),
		Status:      string(t.Status),
	})
	if err != nil {
		return fmt.Errorf("render reminder: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()
	if err := s.sender.Send(sendCtx, owner.Email, subject, text, html); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	return nil
}

func (s *ReminderScheduler) observeFailure() {
	if s.metrics != nil {
		s.metrics.ScanFailed()
	}
}
