package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-task-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
	"github.com/oksasatya/go-task-tracker/internal/domain/repository"
)

type sentMail struct {
	to      string
	subject string
	text    string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMail
	failFor map[string]error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, to, subject, text, _ string) error {
	if f.block != nil {
		f.entered <- struct{}{}
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[to]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, text: text})
	return nil
}

func (f *fakeSender) mails() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

type fakeMetrics struct {
	completed int
	failed    int
	sent      int
}

func (m *fakeMetrics) ScanCompleted(sent, _, _ int, _ time.Duration) {
	m.completed++
	m.sent += sent
}

func (m *fakeMetrics) ScanFailed() { m.failed++ }

type brokenTasks struct {
	repository.TaskRepository
}

func (brokenTasks) ListDueBetween(context.Context, time.Time, time.Time) ([]*entity.Task, error) {
	return nil, errors.New("connection refused")
}

var scanNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type reminderFixture struct {
	*fixture
	sender *fakeSender
	sched  *ReminderScheduler
}

func newReminderFixture(t *testing.T, cfg ReminderConfig) *reminderFixture {
	t.Helper()
	f := newFixture(t)
	sender := &fakeSender{}
	sched := NewReminderScheduler(f.tasks, f.users, sender, NewMemoryReminderLedger(), cfg, nullLogger())
	sched.now = func() time.Time { return scanNow }
	return &reminderFixture{fixture: f, sender: sender, sched: sched}
}

func (rf *reminderFixture) user(t *testing.T, email string) *entity.User {
	t.Helper()
	u := &entity.User{Email: email, Name: "Owner"}
	require.NoError(t, rf.users.Create(context.Background(), u))
	return u
}

func (rf *reminderFixture) task(t *testing.T, owner, title, due string, status entity.Status) *entity.Task {
	t.Helper()
	d, err := entity.ParseDueDate(due)
	require.NoError(t, err)
	task := &entity.Task{UserID: owner, Title: title, DueDate: d, Status: status, Priority: entity.PriorityHigh}
	require.NoError(t, rf.tasks.Create(context.Background(), task))
	return task
}

func TestRunOnceRemindsDueTomorrowExactlyOnce(t *testing.T) {
	rf := newReminderFixture(t, ReminderConfig{HorizonDays: 1, AppName: "Task Tracker"})
	owner := rf.user(t, "owner@example.com")
	rf.task(t, owner.ID, "Pay rent", "2025-03-02", entity.StatusNotStarted)
	rf.task(t, owner.ID, "Already done", "2025-03-02", entity.StatusCompleted)
	rf.task(t, owner.ID, "Later", "2025-03-04", entity.StatusNotStarted)
	rf.task(t, owner.ID, "Overdue", "2025-02-28", entity.StatusInProgress)
	rf.task(t, owner.ID, "Someday", "", entity.StatusNotStarted)
	ctx := context.Background()

	res, err := rf.sched.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Candidates: 1, Sent: 1}, res)

	mails := rf.sender.mails()
	require.Len(t, mails, 1)
	assert.Equal(t, "owner@example.com", mails[0].to)
	assert.Equal(t, "Todo Reminder: Pay rent", mails[0].subject)
	assert.Contains(t, mails[0].text, "2025-03-02")

	res, err = rf.sched.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Candidates: 1, Skipped: 1}, res)
	assert.Len(t, rf.sender.mails(), 1)
}

func TestRunOnceIncludesToday(t *testing.T) {
	rf := newReminderFixture(t, ReminderConfig{HorizonDays: 1})
	owner := rf.user(t, "owner@example.com")
	rf.task(t, owner.ID, "Today", "2025-03-01", entity.StatusInProgress)

	res, err := rf.sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
}

func TestRunOnceNewDueDateIsNewOccurrence(t *testing.T) {
	rf := newReminderFixture(t, ReminderConfig{HorizonDays: 1})
	owner := rf.user(t, "owner@example.com")
	task := rf.task(t, owner.ID, "Moving target", "2025-03-02", entity.StatusNotStarted)
	ctx := context.Background()

	_, err := rf.sched.RunOnce(ctx)
	require.NoError(t, err)

	task.DueDate, _ = entity.ParseDueDate("2025-03-01")
	require.NoError(t, rf.tasks.Update(ctx, task))

	res, err := rf.sched.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Len(t, rf.sender.mails(), 2)
}

func TestRunOnceUsesSchedulerLocation(t *testing.T) {
	ahead := time.FixedZone("UTC+14", 14*60*60)
	rf := newReminderFixture(t, ReminderConfig{HorizonDays: 0, Location: ahead})
	rf.sched.now = func() time.Time { return time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC) }
	owner := rf.user(t, "owner@example.com")
	rf.task(t, owner.ID, "Local today", "2025-03-02", entity.StatusNotStarted)
	rf.task(t, owner.ID, "Local yesterday", "2025-03-01", entity.StatusNotStarted)

	_, err := rf.sched.RunOnce(context.Background())
	require.NoError(t, err)

	mails := rf.sender.mails()
	require.Len(t, mails, 1)
	assert.Equal(t, "Todo Reminder: Local today", mails[0].subject)
}

func TestRunOnceIsolatesFailuresAndRetriesThem(t *testing.T) {
	rf := newReminderFixture(t, ReminderConfig{HorizonDays: 1})
	ok := rf.user(t, "ok@example.com")
	bad := rf.user(t, "bad@example.com")
	rf.task(t, bad.ID, "Bounce", "2025-03-02", entity.StatusNotStarted)
	rf.task(t, ok.ID, "Deliver", "2025-03-02", entity.StatusNotStarted)
	rf.task(t, "ghost-user", "Orphan", "2025-03-02", entity.StatusNotStarted)
	rf.sender.failFor = map[string]error{"bad@example.com": errors.New("mailbox unavailable")}
	ctx := context.Background()

	res, err := rf.sched.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Candidates: 3, Sent: 1, Failed: 2}, res)

	rf.sender.mu.Lock()
	rf.sender.failFor = nil
	rf.sender.mu.Unlock()

	res, err = rf.sched.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Candidates: 3, Sent: 1, Skipped: 1, Failed: 1}, res)
	assert.Len(t, rf.sender.mails(), 2)
}

func TestRunOnceQueryFailureAbortsCycle(t *testing.T) {
	rf := newReminderFixture(t, ReminderConfig{})
	m := &fakeMetrics{}
	sched := NewReminderScheduler(brokenTasks{rf.tasks}, rf.users, rf.sender, nil, ReminderConfig{}, nullLogger()).WithMetrics(m)

	_, err := sched.RunOnce(context.Background())
	assert.ErrorIs(t, err, apperror.ErrDependencyUnavailable)
	assert.Equal(t, 1, m.failed)
	assert.Equal(t, 0, m.completed)
	assert.Empty(t, rf.sender.mails())
}

func TestRunOnceReportsMetrics(t *testing.T) {
	rf := newReminderFixture(t, ReminderConfig{HorizonDays: 1})
	m := &fakeMetrics{}
	rf.sched.WithMetrics(m)
	owner := rf.user(t, "owner@example.com")
	rf.task(t, owner.ID, "Pay rent", "2025-03-02", entity.StatusNotStarted)

	_, err := rf.sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, m.completed)
	assert.Equal(t, 1, m.sent)
}

func TestRunOnceRejectsOverlappingScan(t *testing.T) {
	rf := newReminderFixture(t, ReminderConfig{HorizonDays: 1})
	rf.sender.block = make(chan struct{})
	rf.sender.entered = make(chan struct{}, 1)
	owner := rf.user(t, "owner@example.com")
	rf.task(t, owner.ID, "Slow", "2025-03-02", entity.StatusNotStarted)
	ctx := context.Background()

	done := make(chan ScanResult)
	go func() {
		res, _ := rf.sched.RunOnce(ctx)
		done <- res
	}()
	<-rf.sender.entered

	_, err := rf.sched.RunOnce(ctx)
	assert.ErrorIs(t, err, ErrScanInProgress)

	close(rf.sender.block)
	assert.Equal(t, 1, (<-done).Sent)

	_, err = rf.sched.RunOnce(ctx)
	assert.NoError(t, err, "guard is released after the scan")
}

func TestDisabledSchedulerIsNoop(t *testing.T) {
	f := newFixture(t)
	sched := NewReminderScheduler(f.tasks, f.users, nil, nil, ReminderConfig{}, nullLogger())
	assert.False(t, sched.Enabled())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.NoError(t, sched.Start(ctx))

	res, err := sched.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{}, res)
}

func TestStartStopsOnCancel(t *testing.T) {
	rf := newReminderFixture(t, ReminderConfig{Schedule: "0 9 * * *"})
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- rf.sched.Start(ctx) }()
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	rf := newReminderFixture(t, ReminderConfig{Schedule: "every now and then"})

	err := rf.sched.Start(context.Background())
	assert.Error(t, err)
}
