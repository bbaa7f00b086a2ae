package entity

import (
	"errors"
	"strings"
	"time"

	"github.com/oksasatya/go-task-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-task-tracker/pkg/validation"
)

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityModerate Priority = "Moderate"
	PriorityHigh     Priority = "High"
)

// Rank orders priorities High < Moderate < Low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityModerate:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

func (p Priority) Valid() bool { return p.Rank() < 3 }

type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

func (s Status) Valid() bool {
	return s == StatusNotStarted || s == StatusInProgress || s == StatusCompleted
}

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

func init() {
	validation.RegisterEnum("task_priority", string(PriorityLow), string(PriorityModerate), string(PriorityHigh))
	validation.RegisterEnum("task_status", string(StatusNotStarted), string(StatusInProgress), string(StatusCompleted))
}

// Task belongs to exactly one user. DueDate carries date-only semantics and is
// always midnight UTC.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	DueDate     *time.Time
	Priority    Priority
	Status      Status
	Image       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type taskRules struct {
	Title    string `json:"title" validate:"notblank,max=200"`
	Priority string `json:"priority" validate:"task_priority"`
	Status   string `json:"status" validate:"task_status"`
}

// Validate checks required and enumerated fields and reports all violations at once.
func (t *Task) Validate() error {
	fields := validation.Struct(taskRules{
		Title:    t.Title,
		Priority: string(t.Priority),
		Status:   string(t.Status),
	})
	if len(fields) == 0 {
		return nil
	}
	return apperror.NewValidation(fields)
}

// ApplyDefaults fills priority and status when they were not supplied.
func (t *Task) ApplyDefaults() {
	if t.Priority == "" {
		t.Priority = PriorityModerate
	}
	if t.Status == "" {
		t.Status = StatusNotStarted
	}
}

var errBadDate = errors.New("must be a date in YYYY-MM-DD format")

// ParseDueDate accepts YYYY-MM-DD or an RFC 3339 timestamp and keeps the
// calendar date only. An empty string yields nil.
func ParseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		d := DateOnly(t)
		return &d, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d := DateOnly(t)
		return &d, nil
	}
	return nil, errBadDate
}

// DateOnly drops the clock part of t, keeping its calendar date in t's location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDueDate renders a due date for the wire, or "" when unset.
func FormatDueDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(DateLayout)
}
