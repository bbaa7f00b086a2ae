package entity

import (
	"sort"
	"strings"
)

type SortKey string

const (
	SortNone      SortKey = ""
	SortDueDate   SortKey = "dueDate"
	SortPriority  SortKey = "priority"
	SortCreatedAt SortKey = "createdAt"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortNone, SortDueDate, SortPriority, SortCreatedAt:
		return true
	}
	return false
}

// TaskFilter narrows a user's task list. Zero fields match everything and
// non-zero fields compose with AND.
type TaskFilter struct {
	Status   Status
	Priority Priority
	Search   string
	Sort     SortKey
}

// Matches reports whether t passes the status, priority and search filters.
// Search is a case-insensitive substring match on title or description.
func (f TaskFilter) Matches(t *Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

// SortTasks orders tasks in place by key. The sort is stable so ties keep
// creation order; SortNone leaves the slice untouched.
func SortTasks(tasks []*Task, key SortKey) {
	switch key {
	case SortDueDate:
		sort.SliceStable(tasks, func(i, j int) bool {
			a, b := tasks[i].DueDate, tasks[j].DueDate
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return a.Before(*b)
			}
		})
	case SortPriority:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Priority.Rank() < tasks[j].Priority.Rank()
		})
	case SortCreatedAt:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		})
	}
}
