package model

import "time"

type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date,omitzero"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasDueDate reports whether the task carries a due date.
func (t Task) HasDueDate() bool {
	return !t.DueDate.IsZero()
}

// TaskInput holds the caller-editable fields of a task.
type TaskInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date,omitzero"`
}

type Snapshot struct {
	Version uint64    `json:"version"`
	Tasks   []Task    `json:"tasks"`
	TakenAt time.Time `json:"taken_at"`
}

// DueDateFromMillis converts stored epoch milliseconds into a due date.
// Non-positive values mean "unset".
func DueDateFromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func DueDateMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}
