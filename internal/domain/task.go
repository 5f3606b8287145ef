package domain

import "time"

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank orders priorities by severity, most severe first. Unknown values sort
// after low.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

type Cycle string

const (
	CycleNone    Cycle = "none"
	CycleDaily   Cycle = "daily"
	CycleWeekly  Cycle = "weekly"
	CycleMonthly Cycle = "monthly"
)

func (c Cycle) Recurring() bool {
	return c != "" && c != CycleNone
}

type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskPartial TaskStatus = "partial"
	TaskDone    TaskStatus = "done"
)

type Task struct {
	ID        string     `json:"id"`
	Text      string     `json:"text" validate:"required"`
	Assignee  string     `json:"assignee"`
	Priority  Priority   `json:"priority" validate:"oneof=critical high medium low"`
	Cycle     Cycle      `json:"cycle" validate:"oneof=none daily weekly monthly"`
	Status    TaskStatus `json:"status" validate:"oneof=pending partial done"`
	Branch    string     `json:"branch" validate:"required"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	LastDone  *time.Time `json:"lastDone,omitempty"`
}

func (t *Task) RecordID() string       { return t.ID }
func (t *Task) Collection() Collection { return CollectionTasks }
func (t *Task) Created() time.Time     { return t.CreatedAt }
func (t *Task) BranchTag() string      { return t.Branch }

func (t *Task) normalize() {
	if t.Cycle == "" {
		t.Cycle = CycleNone
	}
	if t.Status == "" {
		t.Status = TaskPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
}

// IsDoneToday reports whether a recurring task was completed on the calendar
// day of now in loc. It is derived at evaluation time and never stored.
func IsDoneToday(lastDone *time.Time, now time.Time, loc *time.Location) bool {
	if lastDone == nil || lastDone.IsZero() {
		return false
	}
	if loc == nil {
		loc = time.Local
	}
	ly, lm, ld := lastDone.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	return ly == ny && lm == nm && ld == nd
}

// DisplayStatus is the status shown for t at now. Recurring tasks are done
// only on the day of their last completion; a stale done status reads as
// pending. Non-recurring tasks show the persisted status.
func (t *Task) DisplayStatus(now time.Time, loc *time.Location) TaskStatus {
	if !t.Cycle.Recurring() {
		return t.Status
	}
	if IsDoneToday(t.LastDone, now, loc) {
		return TaskDone
	}
	if t.Status == TaskPartial {
		return TaskPartial
	}
	return TaskPending
}

type CreateTaskRequest struct {
	Text     string   `json:"text" validate:"required"`
	Assignee string   `json:"assignee"`
	Priority Priority `json:"priority" validate:"required,oneof=critical high medium low"`
	Cycle    Cycle    `json:"cycle" validate:"omitempty,oneof=none daily weekly monthly"`
	Branch   string   `json:"branch" validate:"required"`
}

type UpdateTaskRequest struct {
	Text     *string   `json:"text" validate:"omitempty,min=1"`
	Assignee *string   `json:"assignee"`
	Priority *Priority `json:"priority" validate:"omitempty,oneof=critical high medium low"`
	Cycle    *Cycle    `json:"cycle" validate:"omitempty,oneof=none daily weekly monthly"`
}

// TaskView is a task as rendered: the persisted record plus its derived
// display status.
type TaskView struct {
	*Task
	Display   TaskStatus `json:"display"`
	DoneToday bool       `json:"doneToday"`
}
