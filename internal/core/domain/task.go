package domain

import "time"

// TaskStatus represents where a task is in its lifecycle.
type TaskStatus string

const (
	StatusCreated    TaskStatus = "created"
	StatusToDo       TaskStatus = "to-do"
	StatusInProgress TaskStatus = "in-progress"
	StatusDone       TaskStatus = "done"
)

// Valid reports whether s is a defined status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusToDo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// TaskPriority ranks how urgent a task is.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityNormal   TaskPriority = "normal"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// Valid reports whether p is a defined priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Task is the unit of work assigned from one user to another.
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	AssignedBy  string       `json:"assignedBy"`
	AssignedTo  string       `json:"assignedTo"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     time.Time    `json:"dueDate"`
	CompletedAt *time.Time   `json:"completedAt"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// SyncCompletion recomputes CompletedAt from Status alone: a done task is
// stamped with now, anything else has no completion time. Prior values are
// not carried over, so leaving done and coming back restamps the task.
func (t *Task) SyncCompletion(now time.Time) {
	if t.Status == StatusDone {
		ts := now
		t.CompletedAt = &ts
		return
	}
	t.CompletedAt = nil
}

// ValidateDueDate rejects a due date earlier than now. It is applied when a
// task is created and deliberately not on later updates.
func ValidateDueDate(due, now time.Time) error {
	if due.Before(now) {
		return ErrDueDateInPast
	}
	return nil
}

// TaskDraft carries the caller-supplied fields for a new task. The creator is
// never part of the draft: it always comes from the authenticated principal.
type TaskDraft struct {
	Title       string
	Description string
	AssignedTo  string
	Status      TaskStatus
	Priority    TaskPriority
	DueDate     time.Time
}

// TaskPatch lists the task fields an update may touch. Nil means "leave as is".
// AssignedBy, CompletedAt and the timestamps are intentionally absent.
type TaskPatch struct {
	Title       *string
	Description *string
	AssignedTo  *string
	Status      *TaskStatus
	Priority    *TaskPriority
	DueDate     *time.Time
}

// Apply copies every set field of p onto t and validates enum values.
func (p TaskPatch) Apply(t *Task) error {
	if p.Status != nil && !p.Status.Valid() {
		return FieldError(ErrInvalidField, "status")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return FieldError(ErrInvalidField, "priority")
	}
	if p.Title != nil {
		if *p.Title == "" {
			return FieldError(ErrMissingRequiredField, "title")
		}
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.AssignedTo != nil {
		if *p.AssignedTo == "" {
			return FieldError(ErrMissingRequiredField, "assignedTo")
		}
		t.AssignedTo = *p.AssignedTo
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	return nil
}

// TaskFilter is the query predicate for listing tasks. All set fields are
// ANDed. VisibleTo, when non-empty, further restricts the result to tasks
// where assignedBy or assignedTo equals it; only the access policy sets it.
type TaskFilter struct {
	Status     TaskStatus
	StatusNot  TaskStatus
	Priority   TaskPriority
	AssignedBy string
	AssignedTo string
	DueBefore  time.Time
	DueAfter   time.Time
	VisibleTo  string
}

// Matches evaluates the filter against a single task. Stores that cannot
// push the predicate into a query use it to filter before paginating.
func (f TaskFilter) Matches(t *Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.StatusNot != "" && t.Status == f.StatusNot {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.AssignedBy != "" && t.AssignedBy != f.AssignedBy {
		return false
	}
	if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
		return false
	}
	if !f.DueBefore.IsZero() && t.DueDate.After(f.DueBefore) {
		return false
	}
	if !f.DueAfter.IsZero() && t.DueDate.Before(f.DueAfter) {
		return false
	}
	if f.VisibleTo != "" && t.AssignedBy != f.VisibleTo && t.AssignedTo != f.VisibleTo {
		return false
	}
	return true
}

// SortDirection orders list results.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sortable task keys. Anything else falls back to SortByCreatedAt.
const (
	SortByCreatedAt = "createdAt"
	SortByUpdatedAt = "updatedAt"
	SortByDueDate   = "dueDate"
	SortByPriority  = "priority"
	SortByStatus    = "status"
	SortByTitle     = "title"
)

var sortKeys = map[string]struct{}{
	SortByCreatedAt: {},
	SortByUpdatedAt: {},
	SortByDueDate:   {},
	SortByPriority:  {},
	SortByStatus:    {},
	SortByTitle:     {},
}

// TaskQuery bundles a filter with pagination and ordering.
type TaskQuery struct {
	Filter   TaskFilter
	Page     int
	PageSize int
	SortKey  string
	SortDir  SortDirection
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Normalize applies defaults and bounds: page >= 1, 1 <= pageSize <= 100, a
// known sort key and direction.
func (q TaskQuery) Normalize() TaskQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if _, ok := sortKeys[q.SortKey]; !ok {
		q.SortKey = SortByCreatedAt
	}
	if q.SortDir != SortAsc {
		q.SortDir = SortDesc
	}
	return q
}

// Skip is the number of items preceding the requested page.
func (q TaskQuery) Skip() int {
	return (q.Page - 1) * q.PageSize
}
