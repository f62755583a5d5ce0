package handler

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/darkarnold/task-manager-api/internal/core/domain"
	"github.com/darkarnold/task-manager-api/internal/core/ports"
)

// dateLayouts are tried in order for due dates in bodies and query strings.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// dueDate accepts a full timestamp or a bare calendar date.
type dueDate struct {
	time.Time
}

func (d *dueDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return domain.FieldError(domain.ErrInvalidField, "dueDate")
	}
	t, ok := parseDate(strings.TrimSpace(s))
	if !ok {
		return domain.FieldError(domain.ErrInvalidField, "dueDate")
	}
	d.Time = t
	return nil
}

// createTaskRequest has no assignedBy: the creator is always the caller.
type createTaskRequest struct {
	Title       string  `json:"title"       validate:"required"`
	Description string  `json:"description"`
	AssignedTo  string  `json:"assignedTo"  validate:"required"`
	Status      string  `json:"status"      validate:"omitempty,oneof=created to-do in-progress done"`
	Priority    string  `json:"priority"    validate:"omitempty,oneof=low normal medium high critical"`
	DueDate     dueDate `json:"dueDate"`
}

func (r createTaskRequest) toDraft() domain.TaskDraft {
	return domain.TaskDraft{
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  r.AssignedTo,
		Status:      domain.TaskStatus(r.Status),
		Priority:    domain.TaskPriority(r.Priority),
		DueDate:     r.DueDate.Time,
	}
}

// updateTaskRequest leaves absent fields untouched. assignedBy and
// completedAt are not accepted.
type updateTaskRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	AssignedTo  *string  `json:"assignedTo"`
	Status      *string  `json:"status"`
	Priority    *string  `json:"priority"`
	DueDate     *dueDate `json:"dueDate"`
}

func (r updateTaskRequest) toPatch() domain.TaskPatch {
	patch := domain.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  r.AssignedTo,
	}
	if r.Status != nil {
		s := domain.TaskStatus(*r.Status)
		patch.Status = &s
	}
	if r.Priority != nil {
		p := domain.TaskPriority(*r.Priority)
		patch.Priority = &p
	}
	if r.DueDate != nil {
		d := r.DueDate.Time
		patch.DueDate = &d
	}
	return patch
}

type taskResponse struct {
	Success bool         `json:"success"`
	Task    *domain.Task `json:"task"`
}

type taskDataResponse struct {
	Success bool         `json:"success"`
	Data    *domain.Task `json:"data"`
}

type pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalTasks  int64 `json:"totalTasks"`
	Limit       int   `json:"limit"`
}

type listTasksResponse struct {
	Success    bool           `json:"success"`
	Tasks      []*domain.Task `json:"tasks"`
	Pagination pagination     `json:"pagination"`
}

func toListResponse(r *ports.ListTasksResult) listTasksResponse {
	items := r.Items
	if items == nil {
		items = []*domain.Task{}
	}
	return listTasksResponse{
		Success: true,
		Tasks:   items,
		Pagination: pagination{
			CurrentPage: r.Page,
			TotalPages:  r.TotalPages,
			TotalTasks:  r.Total,
			Limit:       r.Limit,
		},
	}
}

// parseTaskQuery reads filter, paging and sort parameters. Paging and sort
// values are only parsed here; bounds are applied by TaskQuery.Normalize.
func parseTaskQuery(c echo.Context) (domain.TaskQuery, error) {
	var q domain.TaskQuery

	if v := c.QueryParam("status"); v != "" {
		s := domain.TaskStatus(v)
		if !s.Valid() {
			return q, domain.FieldError(domain.ErrInvalidField, "status")
		}
		q.Filter.Status = s
	}
	if v := c.QueryParam("priority"); v != "" {
		p := domain.TaskPriority(v)
		if !p.Valid() {
			return q, domain.FieldError(domain.ErrInvalidField, "priority")
		}
		q.Filter.Priority = p
	}
	q.Filter.AssignedTo = c.QueryParam("assignedTo")
	q.Filter.AssignedBy = c.QueryParam("assignedBy")

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{
		{"dueBefore", &q.Filter.DueBefore},
		{"dueAfter", &q.Filter.DueAfter},
	} {
		v := c.QueryParam(p.name)
		if v == "" {
			continue
		}
		t, ok := parseDate(v)
		if !ok {
			return q, domain.FieldError(domain.ErrInvalidField, p.name)
		}
		*p.dst = t
	}

	var err error
	if q.Page, err = intParam(c, "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = intParam(c, "limit"); err != nil {
		return q, err
	}
	q.SortKey = c.QueryParam("sortBy")
	q.SortDir = domain.SortDirection(strings.ToLower(c.QueryParam("sortOrder")))
	return q, nil
}

func intParam(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.FieldError(domain.ErrInvalidField, name)
	}
	return n, nil
}
