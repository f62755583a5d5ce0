// Package policy holds the task access rules. Every function is a pure
// decision over a principal and task data; nothing here performs I/O.
package policy

import "github.com/darkarnold/task-manager-api/internal/core/domain"

// creators lists the roles allowed to create tasks. A role added to
// domain.Role later gets no create rights until it is listed here.
var creators = map[domain.Role]struct{}{
	domain.RoleAdmin: {},
	domain.RoleUser:  {},
}

// VisibilityFilter returns the filter a principal's listing must run with.
// Admins get the requested filter unchanged; everyone else is restricted to
// tasks they assigned or were assigned.
func VisibilityFilter(p domain.Principal, requested domain.TaskFilter) domain.TaskFilter {
	if p.IsAdmin() {
		return requested
	}
	effective := requested
	effective.VisibleTo = p.ID
	return effective
}

// CanUpdate allows admins, the creator and the assignee.
func CanUpdate(p domain.Principal, t *domain.Task) bool {
	if p.IsAdmin() {
		return true
	}
	return p.ID != "" && (t.AssignedBy == p.ID || t.AssignedTo == p.ID)
}

// CanDelete allows admins and the creator. Being the assignee is not enough.
func CanDelete(p domain.Principal, t *domain.Task) bool {
	if p.IsAdmin() {
		return true
	}
	return p.ID != "" && t.AssignedBy == p.ID
}

func CanCreate(p domain.Principal) bool {
	_, ok := creators[p.Role]
	return ok
}
