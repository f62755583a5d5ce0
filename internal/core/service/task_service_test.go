package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/darkarnold/task-manager-api/internal/core/domain"
)

var (
	userA = domain.Principal{ID: "user-a", Role: domain.RoleUser}
	userB = domain.Principal{ID: "user-b", Role: domain.RoleUser}
	userC = domain.Principal{ID: "user-c", Role: domain.RoleUser}
	admin = domain.Principal{ID: "admin", Role: domain.RoleAdmin}
)

func newTaskSvc() (*TaskService, *stubTaskRepo, *fakeClock) {
	svc, repo, _, clock := newTaskSvcWithUsers()
	return svc, repo, clock
}

// newTaskSvcWithUsers registers every test principal so they can be assignees.
func newTaskSvcWithUsers() (*TaskService, *stubTaskRepo, *stubUserRepo, *fakeClock) {
	repo := newStubTaskRepo()
	users := newStubUserRepo()
	for _, p := range []domain.Principal{userA, userB, userC, admin} {
		_, _ = users.Create(context.Background(), &domain.User{ID: p.ID, Email: p.ID + "@example.com", Role: p.Role})
	}
	clock := newFakeClock()
	return NewTaskService(repo, users, clock, zerolog.Nop()), repo, users, clock
}

func draftFor(assignee string, clock *fakeClock) domain.TaskDraft {
	return domain.TaskDraft{
		Title:      "Write report",
		AssignedTo: assignee,
		DueDate:    clock.Now().Add(24 * time.Hour),
	}
}

func ptr[T any](v T) *T { return &v }

func TestTaskService_Create_SetsCreatorFromPrincipal(t *testing.T) {
	svc, _, clock := newTaskSvc()

	task, err := svc.Create(context.Background(), userA, draftFor(userB.ID, clock))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if task.AssignedBy != userA.ID {
		t.Fatalf("expected assignedBy %s, got %s", userA.ID, task.AssignedBy)
	}
	if task.Status != domain.StatusCreated || task.Priority != domain.PriorityLow {
		t.Fatalf("unexpected defaults: %s / %s", task.Status, task.Priority)
	}
	if task.CompletedAt != nil {
		t.Fatalf("expected nil completedAt")
	}
}

func TestTaskService_Create_DueDateInPast(t *testing.T) {
	svc, _, clock := newTaskSvc()
	draft := draftFor(userB.ID, clock)
	draft.DueDate = clock.Now().Add(-time.Minute)

	_, err := svc.Create(context.Background(), userA, draft)
	if !errors.Is(err, domain.ErrDueDateInPast) {
		t.Fatalf("expected ErrDueDateInPast, got %v", err)
	}
}

func TestTaskService_Create_DueDateNowAccepted(t *testing.T) {
	svc, _, clock := newTaskSvc()
	draft := draftFor(userB.ID, clock)
	draft.DueDate = clock.Now()

	if _, err := svc.Create(context.Background(), userA, draft); err != nil {
		t.Fatalf("expected due date equal to now to be accepted, got %v", err)
	}
}

func TestTaskService_Create_UnknownRoleForbidden(t *testing.T) {
	svc, _, clock := newTaskSvc()

	_, err := svc.Create(context.Background(), domain.Principal{ID: "x", Role: "guest"}, draftFor(userB.ID, clock))
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestTaskService_Create_DoneStampsCompletion(t *testing.T) {
	svc, _, clock := newTaskSvc()
	draft := draftFor(userB.ID, clock)
	draft.Status = domain.StatusDone

	task, err := svc.Create(context.Background(), userA, draft)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(clock.Now()) {
		t.Fatalf("expected completedAt = now, got %v", task.CompletedAt)
	}
}

// A creates T for B; A updates priority; B completes it; B cannot delete;
// C can neither update nor delete; A deletes.
func TestTaskService_OwnershipScenario(t *testing.T) {
	svc, _, clock := newTaskSvc()
	ctx := context.Background()

	task, err := svc.Create(ctx, userA, draftFor(userB.ID, clock))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, userA, task.ID, domain.TaskPatch{Priority: ptr(domain.PriorityHigh)})
	if err != nil {
		t.Fatalf("creator update: %v", err)
	}
	if updated.Priority != domain.PriorityHigh {
		t.Fatalf("expected priority high, got %s", updated.Priority)
	}

	updated, err = svc.Update(ctx, userB, task.ID, domain.TaskPatch{Status: ptr(domain.StatusDone)})
	if err != nil {
		t.Fatalf("assignee update: %v", err)
	}
	if updated.CompletedAt == nil {
		t.Fatalf("expected completedAt after done")
	}

	if err := svc.Delete(ctx, userB, task.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("assignee delete: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Update(ctx, userC, task.ID, domain.TaskPatch{Title: ptr("hijack")}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("outsider update: expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, userC, task.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("outsider delete: expected ErrForbidden, got %v", err)
	}

	if err := svc.Delete(ctx, userA, task.ID); err != nil {
		t.Fatalf("creator delete: %v", err)
	}
	if err := svc.Delete(ctx, userA, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound after delete, got %v", err)
	}
}

func TestTaskService_AdminMayMutateAnyTask(t *testing.T) {
	svc, _, clock := newTaskSvc()
	ctx := context.Background()
	task, _ := svc.Create(ctx, userA, draftFor(userB.ID, clock))

	if _, err := svc.Update(ctx, admin, task.ID, domain.TaskPatch{Title: ptr("renamed")}); err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if err := svc.Delete(ctx, admin, task.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestTaskService_Update_CompletionFollowsStatus(t *testing.T) {
	svc, _, clock := newTaskSvc()
	ctx := context.Background()
	task, _ := svc.Create(ctx, userA, draftFor(userB.ID, clock))

	done, _ := svc.Update(ctx, userB, task.ID, domain.TaskPatch{Status: ptr(domain.StatusDone)})
	firstCompletion := *done.CompletedAt

	clock.Advance(time.Hour)
	reopened, err := svc.Update(ctx, userB, task.ID, domain.TaskPatch{Status: ptr(domain.StatusInProgress)})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.CompletedAt != nil {
		t.Fatalf("expected completedAt cleared on reopen")
	}

	clock.Advance(time.Hour)
	again, _ := svc.Update(ctx, userB, task.ID, domain.TaskPatch{Status: ptr(domain.StatusDone)})
	if again.CompletedAt == nil || !again.CompletedAt.After(firstCompletion) {
		t.Fatalf("expected completedAt restamped, got %v (first %v)", again.CompletedAt, firstCompletion)
	}

	// An unrelated patch on a done task restamps too.
	clock.Advance(time.Minute)
	retitled, _ := svc.Update(ctx, userB, task.ID, domain.TaskPatch{Title: ptr("final")})
	if !retitled.CompletedAt.Equal(clock.Now()) {
		t.Fatalf("expected completedAt = now, got %v", retitled.CompletedAt)
	}
}

func TestTaskService_Update_KeepsCreatorAndSkipsDueDateCheck(t *testing.T) {
	svc, _, clock := newTaskSvc()
	ctx := context.Background()
	task, _ := svc.Create(ctx, userA, draftFor(userB.ID, clock))

	past := clock.Now().Add(-48 * time.Hour)
	updated, err := svc.Update(ctx, userB, task.ID, domain.TaskPatch{DueDate: &past, AssignedTo: ptr(userC.ID)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.AssignedBy != userA.ID {
		t.Fatalf("assignedBy must not change, got %s", updated.AssignedBy)
	}
	if !updated.DueDate.Equal(past) {
		t.Fatalf("expected due date to be updated without validation")
	}
}

func TestTaskService_Create_UnknownAssignee(t *testing.T) {
	svc, repo, clock := newTaskSvc()

	_, err := svc.Create(context.Background(), userA, draftFor("no-such-user", clock))
	if !errors.Is(err, domain.ErrInvalidField) || !strings.Contains(err.Error(), "assignedTo") {
		t.Fatalf("expected invalid assignedTo, got %v", err)
	}
	if len(repo.tasks) != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestTaskService_Create_AssigneeLookupError(t *testing.T) {
	svc, _, users, clock := newTaskSvcWithUsers()
	users.err = errors.New("connection reset")

	_, err := svc.Create(context.Background(), userA, draftFor(userB.ID, clock))
	if err == nil || errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected an internal error, got %v", err)
	}
}

func TestTaskService_Update_UnknownAssignee(t *testing.T) {
	svc, repo, clock := newTaskSvc()
	ctx := context.Background()
	task, _ := svc.Create(ctx, userA, draftFor(userB.ID, clock))

	_, err := svc.Update(ctx, userA, task.ID, domain.TaskPatch{AssignedTo: ptr("no-such-user")})
	if !errors.Is(err, domain.ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
	if repo.tasks[task.ID].AssignedTo != userB.ID {
		t.Fatalf("assignee must be unchanged, got %s", repo.tasks[task.ID].AssignedTo)
	}
}

func TestTaskService_Update_InvalidStatus(t *testing.T) {
	svc, _, clock := newTaskSvc()
	ctx := context.Background()
	task, _ := svc.Create(ctx, userA, draftFor(userB.ID, clock))

	_, err := svc.Update(ctx, userA, task.ID, domain.TaskPatch{Status: ptr(domain.TaskStatus("archived"))})
	if !errors.Is(err, domain.ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
}

func TestTaskService_Update_NotFound(t *testing.T) {
	svc, _, _ := newTaskSvc()

	_, err := svc.Update(context.Background(), admin, "missing", domain.TaskPatch{})
	if !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestTaskService_List_ScopesNonAdmins(t *testing.T) {
	svc, _, clock := newTaskSvc()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if _, err := svc.Create(ctx, userA, draftFor(userB.ID, clock)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	for i := 0; i < 5; i++ {
		if _, err := svc.Create(ctx, userC, draftFor(userC.ID, clock)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	for _, p := range []domain.Principal{userA, userB} {
		page, err := svc.List(ctx, p, domain.TaskQuery{Page: 1, PageSize: 3})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if page.Total != 7 || page.TotalPages != 3 || len(page.Items) != 3 {
			t.Fatalf("%s: unexpected page %+v", p.ID, page)
		}
		for _, item := range page.Items {
			if item.AssignedBy != p.ID && item.AssignedTo != p.ID {
				t.Fatalf("%s saw foreign task %s", p.ID, item.ID)
			}
		}
	}

	last, _ := svc.List(ctx, userA, domain.TaskQuery{Page: 3, PageSize: 3})
	if len(last.Items) != 1 {
		t.Fatalf("expected 1 item on last page, got %d", len(last.Items))
	}

	all, _ := svc.List(ctx, admin, domain.TaskQuery{PageSize: 100})
	if all.Total != 12 {
		t.Fatalf("admin expected 12 tasks, got %d", all.Total)
	}
}

func TestTaskService_List_AdminRespectsFilter(t *testing.T) {
	svc, repo, clock := newTaskSvc()
	ctx := context.Background()
	_, _ = svc.Create(ctx, userA, draftFor(userB.ID, clock))
	_, _ = svc.Create(ctx, userC, draftFor(userC.ID, clock))

	page, err := svc.List(ctx, admin, domain.TaskQuery{Filter: domain.TaskFilter{AssignedTo: userC.ID}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected 1 task, got %d", page.Total)
	}
	if repo.lastQuery.Filter.VisibleTo != "" {
		t.Fatalf("admin query must not be ownership-scoped")
	}
}

func TestTaskService_List_NormalizesQuery(t *testing.T) {
	svc, repo, _ := newTaskSvc()

	page, err := svc.List(context.Background(), userA, domain.TaskQuery{Page: -2, PageSize: 1000, SortKey: "password"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	q := repo.lastQuery
	if q.Page != 1 || q.PageSize != domain.MaxPageSize || q.SortKey != domain.SortByCreatedAt || q.SortDir != domain.SortDesc {
		t.Fatalf("unexpected normalized query %+v", q)
	}
	if page.TotalPages != 0 {
		t.Fatalf("expected 0 pages for empty result, got %d", page.TotalPages)
	}
}

func TestTaskService_List_StoreError(t *testing.T) {
	svc, repo, _ := newTaskSvc()
	repo.findErr = fmt.Errorf("connection reset")

	if _, err := svc.List(context.Background(), userA, domain.TaskQuery{}); err == nil {
		t.Fatalf("expected error")
	}
}
