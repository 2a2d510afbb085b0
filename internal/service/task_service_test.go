package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-tracker/internal/model"
)

func TestUpdateStatus_CompletingRecurringTaskReplicates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.addStaff(t, "Sales Manager")
	task := h.addTask(t, &model.Task{Title: "Pipeline review", Status: model.StatusInProgress, RepeatInterval: 1, DueDate: day(2024, 1, 14), CreatorID: owner.StaffID})

	change, err := h.svc.UpdateStatus(ctx, owner, task.ID, StatusInput{Status: model.StatusCompleted})
	require.NoError(t, err)
	require.NotNil(t, change.Next)
	assert.Equal(t, "2024-01-15", change.Next.DueDate.UTC().Format(time.DateOnly))
	assert.Equal(t, model.StatusCompleted, change.Task.Status)
	assert.NotNil(t, change.Task.CompletedAt)
	assert.Zero(t, change.Task.RepeatInterval)

	res, err := h.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, int64(2), h.countTasks(t))
}

func TestUpdateStatus_ReopenClearsCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.addStaff(t, "IT Team")
	task := h.addTask(t, &model.Task{Title: "Patch servers", Status: model.StatusCompleted, CompletedAt: day(2024, 1, 1), CreatorID: owner.StaffID})

	change, err := h.svc.UpdateStatus(ctx, owner, task.ID, StatusInput{Status: model.StatusBlocked})
	require.NoError(t, err)
	assert.Nil(t, change.Task.CompletedAt)
	assert.Nil(t, change.Next)

	history, err := h.activity.ListForTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.ActionStatusChanged, history[0].Action)
}

func TestUpdateStatus_Validation(t *testing.T) {
	h := newHarness(t)
	owner := h.addStaff(t, "IT Team")
	task := h.addTask(t, &model.Task{Title: "x", Status: model.StatusNotStarted, CreatorID: owner.StaffID})

	_, err := h.svc.UpdateStatus(context.Background(), owner, task.ID, StatusInput{Status: "done"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStatus_NonAssigneeForbidden(t *testing.T) {
	h := newHarness(t)
	creator := h.addStaff(t, "Sales Manager")
	assignee := h.addStaff(t, "Account Managers")
	task := h.addTask(t, &model.Task{Title: "Call client", Status: model.StatusNotStarted, RepeatInterval: 1, DueDate: day(2024, 1, 14), CreatorID: creator.StaffID}, assignee.StaffID)

	_, err := h.svc.UpdateStatus(context.Background(), creator, task.ID, StatusInput{Status: model.StatusCompleted})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, int64(1), h.countTasks(t))
}

func TestDeleteTask(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	creator := h.addStaff(t, "Sales Manager")
	a := h.addStaff(t, "Account Managers")
	b := h.addStaff(t, "Account Managers")

	assigned := h.addTask(t, &model.Task{Title: "assigned", Status: model.StatusNotStarted, CreatorID: creator.StaffID}, a.StaffID, b.StaffID)
	assert.ErrorIs(t, h.svc.DeleteTask(ctx, creator, assigned.ID), ErrForbidden)
	require.NoError(t, h.svc.DeleteTask(ctx, b, assigned.ID))

	unassigned := h.addTask(t, &model.Task{Title: "unassigned", Status: model.StatusNotStarted, CreatorID: creator.StaffID})
	child := h.addTask(t, &model.Task{Title: "child", Status: model.StatusNotStarted, CreatorID: creator.StaffID, ParentID: &unassigned.ID})
	assert.ErrorIs(t, h.svc.DeleteTask(ctx, a, unassigned.ID), ErrForbidden)
	require.NoError(t, h.svc.DeleteTask(ctx, creator, unassigned.ID))

	_, err := h.tasks.FindByID(ctx, child.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, h.svc.DeleteTask(ctx, creator, unassigned.ID), ErrNotFound)
}

func TestGetTask_VisibilityAndPermissions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	manager := h.addStaff(t, "Sales Manager")
	account := h.addStaff(t, "Account Managers")
	it := h.addStaff(t, "IT Team")
	task := h.addTask(t, &model.Task{Title: "Quote", Status: model.StatusNotStarted, CreatorID: manager.StaffID}, account.StaffID)

	view, err := h.svc.GetTask(ctx, manager, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{account.StaffID}, view.Assignees)
	assert.Equal(t, Permissions{}, view.Permissions)

	view, err = h.svc.GetTask(ctx, account, task.ID)
	require.NoError(t, err)
	assert.Equal(t, Permissions{CanEdit: true, CanDelete: true}, view.Permissions)

	_, err = h.svc.GetTask(ctx, it, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListVisible(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	manager := h.addStaff(t, "Sales Manager")
	account := h.addStaff(t, "Account Managers")
	it := h.addStaff(t, "IT Team")
	mine := h.addTask(t, &model.Task{Title: "mine", Status: model.StatusNotStarted, CreatorID: account.StaffID})
	h.addTask(t, &model.Task{Title: "theirs", Status: model.StatusNotStarted, CreatorID: it.StaffID})

	views, err := h.svc.ListVisible(ctx, manager)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, mine.ID, views[0].ID)
	assert.False(t, views[0].Permissions.CanEdit)

	views, err = h.svc.ListVisible(ctx, Actor{StaffID: 99})
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestSetAssignees(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	creator := h.addStaff(t, "Operations Manager")
	var staff []uint
	for i := 0; i < 6; i++ {
		staff = append(staff, h.addStaff(t, "Consultant").StaffID)
	}
	task := h.addTask(t, &model.Task{Title: "Site visit", Status: model.StatusNotStarted, CreatorID: creator.StaffID})

	_, err := h.svc.SetAssignees(ctx, creator, task.ID, AssignInput{StaffIDs: staff})
	assert.ErrorIs(t, err, ErrInvalidInput, "more than five assignees")
	_, err = h.svc.SetAssignees(ctx, creator, task.ID, AssignInput{StaffIDs: []uint{staff[0], staff[0]}})
	assert.ErrorIs(t, err, ErrInvalidInput, "duplicates")
	_, err = h.svc.SetAssignees(ctx, creator, task.ID, AssignInput{StaffIDs: []uint{999}})
	assert.ErrorIs(t, err, ErrInvalidInput, "unknown staff")

	view, err := h.svc.SetAssignees(ctx, creator, task.ID, AssignInput{StaffIDs: staff[:2]})
	require.NoError(t, err)
	assert.Equal(t, staff[:2], view.Assignees)
	assert.False(t, view.Permissions.CanEdit, "creator lost authority once assigned")

	// authority moved to the assignees
	_, err = h.svc.SetAssignees(ctx, creator, task.ID, AssignInput{})
	assert.ErrorIs(t, err, ErrForbidden)

	view, err = h.svc.SetAssignees(ctx, Actor{StaffID: staff[1]}, task.ID, AssignInput{})
	require.NoError(t, err)
	assert.Empty(t, view.Assignees)

	require.NoError(t, h.svc.DeleteTask(ctx, creator, task.ID))
}

func TestCreateTask(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	creator := h.addStaff(t, "Finance Manager")
	exec := h.addStaff(t, "Finance Executive")

	view, err := h.svc.CreateTask(ctx, creator, TaskInput{
		Title:          "  Month end  ",
		DueDate:        day(2024, 1, 31),
		RepeatInterval: 30,
		Tags:           []string{"finance"},
		Assignees:      []uint{exec.StaffID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Month end", view.Title)
	assert.Equal(t, model.StatusNotStarted, view.Status)
	assert.Equal(t, creator.StaffID, view.CreatorID)
	assert.Equal(t, []uint{exec.StaffID}, view.Assignees)
	require.NotEmpty(t, h.notifier.calls)
	assert.Equal(t, []uint{exec.StaffID}, h.notifier.calls[0])

	sub, err := h.svc.CreateTask(ctx, exec, TaskInput{Title: "Collect receipts", ParentID: &view.ID})
	require.NoError(t, err)
	assert.Equal(t, view.ID, *sub.ParentID)

	_, err = h.svc.CreateTask(ctx, exec, TaskInput{Title: "Nested", ParentID: &sub.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.svc.CreateTask(ctx, exec, TaskInput{Title: "Repeating child", ParentID: &view.ID, RepeatInterval: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.svc.CreateTask(ctx, creator, TaskInput{Title: "Backwards", StartDate: day(2024, 2, 1), DueDate: day(2024, 1, 1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.svc.CreateTask(ctx, creator, TaskInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.svc.CreateTask(ctx, creator, TaskInput{Title: "neg", RepeatInterval: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateTask_SubtaskRequiresEditOnParent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.addStaff(t, "Finance Manager")
	outsider := h.addStaff(t, "IT Team")
	parent := h.addTask(t, &model.Task{Title: "Quarterly close", Status: model.StatusNotStarted, RepeatInterval: 90, DueDate: day(2024, 3, 31), CreatorID: owner.StaffID})

	_, err := h.svc.GetTask(ctx, outsider, parent.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = h.svc.CreateTask(ctx, outsider, TaskInput{Title: "injected", ParentID: &parent.ID})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, int64(1), h.countTasks(t))

	subtasks, err := h.tasks.DirectSubtasks(ctx, parent.ID)
	require.NoError(t, err)
	assert.Empty(t, subtasks)

	missing := parent.ID + 100
	_, err = h.svc.CreateTask(ctx, owner, TaskInput{Title: "orphan", ParentID: &missing})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateTask_CompletedRecurringReplicates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.addStaff(t, "Sales Manager")
	rep := h.addStaff(t, "Account Managers")

	view, err := h.svc.CreateTask(ctx, owner, TaskInput{
		Title:          "Weekly forecast",
		Status:         model.StatusCompleted,
		DueDate:        day(2024, 1, 14),
		RepeatInterval: 7,
		Assignees:      []uint{rep.StaffID},
	})
	require.NoError(t, err)
	assert.NotNil(t, view.CompletedAt)
	assert.Zero(t, view.RepeatInterval)
	assert.Equal(t, int64(2), h.countTasks(t))

	res, err := h.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, int64(2), h.countTasks(t))
}

func TestResolveActor(t *testing.T) {
	h := newHarness(t)
	actor := h.addStaff(t, "IT Team")

	got, err := h.svc.ResolveActor(context.Background(), "auth-1")
	require.NoError(t, err)
	assert.Equal(t, actor, got)

	_, err = h.svc.ResolveActor(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
