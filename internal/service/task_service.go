package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"task-tracker/internal/model"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title          string           `json:"title" validate:"required,max=200"`
	Notes          string           `json:"notes" validate:"max=5000"`
	StartDate      *time.Time       `json:"startDate"`
	DueDate        *time.Time       `json:"dueDate"`
	Status         model.TaskStatus `json:"status" validate:"omitempty,oneof=not-started in-progress completed blocked"`
	Priority       int              `json:"priority" validate:"gte=0,lte=3"`
	RepeatInterval int              `json:"repeatInterval" validate:"gte=0,lte=3650"`
	Tags           []string         `json:"tags" validate:"max=20,dive,required,max=50"`
	ParentID       *uint            `json:"parentId"`
	ProjectID      *uint            `json:"projectId"`
	Assignees      []uint           `json:"assignees" validate:"max=5,unique,dive,gt=0"`
}

// AssignInput replaces the active assignee set. An empty list unassigns the
// task and hands authority back to its creator.
type AssignInput struct {
	StaffIDs []uint `json:"staffIds" validate:"max=5,unique,dive,gt=0"`
}

// StatusInput moves a task through its workflow.
type StatusInput struct {
	Status model.TaskStatus `json:"status" validate:"required,oneof=not-started in-progress completed blocked"`
}

// TaskView is a task as returned to a reader.
type TaskView struct {
	model.Task
	Assignees   []uint      `json:"assignees"`
	Permissions Permissions `json:"permissions"`
}

// StatusChange is the result of UpdateStatus. Next is set when completing the
// task spawned its next occurrence.
type StatusChange struct {
	Task TaskView    `json:"task"`
	Next *model.Task `json:"next,omitempty"`
}

// TaskService wraps task-related business logic.
type TaskService struct {
	tasks      TaskStore
	assignees  AssigneeStore
	staff      StaffStore
	activity   ActivityRecorder
	notifier   Notifier
	authz      *Authorizer
	visibility *VisibilityResolver
	replicator *Replicator
	validate   *validator.Validate
	log        logrus.FieldLogger
	now        func() time.Time
}

// TaskServiceDeps lists the collaborators of TaskService.
type TaskServiceDeps struct {
	Tasks      TaskStore
	Assignees  AssigneeStore
	Staff      StaffStore
	Activity   ActivityRecorder
	Notifier   Notifier
	Authz      *Authorizer
	Visibility *VisibilityResolver
	Replicator *Replicator
	Log        logrus.FieldLogger
}

func NewTaskService(deps TaskServiceDeps) *TaskService {
	return &TaskService{
		tasks:      deps.Tasks,
		assignees:  deps.Assignees,
		staff:      deps.Staff,
		activity:   deps.Activity,
		notifier:   deps.Notifier,
		authz:      deps.Authz,
		visibility: deps.Visibility,
		replicator: deps.Replicator,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		log:        deps.Log,
		now:        time.Now,
	}
}

// ResolveActor maps an external-auth identifier to the acting staff member.
func (s *TaskService) ResolveActor(ctx context.Context, authID string) (Actor, error) {
	if strings.TrimSpace(authID) == "" {
		return Actor{}, errors.Wrap(ErrNotFound, "empty auth id")
	}
	staff, err := s.staff.FindByAuthID(ctx, authID)
	if err != nil {
		return Actor{}, err
	}
	return Actor{StaffID: staff.ID, Department: staff.Department, IsAdmin: staff.IsAdmin}, nil
}

func (s *TaskService) CreateTask(ctx context.Context, actor Actor, input TaskInput) (*TaskView, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}
	if input.StartDate != nil && input.DueDate != nil && input.StartDate.After(*input.DueDate) {
		return nil, invalidf("start date after due date")
	}
	if input.ParentID != nil {
		parent, parentAccess, err := s.load(ctx, *input.ParentID)
		if err != nil {
			return nil, errors.Wrap(err, "parent task")
		}
		if err := s.authz.CanMutate(actor, parentAccess, ActionEdit); err != nil {
			return nil, err
		}
		if parent.IsSubtask() {
			return nil, invalidf("task %d is already a subtask", parent.ID)
		}
		if input.RepeatInterval > 0 {
			return nil, invalidf("subtasks cannot repeat")
		}
	}
	if err := s.checkStaffExist(ctx, input.Assignees); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = model.StatusNotStarted
	}
	task := model.Task{
		Title:          strings.TrimSpace(input.Title),
		Notes:          input.Notes,
		StartDate:      input.StartDate,
		DueDate:        input.DueDate,
		Status:         status,
		Priority:       input.Priority,
		RepeatInterval: input.RepeatInterval,
		Tags:           input.Tags,
		CreatorID:      actor.StaffID,
		ParentID:       input.ParentID,
		ProjectID:      input.ProjectID,
	}
	if status == model.StatusCompleted {
		now := s.now()
		task.CompletedAt = &now
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	if len(input.Assignees) > 0 {
		if err := s.assignees.Replace(ctx, task.ID, actor.StaffID, input.Assignees); err != nil {
			return nil, err
		}
	}

	s.record(ctx, task.ID, actor.StaffID, model.ActionCreated, task.Title)
	s.notify(ctx, input.Assignees, fmt.Sprintf("You were assigned to %q.", task.Title))
	s.replicateCompleted(ctx, &task)

	access := TaskAccess{CreatorID: task.CreatorID, ActiveAssignees: input.Assignees}
	return s.view(actor, task, access), nil
}

// GetTask returns a task the actor may view, with their permissions on it.
func (s *TaskService) GetTask(ctx context.Context, actor Actor, id uint) (*TaskView, error) {
	task, access, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanView(ctx, actor, access); err != nil {
		return nil, err
	}
	return s.view(actor, *task, access), nil
}

// ListVisible returns every task the actor's department may see.
func (s *TaskService) ListVisible(ctx context.Context, actor Actor) ([]TaskView, error) {
	visible, err := s.visibility.VisibleStaffIDs(ctx, actor.Department)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListVisible(ctx, visible)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	active, err := s.assignees.ActiveByTask(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		access := TaskAccess{CreatorID: task.CreatorID, ActiveAssignees: active[task.ID]}
		views = append(views, *s.view(actor, task, access))
	}
	return views, nil
}

// UpdateStatus changes the status of a task. Completing a recurring task
// replicates it before returning.
func (s *TaskService) UpdateStatus(ctx context.Context, actor Actor, id uint, input StatusInput) (*StatusChange, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}
	task, access, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanMutate(actor, access, ActionEdit); err != nil {
		return nil, err
	}

	previous := task.Status
	completedAt := task.CompletedAt
	switch {
	case input.Status == model.StatusCompleted && previous != model.StatusCompleted:
		now := s.now()
		completedAt = &now
	case input.Status != model.StatusCompleted:
		completedAt = nil
	}
	if err := s.tasks.UpdateStatus(ctx, task, input.Status, completedAt); err != nil {
		return nil, err
	}
	s.record(ctx, task.ID, actor.StaffID, model.ActionStatusChanged, fmt.Sprintf("%s -> %s", previous, input.Status))

	change := &StatusChange{Next: s.replicateCompleted(ctx, task)}
	change.Task = *s.view(actor, *task, access)
	return change, nil
}

// replicateCompleted spawns the next occurrence of a completed recurring task
// and returns it. Failures leave the task as stored for the sweep to retry.
func (s *TaskService) replicateCompleted(ctx context.Context, task *model.Task) *model.Task {
	if task.Status != model.StatusCompleted || task.RepeatInterval <= 0 {
		return nil
	}
	rep, err := s.replicator.Replicate(ctx, task)
	switch {
	case err == nil:
		return rep.Task
	case IsNotEligible(err), errors.Is(err, ErrAlreadyReplicated):
		s.log.WithField("task_id", task.ID).WithError(err).Info("inline replication skipped")
	default:
		s.log.WithField("task_id", task.ID).WithError(err).Error("inline replication failed")
	}
	return nil
}

// SetAssignees replaces the active assignees of a task.
func (s *TaskService) SetAssignees(ctx context.Context, actor Actor, id uint, input AssignInput) (*TaskView, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}
	task, access, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanMutate(actor, access, ActionEdit); err != nil {
		return nil, err
	}
	if err := s.checkStaffExist(ctx, input.StaffIDs); err != nil {
		return nil, err
	}
	if err := s.assignees.Replace(ctx, task.ID, actor.StaffID, input.StaffIDs); err != nil {
		return nil, err
	}

	s.record(ctx, task.ID, actor.StaffID, model.ActionAssigneesChanged, fmt.Sprint(input.StaffIDs))
	s.notify(ctx, added(access.ActiveAssignees, input.StaffIDs), fmt.Sprintf("You were assigned to %q.", task.Title))

	return s.view(actor, *task, TaskAccess{CreatorID: task.CreatorID, ActiveAssignees: input.StaffIDs}), nil
}

// DeleteTask soft-deletes the task together with its subtasks.
func (s *TaskService) DeleteTask(ctx context.Context, actor Actor, id uint) error {
	task, access, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authz.CanMutate(actor, access, ActionDelete); err != nil {
		return err
	}
	n, err := s.tasks.SoftDeleteCascade(ctx, task.ID)
	if err != nil {
		return err
	}
	s.record(ctx, task.ID, actor.StaffID, model.ActionDeleted, fmt.Sprintf("%d rows", n))
	return nil
}

func (s *TaskService) load(ctx context.Context, id uint) (*model.Task, TaskAccess, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, TaskAccess{}, err
	}
	rows, err := s.assignees.Active(ctx, id)
	if err != nil {
		return nil, TaskAccess{}, err
	}
	return task, TaskAccess{CreatorID: task.CreatorID, ActiveAssignees: model.ActiveStaffIDs(rows)}, nil
}

func (s *TaskService) view(actor Actor, task model.Task, access TaskAccess) *TaskView {
	assignees := access.ActiveAssignees
	if assignees == nil {
		assignees = []uint{}
	}
	return &TaskView{Task: task, Assignees: assignees, Permissions: s.authz.Permissions(actor, access)}
}

func (s *TaskService) check(input any) error {
	if err := s.validate.Struct(input); err != nil {
		return errors.Wrap(ErrInvalidInput, err.Error())
	}
	return nil
}

func (s *TaskService) checkStaffExist(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	staff, err := s.staff.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(staff) != len(ids) {
		return invalidf("unknown staff in %v", ids)
	}
	return nil
}

func (s *TaskService) record(ctx context.Context, taskID, staffID uint, action, detail string) {
	if s.activity == nil {
		return
	}
	entry := &model.Activity{TaskID: taskID, StaffID: staffID, Action: action, Detail: detail}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.log.WithFields(logrus.Fields{"task_id": taskID, "action": action}).WithError(err).Warn("record activity")
	}
}

func (s *TaskService) notify(ctx context.Context, staffIDs []uint, text string) {
	if s.notifier == nil || len(staffIDs) == 0 {
		return
	}
	if err := s.notifier.Notify(ctx, staffIDs, text); err != nil {
		s.log.WithError(err).Warn("notify staff")
	}
}

func invalidf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidInput, format, args...)
}

// added returns the IDs in next that are not in prev.
func added(prev, next []uint) []uint {
	seen := make(map[uint]struct{}, len(prev))
	for _, id := range prev {
		seen[id] = struct{}{}
	}
	var out []uint
	for _, id := range next {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
