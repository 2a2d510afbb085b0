package service

import (
	"context"
	"time"

	"task-tracker/internal/model"
)

// TaskStore is the task persistence the services rely on.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uint) (*model.Task, error)
	DirectSubtasks(ctx context.Context, parentID uint) ([]model.Task, error)
	ListReplicationCandidates(ctx context.Context) ([]model.Task, error)
	ListVisible(ctx context.Context, staffIDs []uint) ([]model.Task, error)
	UpdateStatus(ctx context.Context, task *model.Task, status model.TaskStatus, completedAt *time.Time) error
	CreateOccurrence(ctx context.Context, next *model.Task, sourceID uint, observed int) error
	SoftDeleteCascade(ctx context.Context, id uint) (int64, error)
}

// AssigneeStore manages assignment rows.
type AssigneeStore interface {
	Active(ctx context.Context, taskID uint) ([]model.TaskAssignee, error)
	ActiveByTask(ctx context.Context, taskIDs []uint) (map[uint][]uint, error)
	Insert(ctx context.Context, rows []model.TaskAssignee) error
	Replace(ctx context.Context, taskID, assignedBy uint, staffIDs []uint) error
}

// StaffStore reads the staff directory.
type StaffStore interface {
	FindByAuthID(ctx context.Context, authID string) (*model.Staff, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Staff, error)
	IDsByDepartments(ctx context.Context, departments []string) ([]uint, error)
}

// ActivityRecorder appends task history.
type ActivityRecorder interface {
	Record(ctx context.Context, entry *model.Activity) error
}

// Notifier delivers a short message to staff members.
type Notifier interface {
	Notify(ctx context.Context, staffIDs []uint, text string) error
}
