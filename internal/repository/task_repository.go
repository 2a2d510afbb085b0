package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"task-tracker/internal/model"
)

// ErrAlreadyReplicated is returned when the recurrence guard of the source
// task was cleared by someone else before the new occurrence could commit.
var ErrAlreadyReplicated = errors.New("task already replicated")

// TaskRepository handles CRUD for tasks. Soft-deleted rows are invisible to
// every read.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return errors.Wrap(err, "create task")
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, translate(err, "find task")
	}
	return &task, nil
}

// DirectSubtasks lists the non-deleted children of parentID.
func (r *TaskRepository) DirectSubtasks(ctx context.Context, parentID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("parent_id = ?", parentID).Order("id").Find(&tasks).Error; err != nil {
		return nil, errors.Wrap(err, "direct subtasks")
	}
	return tasks, nil
}

// ListReplicationCandidates returns completed recurring tasks whose guard is
// still set.
func (r *TaskRepository) ListReplicationCandidates(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("repeat_interval > ? AND status = ? AND due_date IS NOT NULL", 0, model.StatusCompleted).
		Order("id").
		Find(&tasks).Error; err != nil {
		return nil, errors.Wrap(err, "list replication candidates")
	}
	return tasks, nil
}

// ListVisible returns tasks with an active assignee among staffIDs, plus
// unassigned tasks created by one of staffIDs.
func (r *TaskRepository) ListVisible(ctx context.Context, staffIDs []uint) ([]model.Task, error) {
	if len(staffIDs) == 0 {
		return nil, nil
	}
	assigned := r.db.Table("task_assignees").Select("1").
		Where("task_assignees.task_id = tasks.id AND task_assignees.is_active = ? AND task_assignees.staff_id IN ?", true, staffIDs)
	anyActive := r.db.Table("task_assignees").Select("1").
		Where("task_assignees.task_id = tasks.id AND task_assignees.is_active = ?", true)
	visible := r.db.Where("EXISTS (?)", assigned).
		Or("NOT EXISTS (?) AND tasks.creator_id IN ?", anyActive, staffIDs)

	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where(visible).
		Order("due_date IS NULL, due_date, id").
		Find(&tasks).Error; err != nil {
		return nil, errors.Wrap(err, "list visible tasks")
	}
	return tasks, nil
}

// UpdateStatus stores the new status and completion timestamp.
func (r *TaskRepository) UpdateStatus(ctx context.Context, task *model.Task, status model.TaskStatus, completedAt *time.Time) error {
	if err := r.db.WithContext(ctx).Model(task).Updates(map[string]any{
		"status":       status,
		"completed_at": completedAt,
	}).Error; err != nil {
		return errors.Wrap(err, "update task status")
	}
	task.Status = status
	task.CompletedAt = completedAt
	return nil
}

// CreateOccurrence inserts next and clears the recurrence guard of sourceID in
// one transaction. The guard is only cleared while it still holds observed;
// otherwise nothing is written and ErrAlreadyReplicated is returned.
func (r *TaskRepository) CreateOccurrence(ctx context.Context, next *model.Task, sourceID uint, observed int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(next).Error; err != nil {
			return errors.Wrap(err, "create occurrence")
		}
		res := tx.Model(&model.Task{}).
			Where("id = ? AND repeat_interval = ?", sourceID, observed).
			Update("repeat_interval", 0)
		if res.Error != nil {
			return errors.Wrap(res.Error, "clear repeat interval")
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReplicated
		}
		return nil
	})
}

// SoftDeleteCascade marks the task and all of its non-deleted descendants as
// deleted. It returns the number of rows touched.
func (r *TaskRepository) SoftDeleteCascade(ctx context.Context, id uint) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := []uint{id}
		frontier := []uint{id}
		for len(frontier) > 0 {
			var children []uint
			if err := tx.Model(&model.Task{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return errors.Wrap(err, "collect subtasks")
			}
			ids = append(ids, children...)
			frontier = children
		}
		res := tx.Delete(&model.Task{}, ids)
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete task")
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}
