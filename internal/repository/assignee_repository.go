package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"task-tracker/internal/model"
)

// AssigneeRepository manages task assignment rows.
type AssigneeRepository struct {
	db *gorm.DB
}

func NewAssigneeRepository(db *gorm.DB) *AssigneeRepository {
	return &AssigneeRepository{db: db}
}

func (r *AssigneeRepository) Active(ctx context.Context, taskID uint) ([]model.TaskAssignee, error) {
	var rows []model.TaskAssignee
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND is_active = ?", taskID, true).
		Order("staff_id").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "active assignees")
	}
	return rows, nil
}

// ActiveByTask returns active staff IDs keyed by task for every task in taskIDs.
func (r *AssigneeRepository) ActiveByTask(ctx context.Context, taskIDs []uint) (map[uint][]uint, error) {
	out := make(map[uint][]uint, len(taskIDs))
	if len(taskIDs) == 0 {
		return out, nil
	}
	var rows []model.TaskAssignee
	if err := r.db.WithContext(ctx).
		Where("task_id IN ? AND is_active = ?", taskIDs, true).
		Order("task_id, staff_id").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "active assignees by task")
	}
	for _, row := range rows {
		out[row.TaskID] = append(out[row.TaskID], row.StaffID)
	}
	return out, nil
}

// Insert adds fresh assignment rows, used when copying onto a new task.
func (r *AssigneeRepository) Insert(ctx context.Context, rows []model.TaskAssignee) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return errors.Wrap(err, "insert assignees")
	}
	return nil
}

// Replace makes staffIDs the active set of the task: every row is
// deactivated first, then each selected staff member is activated or inserted.
func (r *AssigneeRepository) Replace(ctx context.Context, taskID, assignedBy uint, staffIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.TaskAssignee{}).
			Where("task_id = ? AND is_active = ?", taskID, true).
			Update("is_active", false).Error; err != nil {
			return errors.Wrap(err, "deactivate assignees")
		}
		for _, staffID := range staffIDs {
			if err := activateOrInsert(tx, taskID, staffID, assignedBy); err != nil {
				return err
			}
		}
		return nil
	})
}

func activateOrInsert(tx *gorm.DB, taskID, staffID, assignedBy uint) error {
	res := tx.Model(&model.TaskAssignee{}).
		Where("task_id = ? AND staff_id = ?", taskID, staffID).
		Updates(map[string]any{"is_active": true, "assigned_by": assignedBy})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "activate assignee %d", staffID)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	row := model.TaskAssignee{TaskID: taskID, StaffID: staffID, AssignedBy: assignedBy, IsActive: true}
	if err := tx.Create(&row).Error; err != nil {
		return errors.Wrapf(err, "insert assignee %d", staffID)
	}
	return nil
}
