package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"task-tracker/internal/model"
)

// ActivityRepository stores task history entries.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Record(ctx context.Context, entry *model.Activity) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return errors.Wrap(err, "record activity")
	}
	return nil
}

func (r *ActivityRepository) ListForTask(ctx context.Context, taskID uint) ([]model.Activity, error) {
	var entries []model.Activity
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("id").Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "list activity")
	}
	return entries, nil
}
