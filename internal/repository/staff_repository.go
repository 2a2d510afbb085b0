package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"task-tracker/internal/model"
)

// StaffRepository reads the staff directory.
type StaffRepository struct {
	db *gorm.DB
}

func NewStaffRepository(db *gorm.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

func (r *StaffRepository) Create(ctx context.Context, staff *model.Staff) error {
	if err := r.db.WithContext(ctx).Create(staff).Error; err != nil {
		return errors.Wrap(err, "create staff")
	}
	return nil
}

// FindByAuthID looks a staff member up by the external-auth identifier.
func (r *StaffRepository) FindByAuthID(ctx context.Context, authID string) (*model.Staff, error) {
	var staff model.Staff
	if err := r.db.WithContext(ctx).Where("auth_id = ?", authID).First(&staff).Error; err != nil {
		return nil, translate(err, "find staff")
	}
	return &staff, nil
}

func (r *StaffRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Staff, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var staff []model.Staff
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&staff).Error; err != nil {
		return nil, errors.Wrap(err, "find staff by ids")
	}
	return staff, nil
}

// IDsByDepartments returns the IDs of every staff member in any of departments.
func (r *StaffRepository) IDsByDepartments(ctx context.Context, departments []string) ([]uint, error) {
	if len(departments) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&model.Staff{}).
		Where("department IN ?", departments).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return nil, errors.Wrap(err, "staff by departments")
	}
	return ids, nil
}

// LinkTelegram stores the chat that notifications for authID go to.
func (r *StaffRepository) LinkTelegram(ctx context.Context, authID string, chatID int64) (*model.Staff, error) {
	staff, err := r.FindByAuthID(ctx, authID)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(staff).Update("telegram_chat_id", chatID).Error; err != nil {
		return nil, errors.Wrap(err, "link telegram")
	}
	return staff, nil
}
