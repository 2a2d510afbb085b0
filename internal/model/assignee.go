package model

import "time"

// TaskAssignee links a staff member to a task. Unassigning flips IsActive
// instead of removing the row so history survives.
type TaskAssignee struct {
	TaskID     uint `gorm:"primaryKey;autoIncrement:false"`
	StaffID    uint `gorm:"primaryKey;autoIncrement:false;index"`
	AssignedBy uint
	IsActive   bool `gorm:"not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ActiveStaffIDs extracts the staff IDs of the active rows.
func ActiveStaffIDs(rows []TaskAssignee) []uint {
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		if row.IsActive {
			ids = append(ids, row.StaffID)
		}
	}
	return ids
}
