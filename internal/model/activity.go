package model

import "time"

// Activity is one entry of a task's history.
type Activity struct {
	ID        uint   `gorm:"primaryKey"`
	TaskID    uint   `gorm:"index"`
	StaffID   uint   `gorm:"index"`
	Action    string `gorm:"not null"`
	Detail    string
	CreatedAt time.Time
}

const (
	ActionCreated          = "created"
	ActionStatusChanged    = "status_changed"
	ActionAssigneesChanged = "assignees_changed"
	ActionDeleted          = "deleted"
	ActionReplicated       = "replicated"
)
