package model

import (
	"time"

	"gorm.io/gorm"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not-started"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// Task represents a single tracked item. A non-nil ParentID marks a subtask.
type Task struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Title          string     `gorm:"not null" json:"title"`
	Notes          string     `json:"notes"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	DueDate        *time.Time `gorm:"index" json:"dueDate,omitempty"`
	Status         TaskStatus `gorm:"not null;default:'not-started';index" json:"status"`
	Priority       int        `gorm:"not null;default:0" json:"priority"`
	RepeatInterval int        `gorm:"not null;default:0;index" json:"repeatInterval"`
	Tags           []string   `gorm:"serializer:json" json:"tags"`
	CreatorID      uint       `gorm:"not null;index" json:"creatorId"`
	ParentID       *uint      `gorm:"index" json:"parentId,omitempty"`
	ProjectID      *uint      `gorm:"index" json:"projectId,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	// Soft delete only; rows are never removed.
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsSubtask reports whether the task hangs under a parent.
func (t *Task) IsSubtask() bool {
	return t.ParentID != nil
}
