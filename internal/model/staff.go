package model

import "time"

// Staff is an identity row owned by the staff directory.
type Staff struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	AuthID         string  `gorm:"uniqueIndex;not null" json:"authId"`
	Name           string  `json:"name"`
	Department     *string `gorm:"index" json:"department,omitempty"`
	IsManager      bool    `gorm:"default:false" json:"isManager"`
	IsAdmin        bool    `gorm:"default:false" json:"isAdmin"`
	TelegramChatID int64   `json:"-"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Staff) TableName() string {
	return "staff"
}
