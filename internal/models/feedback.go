package models

import (
	"fmt"
	"time"
)

type Feedback struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID  int64  `gorm:"not null;index" json:"user_id"`
	Sender  *User  `gorm:"foreignKey:UserID" json:"sender,omitempty"`
	Message string `gorm:"not null" json:"message"`

	AdminResponse *string    `json:"admin_response"`
	RespondedBy   *int64     `json:"responded_by"`
	Responder     *User      `gorm:"foreignKey:RespondedBy" json:"responder,omitempty"`
	RespondedAt   *time.Time `json:"responded_at"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Feedback) TableName() string {
	return "feedback"
}

func (f *Feedback) IsPending() bool {
	return f.AdminResponse == nil
}

func (f *Feedback) String() string {
	return fmt.Sprintf("Feedback(%d, sender=%d, pending=%v)", f.ID, f.UserID, f.IsPending())
}
