package models

import (
	"fmt"
	"time"
)

type UserRole string

const (
	UserRoleRegular UserRole = "regular"
	UserRoleAdmin   UserRole = "admin"
)

type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
)

func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusBlocked
}

type User struct {
	ID         int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	TelegramID int64 `gorm:"uniqueIndex;not null" json:"telegram_id"`

	Username string `json:"username"`
	FullName string `json:"full_name"`

	Role   UserRole   `gorm:"not null;index" json:"role"`
	Status UserStatus `gorm:"not null" json:"status"`

	SubmittedPosts int64 `gorm:"not null" json:"submitted_posts"`
	ApprovedPosts  int64 `gorm:"not null" json:"approved_posts"`
	RejectedPosts  int64 `gorm:"not null" json:"rejected_posts"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

func (u *User) IsBlocked() bool {
	return u.Status == UserStatusBlocked
}

// DisplayName prefers the @handle and falls back to the full name.
func (u *User) DisplayName() string {
	switch {
	case u.Username != "":
		return "@" + u.Username
	case u.FullName != "":
		return u.FullName
	default:
		return fmt.Sprintf("id%d", u.TelegramID)
	}
}

func (u *User) String() string {
	return fmt.Sprintf("User(%d, tg=%d, %s, %s)", u.ID, u.TelegramID, u.Role, u.Status)
}

// UserScore is a leaderboard row.
type UserScore struct {
	User  *User `json:"user"`
	Value int64 `json:"value"`
}
