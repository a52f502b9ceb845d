package models

import (
	"fmt"
	"time"
)

type PostStatus string

const (
	PostStatusPending  PostStatus = "pending"
	PostStatusApproved PostStatus = "approved"
	PostStatusRejected PostStatus = "rejected"
)

func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusPending, PostStatusApproved, PostStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves the status.
func (s PostStatus) Terminal() bool {
	return s == PostStatusApproved || s == PostStatusRejected
}

// ReviewCounter is the owner statistic bumped when a post enters the status.
func (s PostStatus) ReviewCounter() (Counter, bool) {
	switch s {
	case PostStatusApproved:
		return CounterApprovedPosts, true
	case PostStatusRejected:
		return CounterRejectedPosts, true
	}
	return 0, false
}

func ParsePostStatus(s string) (PostStatus, error) {
	status := PostStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown post status %q", s)
	}
	return status, nil
}

type Post struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`
	Owner  *User `gorm:"foreignKey:UserID" json:"owner,omitempty"`

	TextContent string `json:"text_content"`
	ImageFileID string `json:"image_file_id"`

	Status    PostStatus `gorm:"not null;index" json:"status"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`

	ReviewedAt      *time.Time `json:"reviewed_at"`
	ReviewedBy      *int64     `json:"reviewed_by"`
	Reviewer        *User      `gorm:"foreignKey:ReviewedBy" json:"reviewer,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

func (p *Post) String() string {
	return fmt.Sprintf("Post(%d, owner=%d, %s)", p.ID, p.UserID, p.Status)
}
