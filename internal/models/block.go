package models

import "time"

// BlockRecord is one block/unblock cycle of a user. A record with a nil
// UnblockedAt is open; the partial unique index keeps at most one per user.
type BlockRecord struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID  int64  `gorm:"not null;index;uniqueIndex:idx_user_blocks_open,where:unblocked_at IS NULL" json:"user_id"`
	AdminID int64  `gorm:"not null" json:"admin_id"`
	Reason  string `json:"reason"`

	BlockedAt     time.Time  `gorm:"autoCreateTime" json:"blocked_at"`
	UnblockedAt   *time.Time `json:"unblocked_at"`
	UnblockedBy   *int64     `json:"unblocked_by"`
	UnblockReason *string    `json:"unblock_reason"`

	User  *User `gorm:"foreignKey:UserID" json:"-"`
	Admin *User `gorm:"foreignKey:AdminID" json:"-"`
}

func (BlockRecord) TableName() string {
	return "user_blocks"
}

func (b *BlockRecord) IsOpen() bool {
	return b.UnblockedAt == nil
}
