package models

const GlobalStateID = 1

// GlobalState is a single-row table holding the long poller offset.
type GlobalState struct {
	ID           int `gorm:"primaryKey"`
	LastUpdateID int
}
