package models

import (
	"time"

	"gorm.io/gorm"
)

// PendingMessage is a websocket frame queued for a participant who had no live
// connection when a message was fanned out. Rows are flushed in batches on
// reconnect and retried with exponential backoff in the meantime.
type PendingMessage struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Target participant.
	UserID uint `gorm:"not null;index:idx_pending_user_priority" json:"user_id"`

	// The durable message this frame carries; the payload below is a cached
	// serialization of it so delivery needs no joins.
	MessageID uint    `gorm:"not null" json:"message_id"`
	Message   Message `gorm:"foreignKey:MessageID" json:"message"`

	Attempts    int        `gorm:"default:0" json:"attempts"`
	LastAttempt *time.Time `json:"last_attempt"`
	NextRetry   *time.Time `gorm:"index" json:"next_retry"`

	Priority int `gorm:"default:0;index:idx_pending_user_priority" json:"priority"`

	Payload string `gorm:"type:text" json:"payload"`
}
