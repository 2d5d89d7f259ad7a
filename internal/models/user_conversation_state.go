package models

import (
	"time"
)

// UserConversationState tracks one participant's unread counter and read
// watermark for one conversation. Exactly one row exists per
// (user_id, conversation_id) pair the user participates in; both rows are
// created alongside the conversation itself.
//
// The counter only moves 0->N through sends from the other participant and
// N->0 through MarkRead. It is a plain badge counter, not a set of message
// IDs, so partial reads are not representable.
type UserConversationState struct {
	UserID         uint       `gorm:"primaryKey" json:"user_id"`
	ConversationID uint       `gorm:"primaryKey" json:"conversation_id"`
	UnreadCount    int64      `gorm:"not null;default:0" json:"unread_count"`
	LastReadAt     *time.Time `json:"last_read_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (UserConversationState) TableName() string {
	return "user_conversations"
}
