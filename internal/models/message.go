package models

import (
	"time"

	"gorm.io/gorm"
)

// Message is an immutable entry in a conversation's log. There is no edit or
// delete path; the timestamp is assigned by the store at write acceptance time
// and drives display ordering.
type Message struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// ClientID is an optional client-generated UUID used to deduplicate
	// retried sends over the websocket path.
	ClientID string `gorm:"type:varchar(36);uniqueIndex:idx_client_sender" json:"client_id"`

	ConversationID uint   `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint   `gorm:"not null;uniqueIndex:idx_client_sender;index" json:"sender_id"`
	Text           string `gorm:"type:text;not null" json:"text"`
	Read           bool   `gorm:"default:false" json:"read"`
}

type MessageResponse struct {
	ID             uint      `json:"id"`
	ClientID       string    `json:"client_id,omitempty"`
	ConversationID uint      `json:"conversation_id"`
	SenderID       uint      `json:"sender_id"`
	Text           string    `json:"text"`
	Read           bool      `json:"read"`
	Timestamp      time.Time `json:"timestamp"`
}

func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ClientID:       m.ClientID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		Read:           m.Read,
		Timestamp:      m.CreatedAt,
	}
}
