package models

import (
	"time"

	"gorm.io/gorm"
)

// SystemSenderID marks the synthetic last-message snapshot a conversation is
// seeded with at creation, so empty conversations render without special-casing.
const SystemSenderID uint = 0

// LastMessage is the denormalized snapshot of the most recent message in a
// conversation. It is a best-effort cache: the messages table is the source
// of truth and this snapshot can be re-derived from it.
type LastMessage struct {
	Text     string    `gorm:"column:last_message_text;type:text" json:"text"`
	SenderID uint      `gorm:"column:last_message_sender_id" json:"sender_id"`
	SentAt   time.Time `gorm:"column:last_message_at" json:"timestamp"`
}

// Conversation is a two-party conversation. The participant pair is stored
// canonically (UserAID < UserBID) so that (A,B) and (B,A) resolve to the same
// row. There is deliberately no unique index on the pair: deduplication is
// handled by the get-or-create lookup, and a lazy cleanup pass removes the
// rare duplicates produced by concurrent first contact.
type Conversation struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserAID uint `gorm:"not null;index" json:"user_a_id"`
	UserBID uint `gorm:"not null;index" json:"user_b_id"`

	LastMessage LastMessage `gorm:"embedded" json:"last_message"`
}

// CanonicalPair orders two user IDs so the smaller one comes first.
func CanonicalPair(userID1, userID2 uint) (uint, uint) {
	if userID1 > userID2 {
		return userID2, userID1
	}
	return userID1, userID2
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID uint) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// PeerOf returns the other participant. Callers must check HasParticipant first;
// for a non-participant the result is meaningless.
func (c *Conversation) PeerOf(userID uint) uint {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

// Participants returns both participant IDs in canonical order.
func (c *Conversation) Participants() [2]uint {
	return [2]uint{c.UserAID, c.UserBID}
}

type ConversationResponse struct {
	ID           uint        `json:"id"`
	Participants [2]uint     `json:"participants"`
	LastMessage  LastMessage `json:"last_message"`
	UnreadCount  int64       `json:"unread_count"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (c *Conversation) ToResponse() ConversationResponse {
	return ConversationResponse{
		ID:           c.ID,
		Participants: c.Participants(),
		LastMessage:  c.LastMessage,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
