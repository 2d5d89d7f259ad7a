package repository

import (
	"time"

	"github.com/folionet/messaging-backend/internal/models"
)

// ConversationRepositoryInterface defines the contract for conversation directory operations.
// Find* methods return (nil, nil) when the row does not exist.
type ConversationRepositoryInterface interface {
	Create(conv *models.Conversation) error
	FindByID(id uint) (*models.Conversation, error)
	FindByPair(userAID, userBID uint) (*models.Conversation, error)
	FindByParticipant(userID uint) ([]models.Conversation, error)
	FindAll() ([]models.Conversation, error)
	TouchLastMessage(id uint, last models.LastMessage, at time.Time) error
	Delete(id uint) error
}

// MessageRepositoryInterface defines the contract for message log operations
type MessageRepositoryInterface interface {
	Create(message *models.Message) error
	FindByID(id uint) (*models.Message, error)
	FindByClientID(clientID string, senderID uint) (*models.Message, error)
	FindByConversation(conversationID uint) ([]models.Message, error)
	DeleteByConversation(conversationID uint) error
}

// UserConversationRepositoryInterface defines the contract for per-user
// unread counters and read watermarks
type UserConversationRepositoryInterface interface {
	Create(state *models.UserConversationState) error
	Get(userID, conversationID uint) (*models.UserConversationState, error)
	ListByUser(userID uint) ([]models.UserConversationState, error)
	IncrementUnread(userID, conversationID uint) error
	ResetUnread(userID, conversationID uint, readAt time.Time) (int64, error)
	SumUnread(userID uint) (int64, error)
	DeleteByConversation(conversationID uint) error
}

// PendingMessageRepositoryInterface defines the contract for the offline delivery queue
type PendingMessageRepositoryInterface interface {
	Enqueue(userID, messageID uint, payload string, priority int) error
	GetPendingForUser(userID uint, limit int) ([]models.PendingMessage, error)
	GetRetryable(limit int) ([]models.PendingMessage, error)
	MarkAttempted(id uint, attempts int, nextRetry *time.Time) error
	Delete(id uint) error
	DeleteBatch(ids []uint) error
	CountPendingForUser(userID uint) (int64, error)
	CleanupOld(olderThan time.Duration) error
}
