package cache

import (
	"fmt"
	"time"

	"github.com/folionet/messaging-backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// TTL constants for different cache types
const (
	ConversationListTTL = 5 * time.Minute
	MessageListTTL      = 5 * time.Minute
	UnreadCountTTL      = 1 * time.Minute
)

// ConversationCache caches per-user conversation lists and per-conversation
// message logs. All methods are nil-safe so the service layer can run without
// Redis.
type ConversationCache struct {
	redis *RedisCache
}

func NewConversationCache(redis *RedisCache) *ConversationCache {
	return &ConversationCache{redis: redis}
}

func conversationListKey(userID uint) string {
	return fmt.Sprintf("convlist:%d", userID)
}

func messageListKey(conversationID uint) string {
	return fmt.Sprintf("msgs:%d", conversationID)
}

// GetList retrieves a cached conversation list for a user
func (cc *ConversationCache) GetList(userID uint) ([]models.Conversation, bool) {
	if cc == nil || cc.redis == nil {
		return nil, false
	}
	data, err := cc.redis.Get(conversationListKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var convs []models.Conversation
	if err := msgpack.Unmarshal(data, &convs); err != nil {
		return nil, false
	}
	return convs, true
}

// SetList caches a conversation list for a user
func (cc *ConversationCache) SetList(userID uint, convs []models.Conversation) error {
	if cc == nil || cc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(convs)
	if err != nil {
		return err
	}
	return cc.redis.Set(conversationListKey(userID), data, ConversationListTTL)
}

// InvalidateList drops a user's cached conversation list
func (cc *ConversationCache) InvalidateList(userID uint) error {
	if cc == nil || cc.redis == nil {
		return nil
	}
	return cc.redis.Delete(conversationListKey(userID))
}

// GetMessages retrieves a cached message log for a conversation
func (cc *ConversationCache) GetMessages(conversationID uint) ([]models.Message, bool) {
	if cc == nil || cc.redis == nil {
		return nil, false
	}
	data, err := cc.redis.Get(messageListKey(conversationID))
	if err != nil || data == nil {
		return nil, false
	}

	var messages []models.Message
	if err := msgpack.Unmarshal(data, &messages); err != nil {
		return nil, false
	}
	return messages, true
}

// SetMessages caches a conversation's message log
func (cc *ConversationCache) SetMessages(conversationID uint, messages []models.Message) error {
	if cc == nil || cc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(messages)
	if err != nil {
		return err
	}
	return cc.redis.Set(messageListKey(conversationID), data, MessageListTTL)
}

// InvalidateMessages drops a conversation's cached message log
func (cc *ConversationCache) InvalidateMessages(conversationID uint) error {
	if cc == nil || cc.redis == nil {
		return nil
	}
	return cc.redis.Delete(messageListKey(conversationID))
}
