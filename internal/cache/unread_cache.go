package cache

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// UnreadCache caches the per-user unread-count map. The counter badge is
// eventually consistent anyway, so a short TTL is acceptable.
type UnreadCache struct {
	redis *RedisCache
}

func NewUnreadCache(redis *RedisCache) *UnreadCache {
	return &UnreadCache{redis: redis}
}

func unreadKey(userID uint) string {
	return fmt.Sprintf("unread:%d", userID)
}

// GetCounts retrieves the cached conversationID -> unread count map
func (uc *UnreadCache) GetCounts(userID uint) (map[uint]int64, bool) {
	if uc == nil || uc.redis == nil {
		return nil, false
	}
	data, err := uc.redis.Get(unreadKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var counts map[uint]int64
	if err := msgpack.Unmarshal(data, &counts); err != nil {
		return nil, false
	}
	return counts, true
}

// SetCounts caches the unread-count map for a user
func (uc *UnreadCache) SetCounts(userID uint, counts map[uint]int64) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(counts)
	if err != nil {
		return err
	}
	return uc.redis.Set(unreadKey(userID), data, UnreadCountTTL)
}

// Invalidate drops a user's cached unread counts
func (uc *UnreadCache) Invalidate(userID uint) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	return uc.redis.Delete(unreadKey(userID))
}
