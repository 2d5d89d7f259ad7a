package cache

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const ProfileTTL = 10 * time.Minute

// ProfileCache caches profiles fetched from the external account service, so
// rendering a conversation list does not hammer it with lookups. The value
// type is the caller's; profiles are msgpack-coded opaquely here.
type ProfileCache struct {
	redis *RedisCache
}

func NewProfileCache(redis *RedisCache) *ProfileCache {
	return &ProfileCache{redis: redis}
}

func profileKey(userID uint) string {
	return fmt.Sprintf("profile:%d", userID)
}

// Get unmarshals a cached profile into out; false when absent
func (pc *ProfileCache) Get(userID uint, out interface{}) bool {
	if pc == nil || pc.redis == nil {
		return false
	}
	data, err := pc.redis.Get(profileKey(userID))
	if err != nil || data == nil {
		return false
	}
	return msgpack.Unmarshal(data, out) == nil
}

// Set caches a profile
func (pc *ProfileCache) Set(userID uint, profile interface{}) error {
	if pc == nil || pc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(profile)
	if err != nil {
		return err
	}
	return pc.redis.Set(profileKey(userID), data, ProfileTTL)
}

// Invalidate drops a cached profile
func (pc *ProfileCache) Invalidate(userID uint) error {
	if pc == nil || pc.redis == nil {
		return nil
	}
	return pc.redis.Delete(profileKey(userID))
}
