package service

import (
	"fmt"
	"log"
	"time"

	"github.com/folionet/messaging-backend/internal/cache"
	"github.com/folionet/messaging-backend/internal/repository"
	"github.com/folionet/messaging-backend/internal/validation"
)

// UnreadService reads and resets the per-(user, conversation) unread
// counters. Counters are eventually consistent with message delivery: a
// subscriber may observe a new message before the matching counter change,
// and consumers must tolerate that.
type UnreadService struct {
	stateRepo   repository.UserConversationRepositoryInterface
	unreadCache *cache.UnreadCache
}

func NewUnreadService(stateRepo repository.UserConversationRepositoryInterface, unreadCache *cache.UnreadCache) *UnreadService {
	return &UnreadService{stateRepo: stateRepo, unreadCache: unreadCache}
}

// MarkRead zeroes the user's counter for the conversation and stamps the read
// watermark. Idempotent: repeated calls only refresh the timestamp. A missing
// state row means the user is not a participant; that is logged and swallowed
// because read-marking is routinely fired by UI effects that can race with
// conversation setup.
func (s *UnreadService) MarkRead(conversationID, userID uint) error {
	rows, err := s.stateRepo.ResetUnread(userID, conversationID, time.Now())
	if err != nil {
		return fmt.Errorf("%w: resetting unread count: %v", ErrOperationFailed, err)
	}
	if rows == 0 {
		log.Printf("markRead: no state row for user %d in conversation %d", userID, conversationID)
		return nil
	}

	s.unreadCache.Invalidate(userID)
	return nil
}

// GetUnreadCount returns 0 when no state row exists.
func (s *UnreadService) GetUnreadCount(userID, conversationID uint) (int64, error) {
	state, err := s.stateRepo.Get(userID, conversationID)
	if err != nil {
		return 0, fmt.Errorf("%w: reading unread count: %v", ErrOperationFailed, err)
	}
	if state == nil {
		return 0, nil
	}
	return state.UnreadCount, nil
}

// GetAllUnreadCounts maps every conversation the user participates in to its
// unread count, including zeroes.
func (s *UnreadService) GetAllUnreadCounts(userID uint) (map[uint]int64, error) {
	if !validation.ValidUserID(userID) {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	if cached, ok := s.unreadCache.GetCounts(userID); ok {
		return cached, nil
	}

	states, err := s.stateRepo.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing unread counts: %v", ErrOperationFailed, err)
	}

	counts := make(map[uint]int64, len(states))
	for _, state := range states {
		counts[state.ConversationID] = state.UnreadCount
	}

	_ = s.unreadCache.SetCounts(userID, counts)
	return counts, nil
}

// GetTotalUnread sums the user's unread counters across all conversations.
func (s *UnreadService) GetTotalUnread(userID uint) (int64, error) {
	if !validation.ValidUserID(userID) {
		return 0, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	total, err := s.stateRepo.SumUnread(userID)
	if err != nil {
		return 0, fmt.Errorf("%w: summing unread counts: %v", ErrOperationFailed, err)
	}
	return total, nil
}
