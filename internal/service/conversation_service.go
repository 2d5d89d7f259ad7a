package service

import (
	"fmt"
	"log"
	"time"

	"github.com/folionet/messaging-backend/internal/cache"
	"github.com/folionet/messaging-backend/internal/models"
	"github.com/folionet/messaging-backend/internal/realtime"
	"github.com/folionet/messaging-backend/internal/repository"
	"github.com/folionet/messaging-backend/internal/validation"
)

// seedMessageText is the synthetic last-message snapshot a fresh conversation
// carries so it renders in the inbox before anyone has written.
const seedMessageText = "Conversation created"

// ConversationService owns the canonical participant-pair -> conversation
// mapping: idempotent get-or-create, lookups, the live conversation-list feed,
// and the lazy duplicate cleanup pass.
type ConversationService struct {
	convRepo    repository.ConversationRepositoryInterface
	stateRepo   repository.UserConversationRepositoryInterface
	messageRepo repository.MessageRepositoryInterface
	broker      *realtime.Broker
	convCache   *cache.ConversationCache
}

func NewConversationService(
	convRepo repository.ConversationRepositoryInterface,
	stateRepo repository.UserConversationRepositoryInterface,
	messageRepo repository.MessageRepositoryInterface,
	broker *realtime.Broker,
	convCache *cache.ConversationCache,
) *ConversationService {
	return &ConversationService{
		convRepo:    convRepo,
		stateRepo:   stateRepo,
		messageRepo: messageRepo,
		broker:      broker,
		convCache:   convCache,
	}
}

// GetOrCreate returns the conversation for the unordered pair (userID1,
// userID2), creating it together with both participants' state rows when it
// does not exist yet. The three writes are one logical unit: if a state row
// cannot be written, the conversation is rolled back.
//
// No unique index backs the pair, so two concurrent first contacts can still
// produce a duplicate; CleanupDuplicates repairs that lazily.
func (s *ConversationService) GetOrCreate(userID1, userID2 uint) (*models.Conversation, error) {
	if !validation.ValidUserID(userID1) || !validation.ValidUserID(userID2) {
		return nil, fmt.Errorf("%w: participant ids are required", ErrInvalidInput)
	}
	if userID1 == userID2 {
		return nil, fmt.Errorf("%w: cannot create a conversation with yourself", ErrInvalidInput)
	}

	userAID, userBID := models.CanonicalPair(userID1, userID2)

	existing, err := s.convRepo.FindByPair(userAID, userBID)
	if err != nil {
		return nil, fmt.Errorf("%w: looking up conversation: %v", ErrOperationFailed, err)
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	conv := &models.Conversation{
		UserAID: userAID,
		UserBID: userBID,
		LastMessage: models.LastMessage{
			Text:     seedMessageText,
			SenderID: models.SystemSenderID,
			SentAt:   now,
		},
	}
	if err := s.convRepo.Create(conv); err != nil {
		return nil, fmt.Errorf("%w: creating conversation: %v", ErrOperationFailed, err)
	}

	for _, userID := range conv.Participants() {
		state := &models.UserConversationState{
			UserID:         userID,
			ConversationID: conv.ID,
		}
		if err := s.stateRepo.Create(state); err != nil {
			// Roll back the half-created unit so no orphan conversation
			// survives.
			if derr := s.stateRepo.DeleteByConversation(conv.ID); derr != nil {
				log.Printf("rollback: deleting state rows for conversation %d: %v", conv.ID, derr)
			}
			if derr := s.convRepo.Delete(conv.ID); derr != nil {
				log.Printf("rollback: deleting conversation %d: %v", conv.ID, derr)
			}
			return nil, fmt.Errorf("%w: creating participant state for user %d: %v", ErrOperationFailed, userID, err)
		}
	}

	s.convCache.InvalidateList(userAID)
	s.convCache.InvalidateList(userBID)
	publishConversationSnapshots(s.broker, s.convRepo, userAID, userBID)

	return conv, nil
}

// GetByID returns (nil, nil) when the conversation does not exist.
func (s *ConversationService) GetByID(id uint) (*models.Conversation, error) {
	conv, err := s.convRepo.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: looking up conversation %d: %v", ErrOperationFailed, id, err)
	}
	return conv, nil
}

// GetByParticipants scans userID1's conversations and filters for userID2
// membership. Returns (nil, nil) when no conversation exists for the pair.
func (s *ConversationService) GetByParticipants(userID1, userID2 uint) (*models.Conversation, error) {
	if !validation.ValidUserID(userID1) || !validation.ValidUserID(userID2) {
		return nil, fmt.Errorf("%w: participant ids are required", ErrInvalidInput)
	}
	if userID1 == userID2 {
		return nil, fmt.Errorf("%w: a conversation has two distinct participants", ErrInvalidInput)
	}

	convs, err := s.convRepo.FindByParticipant(userID1)
	if err != nil {
		return nil, fmt.Errorf("%w: listing conversations for user %d: %v", ErrOperationFailed, userID1, err)
	}
	for i := range convs {
		if convs[i].HasParticipant(userID2) {
			return &convs[i], nil
		}
	}
	return nil, nil
}

// ListForUser returns the user's conversations sorted by most recent activity.
func (s *ConversationService) ListForUser(userID uint) ([]models.Conversation, error) {
	if !validation.ValidUserID(userID) {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	if cached, ok := s.convCache.GetList(userID); ok {
		return cached, nil
	}

	convs, err := s.convRepo.FindByParticipant(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing conversations for user %d: %v", ErrOperationFailed, userID, err)
	}
	convs = sortConversationsByActivity(convs)
	if len(convs) > 0 {
		_ = s.convCache.SetList(userID, convs)
	}
	return convs, nil
}

// Subscribe registers a live feed of the user's conversation list. The
// current list is pushed immediately, then again after every mutation that
// touches it. The returned cancel func detaches the feed.
func (s *ConversationService) Subscribe(userID uint, onUpdate realtime.ConversationSnapshotFunc, onError realtime.ErrorFunc) (func(), error) {
	if !validation.ValidUserID(userID) {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	convs, err := s.convRepo.FindByParticipant(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading initial snapshot: %v", ErrSubscriptionFailed, err)
	}

	cancel := s.broker.SubscribeConversations(userID, onUpdate, onError)
	onUpdate(sortConversationsByActivity(convs))
	return cancel, nil
}

// CleanupDuplicates scans all conversations, groups them by canonical
// participant pair, and deletes all but the earliest-created row per group,
// along with the duplicates' messages and state rows. Returns the number of
// conversations removed.
func (s *ConversationService) CleanupDuplicates() (int, error) {
	convs, err := s.convRepo.FindAll()
	if err != nil {
		return 0, fmt.Errorf("%w: scanning conversations: %v", ErrOperationFailed, err)
	}

	// FindAll orders by created_at ascending, so the first row seen per pair
	// is the one to keep.
	seen := make(map[[2]uint]bool)
	affected := make(map[uint]bool)
	removed := 0

	for i := range convs {
		pair := convs[i].Participants()
		if !seen[pair] {
			seen[pair] = true
			continue
		}

		id := convs[i].ID
		if err := s.messageRepo.DeleteByConversation(id); err != nil {
			log.Printf("cleanup: deleting messages of duplicate conversation %d: %v", id, err)
			continue
		}
		if err := s.stateRepo.DeleteByConversation(id); err != nil {
			log.Printf("cleanup: deleting state rows of duplicate conversation %d: %v", id, err)
			continue
		}
		if err := s.convRepo.Delete(id); err != nil {
			log.Printf("cleanup: deleting duplicate conversation %d: %v", id, err)
			continue
		}

		removed++
		affected[pair[0]] = true
		affected[pair[1]] = true
		log.Printf("cleanup: removed duplicate conversation %d for pair (%d, %d)", id, pair[0], pair[1])
	}

	for userID := range affected {
		s.convCache.InvalidateList(userID)
	}
	userIDs := make([]uint, 0, len(affected))
	for userID := range affected {
		userIDs = append(userIDs, userID)
	}
	publishConversationSnapshots(s.broker, s.convRepo, userIDs...)

	return removed, nil
}
