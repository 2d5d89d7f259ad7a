package service

import (
	"fmt"
	"log"
	"sort"

	"github.com/folionet/messaging-backend/internal/models"
	"github.com/folionet/messaging-backend/internal/realtime"
	"github.com/folionet/messaging-backend/internal/repository"
)

// The store-level queries cannot combine the participant filter with a
// server-side order-by in every deployment, so snapshots are defensively
// re-sorted here on every emission.

func sortConversationsByActivity(convs []models.Conversation) []models.Conversation {
	sort.SliceStable(convs, func(i, j int) bool {
		if convs[i].UpdatedAt.Equal(convs[j].UpdatedAt) {
			return convs[i].ID > convs[j].ID
		}
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs
}

func sortMessagesByTime(messages []models.Message) []models.Message {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages
}

// publishConversationSnapshots loads and pushes the current conversation list
// for each user that has live subscribers. A failed load is terminal for that
// user's feed.
func publishConversationSnapshots(broker *realtime.Broker, convRepo repository.ConversationRepositoryInterface, userIDs ...uint) {
	if broker == nil {
		return
	}
	for _, userID := range userIDs {
		if !broker.HasConversationSubscribers(userID) {
			continue
		}
		convs, err := convRepo.FindByParticipant(userID)
		if err != nil {
			log.Printf("conversation snapshot load failed for user %d: %v", userID, err)
			broker.FailConversations(userID, fmt.Errorf("%w: %v", ErrSubscriptionFailed, err))
			continue
		}
		broker.PublishConversations(userID, sortConversationsByActivity(convs))
	}
}

// publishMessageSnapshot loads and pushes the current message log for a
// conversation with live subscribers.
func publishMessageSnapshot(broker *realtime.Broker, messageRepo repository.MessageRepositoryInterface, conversationID uint) {
	if broker == nil || !broker.HasMessageSubscribers(conversationID) {
		return
	}
	messages, err := messageRepo.FindByConversation(conversationID)
	if err != nil {
		log.Printf("message snapshot load failed for conversation %d: %v", conversationID, err)
		broker.FailMessages(conversationID, fmt.Errorf("%w: %v", ErrSubscriptionFailed, err))
		return
	}
	broker.PublishMessages(conversationID, sortMessagesByTime(messages))
}
