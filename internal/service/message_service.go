package service

import (
	"fmt"
	"log"

	"github.com/folionet/messaging-backend/internal/cache"
	"github.com/folionet/messaging-backend/internal/models"
	"github.com/folionet/messaging-backend/internal/realtime"
	"github.com/folionet/messaging-backend/internal/repository"
	"github.com/folionet/messaging-backend/internal/validation"
	"github.com/google/uuid"
)

// MessageService appends to the immutable message log and fans the side
// effects of a send out to the denormalized conversation snapshot, the unread
// counters, and the live feeds.
type MessageService struct {
	messageRepo repository.MessageRepositoryInterface
	convRepo    repository.ConversationRepositoryInterface
	stateRepo   repository.UserConversationRepositoryInterface
	broker      *realtime.Broker
	hub         *realtime.Hub
	convCache   *cache.ConversationCache
	unreadCache *cache.UnreadCache
}

func NewMessageService(
	messageRepo repository.MessageRepositoryInterface,
	convRepo repository.ConversationRepositoryInterface,
	stateRepo repository.UserConversationRepositoryInterface,
	broker *realtime.Broker,
	hub *realtime.Hub,
	convCache *cache.ConversationCache,
	unreadCache *cache.UnreadCache,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		convRepo:    convRepo,
		stateRepo:   stateRepo,
		broker:      broker,
		hub:         hub,
		convCache:   convCache,
		unreadCache: unreadCache,
	}
}

// Send appends a message to the conversation. Validation failures and a
// missing conversation fail the call; everything after the message row is
// written (last-message snapshot, unread counters, cache invalidation, feed
// publishing) is best-effort and only logged, because the message itself is
// the durable source of truth.
func (s *MessageService) Send(conversationID, senderID uint, text string) (*models.Message, error) {
	return s.send(conversationID, senderID, "", text)
}

// SendWithClientID behaves like Send but deduplicates retried sends by the
// client-generated ID: a second send with the same (clientID, senderID)
// returns the already-stored message.
func (s *MessageService) SendWithClientID(conversationID, senderID uint, clientID, text string) (*models.Message, error) {
	if clientID != "" {
		existing, err := s.messageRepo.FindByClientID(clientID, senderID)
		if err != nil {
			return nil, fmt.Errorf("%w: deduplicating by client id: %v", ErrOperationFailed, err)
		}
		if existing != nil {
			return existing, nil
		}
	}
	return s.send(conversationID, senderID, clientID, text)
}

func (s *MessageService) send(conversationID, senderID uint, clientID, text string) (*models.Message, error) {
	text = validation.NormalizeMessageText(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message text is empty", ErrInvalidInput)
	}
	if !validation.ValidMessageText(text) {
		return nil, fmt.Errorf("%w: message text exceeds %d characters", ErrInvalidInput, validation.MaxMessageLength())
	}
	if !validation.ValidUserID(senderID) {
		return nil, fmt.Errorf("%w: sender id is required", ErrInvalidInput)
	}

	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: looking up conversation %d: %v", ErrOperationFailed, conversationID, err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: conversation %d", ErrNotFound, conversationID)
	}
	if !conv.HasParticipant(senderID) {
		return nil, fmt.Errorf("%w: user %d is not a participant of conversation %d", ErrPermissionDenied, senderID, conversationID)
	}

	// The (client_id, sender_id) pair is unique; sends without a client ID
	// get a server-generated one.
	if clientID == "" {
		clientID = uuid.NewString()
	}

	message := &models.Message{
		ClientID:       clientID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
	}
	if err := s.messageRepo.Create(message); err != nil {
		return nil, fmt.Errorf("%w: writing message: %v", ErrOperationFailed, err)
	}

	s.afterSend(conv, message)

	return message, nil
}

// afterSend applies the denormalized side effects of a successful send.
// Failures here never surface to the sender; the snapshots can be re-derived
// from the message log.
func (s *MessageService) afterSend(conv *models.Conversation, message *models.Message) {
	last := models.LastMessage{
		Text:     message.Text,
		SenderID: message.SenderID,
		SentAt:   message.CreatedAt,
	}
	if err := s.convRepo.TouchLastMessage(conv.ID, last, message.CreatedAt); err != nil {
		log.Printf("send: updating last message of conversation %d: %v", conv.ID, err)
	}

	peerID := conv.PeerOf(message.SenderID)
	if err := s.stateRepo.IncrementUnread(peerID, conv.ID); err != nil {
		log.Printf("send: incrementing unread count for user %d in conversation %d: %v", peerID, conv.ID, err)
	}

	s.convCache.InvalidateMessages(conv.ID)
	s.convCache.InvalidateList(conv.UserAID)
	s.convCache.InvalidateList(conv.UserBID)
	s.unreadCache.Invalidate(peerID)

	// Durable fan-out to the recipient; queued when offline
	if s.hub != nil {
		delivery := realtime.MessageDelivery{
			Type:           "message",
			ConversationID: conv.ID,
			MessageID:      message.ID,
			SenderID:       message.SenderID,
			Text:           message.Text,
			Timestamp:      message.CreatedAt,
		}
		if err := s.hub.SendToUserWithID(peerID, message.ID, delivery); err != nil {
			log.Printf("send: delivering message %d to user %d: %v", message.ID, peerID, err)
		}
	}

	publishMessageSnapshot(s.broker, s.messageRepo, conv.ID)
	publishConversationSnapshots(s.broker, s.convRepo, conv.UserAID, conv.UserBID)
}

// GetMessages returns the conversation's log ascending by timestamp.
func (s *MessageService) GetMessages(conversationID uint) ([]models.Message, error) {
	if cached, ok := s.convCache.GetMessages(conversationID); ok {
		return cached, nil
	}

	messages, err := s.messageRepo.FindByConversation(conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: reading messages of conversation %d: %v", ErrOperationFailed, conversationID, err)
	}
	messages = sortMessagesByTime(messages)
	if len(messages) > 0 {
		_ = s.convCache.SetMessages(conversationID, messages)
	}
	return messages, nil
}

// Subscribe registers a live feed of the conversation's message log. The
// current log is pushed immediately, then again after every send.
func (s *MessageService) Subscribe(conversationID uint, onUpdate realtime.MessageSnapshotFunc, onError realtime.ErrorFunc) (func(), error) {
	messages, err := s.messageRepo.FindByConversation(conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading initial snapshot: %v", ErrSubscriptionFailed, err)
	}

	cancel := s.broker.SubscribeMessages(conversationID, onUpdate, onError)
	onUpdate(sortMessagesByTime(messages))
	return cancel, nil
}
