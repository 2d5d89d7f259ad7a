package ws

import (
	"errors"
	"fmt"
	"time"

	"github.com/folionet/messaging-backend/internal/models"
	"github.com/folionet/messaging-backend/internal/service"
)

// MessageSubscribeConversations opens a live feed of the caller's conversation
// list. The current snapshot is pushed immediately, then again after every
// change.
type MessageSubscribeConversations struct {
}

func (msg *MessageSubscribeConversations) GetType() string {
	return "subscribe_conversations"
}

func (msg *MessageSubscribeConversations) Process(ctx *MessageContext) error {
	userID := ctx.UserID
	cancel, err := ctx.ConversationService.Subscribe(userID,
		func(conversations []models.Conversation) {
			_ = ctx.Hub.SendToUser(userID, NewConversationSnapshot(conversations))
		},
		func(err error) {
			_ = SendError(ctx.Conn, "conversation_feed_failed", "Conversation feed failed", err.Error())
		},
	)
	if err != nil {
		return err
	}

	ctx.Subs.Set("conversations", cancel)
	return nil
}

// MessageSubscribeMessages opens a live feed of one conversation's message log.
type MessageSubscribeMessages struct {
	ConversationID uint `json:"conversation_id"`
}

func (msg *MessageSubscribeMessages) GetType() string {
	return "subscribe_messages"
}

func (msg *MessageSubscribeMessages) Process(ctx *MessageContext) error {
	conv, err := ctx.ConversationService.GetByID(msg.ConversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("%w: conversation %d", service.ErrNotFound, msg.ConversationID)
	}
	if !conv.HasParticipant(ctx.UserID) {
		return fmt.Errorf("%w: user %d is not a participant of conversation %d", service.ErrPermissionDenied, ctx.UserID, msg.ConversationID)
	}

	userID := ctx.UserID
	conversationID := msg.ConversationID
	cancel, err := ctx.MessageService.Subscribe(conversationID,
		func(messages []models.Message) {
			_ = ctx.Hub.SendToUser(userID, NewMessageSnapshot(conversationID, messages))
		},
		func(err error) {
			_ = SendError(ctx.Conn, "message_feed_failed", "Message feed failed", err.Error())
		},
	)
	if err != nil {
		return err
	}

	ctx.Subs.Set(messageFeedKey(conversationID), cancel)
	return nil
}

// MessageUnsubscribe detaches a feed previously opened on this connection.
// Unsubscribing from a feed that is not open is a no-op.
type MessageUnsubscribe struct {
	Feed           string `json:"feed"`
	ConversationID uint   `json:"conversation_id,omitempty"`
}

func (msg *MessageUnsubscribe) GetType() string {
	return "unsubscribe"
}

func (msg *MessageUnsubscribe) Process(ctx *MessageContext) error {
	switch msg.Feed {
	case "conversations":
		ctx.Subs.Cancel("conversations")
	case "messages":
		ctx.Subs.Cancel(messageFeedKey(msg.ConversationID))
	default:
		return fmt.Errorf("unknown feed: %s", msg.Feed)
	}
	return nil
}

// MessageSend appends a message to a conversation. The sender gets an ack
// frame carrying the stored message; both participants' open feeds receive
// fresh snapshots through the send's side effects.
type MessageSend struct {
	ConversationID uint   `json:"conversation_id"`
	ClientID       string `json:"client_id,omitempty"`
	Text           string `json:"text"`
}

func (msg *MessageSend) GetType() string {
	return "send_message"
}

func (msg *MessageSend) Process(ctx *MessageContext) error {
	message, err := ctx.MessageService.SendWithClientID(msg.ConversationID, ctx.UserID, msg.ClientID, msg.Text)
	if err != nil {
		_ = SendError(ctx.Conn, serviceErrorCode(err), "Failed to send message", err.Error())
		return nil
	}

	ack := MessageAck{
		Type:      "ack",
		ClientID:  message.ClientID,
		MessageID: message.ID,
		Timestamp: message.CreatedAt,
	}
	return ctx.Hub.SendToUser(ctx.UserID, ack)
}

// MessageMarkRead zeroes the caller's unread counter for a conversation.
type MessageMarkRead struct {
	ConversationID uint `json:"conversation_id"`
}

func (msg *MessageMarkRead) GetType() string {
	return "mark_read"
}

func (msg *MessageMarkRead) Process(ctx *MessageContext) error {
	return ctx.UnreadService.MarkRead(msg.ConversationID, ctx.UserID)
}

// MessageAck confirms a stored send back to its sender.
type MessageAck struct {
	Type      string    `json:"type"`
	ClientID  string    `json:"client_id,omitempty"`
	MessageID uint      `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationSnapshot carries the full conversation list of one user, sorted
// by latest activity first.
type ConversationSnapshot struct {
	Type          string                        `json:"type"`
	Conversations []models.ConversationResponse `json:"conversations"`
	Count         int                           `json:"count"`
}

func NewConversationSnapshot(conversations []models.Conversation) ConversationSnapshot {
	responses := make([]models.ConversationResponse, len(conversations))
	for i := range conversations {
		responses[i] = conversations[i].ToResponse()
	}
	return ConversationSnapshot{
		Type:          "conversation_snapshot",
		Conversations: responses,
		Count:         len(responses),
	}
}

// MessageSnapshot carries the full message log of one conversation, oldest
// first.
type MessageSnapshot struct {
	Type           string                   `json:"type"`
	ConversationID uint                     `json:"conversation_id"`
	Messages       []models.MessageResponse `json:"messages"`
	Count          int                      `json:"count"`
}

func NewMessageSnapshot(conversationID uint, messages []models.Message) MessageSnapshot {
	responses := make([]models.MessageResponse, len(messages))
	for i := range messages {
		responses[i] = messages[i].ToResponse()
	}
	return MessageSnapshot{
		Type:           "message_snapshot",
		ConversationID: conversationID,
		Messages:       responses,
		Count:          len(responses),
	}
}

func messageFeedKey(conversationID uint) string {
	return fmt.Sprintf("messages:%d", conversationID)
}

func serviceErrorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, service.ErrNotFound):
		return "not_found"
	case errors.Is(err, service.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, service.ErrSubscriptionFailed):
		return "subscription_failed"
	default:
		return "operation_failed"
	}
}
