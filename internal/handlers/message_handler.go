package handlers

import (
	"github.com/folionet/messaging-backend/internal/httpx"
	"github.com/folionet/messaging-backend/internal/models"
	"github.com/folionet/messaging-backend/internal/service"
	"github.com/gofiber/fiber/v2"
)

type MessageHandler struct {
	messageService      *service.MessageService
	conversationService *service.ConversationService
	unreadService       *service.UnreadService
}

func NewMessageHandler(messageService *service.MessageService, conversationService *service.ConversationService, unreadService *service.UnreadService) *MessageHandler {
	return &MessageHandler{
		messageService:      messageService,
		conversationService: conversationService,
		unreadService:       unreadService,
	}
}

type sendMessageInput struct {
	Text     string `json:"text"`
	ClientID string `json:"client_id"`
}

// SendMessage appends a message to the conversation in the path. Retried
// requests carrying the same client_id return the originally stored message.
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	conversationID, err := c.ParamsInt("id")
	if err != nil || conversationID <= 0 {
		return httpx.BadRequest(c, "invalid_conversation_id", "Invalid conversation id")
	}

	var input sendMessageInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	message, err := h.messageService.SendWithClientID(uint(conversationID), userID, input.ClientID, input.Text)
	if err != nil {
		return httpx.ServiceError(c, "send_message_failed", err)
	}

	return c.Status(fiber.StatusCreated).JSON(message.ToResponse())
}

// GetMessages returns the conversation's full log, oldest first. Only
// participants may read it.
func (h *MessageHandler) GetMessages(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	conversationID, err := c.ParamsInt("id")
	if err != nil || conversationID <= 0 {
		return httpx.BadRequest(c, "invalid_conversation_id", "Invalid conversation id")
	}

	conversation, err := h.conversationService.GetByID(uint(conversationID))
	if err != nil {
		return httpx.ServiceError(c, "fetch_conversation_failed", err)
	}
	if conversation == nil {
		return httpx.NotFound(c, "conversation_not_found", "Conversation not found")
	}
	if !conversation.HasParticipant(userID) {
		return httpx.Forbidden(c, "forbidden", "Not a participant of this conversation")
	}

	messages, err := h.messageService.GetMessages(uint(conversationID))
	if err != nil {
		return httpx.ServiceError(c, "fetch_messages_failed", err)
	}

	responses := make([]models.MessageResponse, len(messages))
	for i := range messages {
		responses[i] = messages[i].ToResponse()
	}

	return c.JSON(fiber.Map{
		"messages": responses,
		"count":    len(responses),
	})
}

// MarkRead zeroes the caller's unread counter for the conversation. Marking a
// conversation with no unread messages, or one the caller has no counter for
// yet, succeeds without effect.
func (h *MessageHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	conversationID, err := c.ParamsInt("id")
	if err != nil || conversationID <= 0 {
		return httpx.BadRequest(c, "invalid_conversation_id", "Invalid conversation id")
	}

	if err := h.unreadService.MarkRead(uint(conversationID), userID); err != nil {
		return httpx.ServiceError(c, "mark_read_failed", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
