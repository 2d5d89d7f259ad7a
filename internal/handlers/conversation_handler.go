package handlers

import (
	"log"

	"github.com/folionet/messaging-backend/internal/httpx"
	"github.com/folionet/messaging-backend/internal/models"
	"github.com/folionet/messaging-backend/internal/service"
	"github.com/gofiber/fiber/v2"
)

type ConversationHandler struct {
	conversationService *service.ConversationService
	unreadService       *service.UnreadService
}

func NewConversationHandler(conversationService *service.ConversationService, unreadService *service.UnreadService) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		unreadService:       unreadService,
	}
}

type getOrCreateConversationInput struct {
	PeerID uint `json:"peer_id"`
}

// GetOrCreate returns the caller's conversation with the given peer, creating
// it if none exists yet. Repeated calls with the same peer return the same
// conversation.
func (h *ConversationHandler) GetOrCreate(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input getOrCreateConversationInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if input.PeerID == 0 {
		return httpx.BadRequest(c, "missing_peer", "peer_id is required")
	}

	conversation, err := h.conversationService.GetOrCreate(userID, input.PeerID)
	if err != nil {
		return httpx.ServiceError(c, "get_or_create_conversation_failed", err)
	}

	return c.Status(fiber.StatusCreated).JSON(conversation.ToResponse())
}

// List returns the caller's conversations sorted by latest activity, each
// annotated with the caller's unread count.
func (h *ConversationHandler) List(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	conversations, err := h.conversationService.ListForUser(userID)
	if err != nil {
		return httpx.ServiceError(c, "fetch_conversations_failed", err)
	}

	unread, err := h.unreadService.GetAllUnreadCounts(userID)
	if err != nil {
		// The list is still useful without counts
		log.Printf("Failed to load unread counts for user %d: %v", userID, err)
		unread = map[uint]int64{}
	}

	responses := make([]models.ConversationResponse, len(conversations))
	for i := range conversations {
		responses[i] = conversations[i].ToResponse()
		responses[i].UnreadCount = unread[conversations[i].ID]
	}

	return c.JSON(fiber.Map{
		"conversations": responses,
		"count":         len(responses),
	})
}

// Get returns one conversation; only its participants may read it.
func (h *ConversationHandler) Get(c *fiber.Ctx) error {
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

	return c.JSON(conversation.ToResponse())
}

// Cleanup collapses duplicate conversations that slipped past get-or-create
// under concurrency. Admin only.
func (h *ConversationHandler) Cleanup(c *fiber.Ctx) error {
	removed, err := h.conversationService.CleanupDuplicates()
	if err != nil {
		return httpx.ServiceError(c, "cleanup_failed", err)
	}

	return c.JSON(fiber.Map{
		"removed": removed,
	})
}
