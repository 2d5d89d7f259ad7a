package handlers

import (
	"strconv"

	"github.com/folionet/messaging-backend/internal/httpx"
	"github.com/folionet/messaging-backend/internal/service"
	"github.com/gofiber/fiber/v2"
)

type UnreadHandler struct {
	unreadService *service.UnreadService
}

func NewUnreadHandler(unreadService *service.UnreadService) *UnreadHandler {
	return &UnreadHandler{unreadService: unreadService}
}

// GetCounts returns the caller's unread count per conversation. Conversations
// with nothing unread appear with a zero count.
func (h *UnreadHandler) GetCounts(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	counts, err := h.unreadService.GetAllUnreadCounts(userID)
	if err != nil {
		return httpx.ServiceError(c, "fetch_unread_failed", err)
	}

	// JSON object keys are strings
	byConversation := make(map[string]int64, len(counts))
	for conversationID, count := range counts {
		byConversation[strconv.FormatUint(uint64(conversationID), 10)] = count
	}

	return c.JSON(fiber.Map{
		"unread": byConversation,
	})
}

// GetTotal returns the caller's unread count summed across all conversations,
// for badge rendering.
func (h *UnreadHandler) GetTotal(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	total, err := h.unreadService.GetTotalUnread(userID)
	if err != nil {
		return httpx.ServiceError(c, "fetch_unread_failed", err)
	}

	return c.JSON(fiber.Map{
		"total": total,
	})
}
