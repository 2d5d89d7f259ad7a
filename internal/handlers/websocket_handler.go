package handlers

import (
	"log"
	"os"

	"github.com/folionet/messaging-backend/internal/cache"
	"github.com/folionet/messaging-backend/internal/handlers/ws"
	"github.com/folionet/messaging-backend/internal/realtime"
	"github.com/folionet/messaging-backend/internal/service"
	"github.com/gofiber/websocket/v2"
)

type WebSocketHandler struct {
	conversationService *service.ConversationService
	messageService      *service.MessageService
	unreadService       *service.UnreadService
	hub                 *realtime.Hub
	presenceCache       *cache.PresenceCache
}

func NewWebSocketHandler(conversationService *service.ConversationService, messageService *service.MessageService, unreadService *service.UnreadService, hub *realtime.Hub, presenceCache *cache.PresenceCache) *WebSocketHandler {
	return &WebSocketHandler{
		conversationService: conversationService,
		messageService:      messageService,
		unreadService:       unreadService,
		hub:                 hub,
		presenceCache:       presenceCache,
	}
}

// GetHub returns the hub instance (useful for sending frames from other handlers)
func (h *WebSocketHandler) GetHub() *realtime.Hub {
	return h.hub
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID := c.Locals("userID").(uint)
	wsDebug := os.Getenv("WS_DEBUG") == "true"

	// Check if client supports gzip compression (via query param or header)
	supportsGzip := c.Query("gzip") == "1" || c.Headers("X-Supports-Gzip") == "1"

	// Register client in hub
	h.hub.Register(userID, c, supportsGzip)

	// Mark user online
	go func() {
		if err := h.presenceCache.SetUserOnline(userID); err != nil {
			log.Printf("Failed to set user %d online: %v", userID, err)
		}
	}()

	// Flush pending frames after successful connection
	go func() {
		if err := h.hub.FlushPendingFrames(userID); err != nil {
			log.Printf("Failed to flush pending frames for user %d: %v", userID, err)
		}
	}()

	subs := ws.NewSubscriptionSet()

	defer func() {
		// Detach every feed opened on this connection before dropping it
		subs.CancelAll()
		h.hub.Unregister(userID)
		go func() {
			if err := h.presenceCache.SetUserOffline(userID); err != nil {
				log.Printf("Failed to set user %d offline: %v", userID, err)
			}
		}()
	}()

	log.Printf("User %d connected via WebSocket", userID)

	// Create frame context
	ctx := &ws.MessageContext{
		UserID:              userID,
		Conn:                c,
		Hub:                 h.hub,
		ConversationService: h.conversationService,
		MessageService:      h.messageService,
		UnreadService:       h.unreadService,
		Presence:            h.presenceCache,
		Subs:                subs,
	}

	// Handle incoming frames
	for {
		messageType, messageBytes, err := c.ReadMessage()
		if err != nil {
			log.Printf("Error reading frame from user %d: %v", userID, err)
			break
		}

		if wsDebug {
			log.Printf("ws_recv user_id=%d frame_type=%d size=%d", userID, messageType, len(messageBytes))
		}

		// Decompress if binary message (gzip compressed)
		if messageType == websocket.BinaryMessage {
			decompressed, err := realtime.DecompressData(messageBytes)
			if err != nil {
				log.Printf("Error decompressing frame from user %d: %v", userID, err)
				ws.SendError(c, "decompression_failed", "Failed to decompress frame", err.Error())
				continue
			}
			messageBytes = decompressed
		}

		// Deserialize frame
		msg, err := ws.Deserialize(messageBytes)
		if err != nil {
			log.Printf("Error deserializing frame from user %d: %v", userID, err)
			ws.SendError(c, "invalid_message", "Invalid frame format", err.Error())
			continue
		}

		// Process frame
		if err := msg.Process(ctx); err != nil {
			log.Printf("Error processing frame %s from user %d: %v", msg.GetType(), userID, err)
			ws.SendError(c, "processing_failed", "Failed to process frame", err.Error())
		}
	}

	log.Printf("User %d disconnected from WebSocket", userID)
}
