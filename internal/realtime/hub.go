package realtime

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"github.com/folionet/messaging-backend/internal/repository"
	"github.com/gofiber/websocket/v2"
)

// ClientConnection wraps a WebSocket connection with metadata
type ClientConnection struct {
	Conn         *websocket.Conn
	UserID       uint
	LastPong     time.Time
	SupportsGzip bool
	PingTicker   *time.Ticker
	CloseChan    chan struct{}
}

// MessageDelivery is the durable frame fanned out to a message's recipient.
// Offline recipients get it queued and redelivered on reconnect.
type MessageDelivery struct {
	Type           string    `json:"type"`
	ConversationID uint      `json:"conversation_id"`
	MessageID      uint      `json:"message_id"`
	SenderID       uint      `json:"sender_id"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
}

// Hub manages all active WebSocket connections, one per user. Frames carrying
// a durable message ID are queued for offline recipients and redelivered by a
// background retry worker; ephemeral frames (snapshots, pings) are dropped
// when the recipient has no live connection.
type Hub struct {
	clients            map[uint]*ClientConnection
	clientsMux         sync.RWMutex
	pendingMessageRepo repository.PendingMessageRepositoryInterface
	maxRetries         int
	baseRetryDelay     time.Duration
	pingInterval       time.Duration
	pongTimeout        time.Duration
}

// NewHub creates a new Hub instance and starts its background workers.
func NewHub(pendingRepo repository.PendingMessageRepositoryInterface) *Hub {
	hub := &Hub{
		clients:            make(map[uint]*ClientConnection),
		pendingMessageRepo: pendingRepo,
		maxRetries:         5,
		baseRetryDelay:     2 * time.Second,
		pingInterval:       30 * time.Second,
		pongTimeout:        90 * time.Second,
	}

	go hub.retryWorker()
	go hub.connectionHealthChecker()

	return hub
}

// Register adds a client connection with health monitoring
func (h *Hub) Register(userID uint, conn *websocket.Conn, supportsGzip bool) {
	clientConn := &ClientConnection{
		Conn:         conn,
		UserID:       userID,
		LastPong:     time.Now(),
		SupportsGzip: supportsGzip,
		PingTicker:   time.NewTicker(h.pingInterval),
		CloseChan:    make(chan struct{}),
	}

	conn.SetPongHandler(func(appData string) error {
		h.clientsMux.Lock()
		if client, exists := h.clients[userID]; exists {
			client.LastPong = time.Now()
		}
		h.clientsMux.Unlock()
		return nil
	})

	conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

	h.clientsMux.Lock()
	h.clients[userID] = clientConn
	h.clientsMux.Unlock()

	go h.pingRoutine(clientConn)

	log.Printf("User %d connected to hub (total: %d, gzip: %v)", userID, len(h.clients), supportsGzip)
}

// Unregister removes a client connection
func (h *Hub) Unregister(userID uint) {
	h.clientsMux.Lock()
	if client, exists := h.clients[userID]; exists {
		if client.PingTicker != nil {
			client.PingTicker.Stop()
		}
		close(client.CloseChan)
	}
	delete(h.clients, userID)
	count := len(h.clients)
	h.clientsMux.Unlock()
	log.Printf("User %d disconnected from hub (total: %d)", userID, count)
}

// IsOnline checks if a user is connected
func (h *Hub) IsOnline(userID uint) bool {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	_, exists := h.clients[userID]
	return exists
}

// SendToUser sends an ephemeral frame to a user; dropped if offline.
func (h *Hub) SendToUser(userID uint, data interface{}) error {
	return h.SendToUserWithID(userID, 0, data)
}

// SendToUserWithID sends a frame to a user. A non-zero messageID marks the
// frame durable: when the user is offline or the write fails, it is queued
// for later delivery instead of being dropped.
func (h *Hub) SendToUserWithID(userID uint, messageID uint, data interface{}) error {
	h.clientsMux.RLock()
	clientConn, exists := h.clients[userID]
	h.clientsMux.RUnlock()

	if !exists {
		return h.queueFrame(userID, messageID, data)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error marshaling data for user %d: %v", userID, err)
		return err
	}

	// Compress if supported and beneficial (> 512 bytes)
	var finalData []byte
	frameType := websocket.TextMessage
	if clientConn.SupportsGzip && len(jsonData) > 512 {
		compressed, err := h.compressData(jsonData)
		if err == nil && len(compressed) < len(jsonData) {
			finalData = compressed
			frameType = websocket.BinaryMessage
		} else {
			finalData = jsonData
		}
	} else {
		finalData = jsonData
	}

	if err := clientConn.Conn.WriteMessage(frameType, finalData); err != nil {
		log.Printf("Error sending frame to user %d: %v", userID, err)
		// Connection may be dead; drop it and queue the frame if durable
		h.Unregister(userID)
		return h.queueFrame(userID, messageID, data)
	}

	return nil
}

// queueFrame stores a durable frame for offline or failed delivery.
func (h *Hub) queueFrame(userID uint, messageID uint, data interface{}) error {
	if h.pendingMessageRepo == nil {
		return nil
	}
	// Ephemeral frames carry no message ID and are never queued.
	if messageID == 0 {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return h.pendingMessageRepo.Enqueue(userID, messageID, string(jsonData), 0)
}

// BroadcastToUsers sends a frame to the given users (typically both
// participants of a conversation).
func (h *Hub) BroadcastToUsers(userIDs []uint, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error marshaling data: %v", err)
		return
	}

	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	for _, userID := range userIDs {
		if clientConn, exists := h.clients[userID]; exists {
			if err := clientConn.Conn.WriteMessage(websocket.TextMessage, jsonData); err != nil {
				log.Printf("Error sending to user %d: %v", userID, err)
			}
		}
	}
}

// OnlineUsers returns the currently connected user IDs
func (h *Hub) OnlineUsers() []uint {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	users := make([]uint, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients)
}

// FlushPendingFrames sends all queued frames to a newly connected user
func (h *Hub) FlushPendingFrames(userID uint) error {
	if h.pendingMessageRepo == nil {
		return nil
	}

	h.clientsMux.RLock()
	clientConn, exists := h.clients[userID]
	h.clientsMux.RUnlock()

	if !exists {
		return nil // User disconnected already
	}

	batchSize := 50
	pending, err := h.pendingMessageRepo.GetPendingForUser(userID, batchSize)
	if err != nil {
		log.Printf("Error fetching pending frames for user %d: %v", userID, err)
		return err
	}

	if len(pending) == 0 {
		return nil
	}

	log.Printf("Flushing %d pending frames to user %d", len(pending), userID)

	batch := make([]interface{}, 0, len(pending))
	successIDs := make([]uint, 0, len(pending))

	for _, pm := range pending {
		var data interface{}
		if err := json.Unmarshal([]byte(pm.Payload), &data); err != nil {
			log.Printf("Error unmarshaling pending frame %d: %v", pm.ID, err)
			continue
		}
		batch = append(batch, data)
		successIDs = append(successIDs, pm.ID)
	}

	batchMessage := map[string]interface{}{
		"type":     "batch",
		"messages": batch,
		"count":    len(batch),
	}

	if err := clientConn.Conn.WriteJSON(batchMessage); err != nil {
		log.Printf("Error sending batch to user %d: %v", userID, err)
		// Connection failed, frames stay in queue
		return err
	}

	if err := h.pendingMessageRepo.DeleteBatch(successIDs); err != nil {
		log.Printf("Error deleting delivered frames: %v", err)
	}

	// If there are more frames, keep flushing (rate-limited by batch size)
	if len(pending) == batchSize {
		time.Sleep(100 * time.Millisecond)
		return h.FlushPendingFrames(userID)
	}

	return nil
}

// retryWorker redelivers queued frames with exponential backoff
func (h *Hub) retryWorker() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if h.pendingMessageRepo == nil {
			continue
		}

		retryable, err := h.pendingMessageRepo.GetRetryable(100)
		if err != nil {
			log.Printf("Error fetching retryable frames: %v", err)
			continue
		}

		for _, pm := range retryable {
			h.clientsMux.RLock()
			clientConn, isOnline := h.clients[pm.UserID]
			h.clientsMux.RUnlock()

			if !isOnline {
				attempts := pm.Attempts + 1
				if attempts >= h.maxRetries {
					// Max retries reached; park the frame for a while
					nextRetry := time.Now().Add(1 * time.Hour)
					h.pendingMessageRepo.MarkAttempted(pm.ID, attempts, &nextRetry)
					continue
				}

				// Exponential backoff: 2s, 4s, 8s, 16s, 32s
				delay := h.baseRetryDelay * time.Duration(1<<uint(attempts))
				nextRetry := time.Now().Add(delay)
				h.pendingMessageRepo.MarkAttempted(pm.ID, attempts, &nextRetry)
				continue
			}

			var data interface{}
			if err := json.Unmarshal([]byte(pm.Payload), &data); err != nil {
				log.Printf("Error unmarshaling frame for retry %d: %v", pm.ID, err)
				continue
			}

			jsonData, _ := json.Marshal(data)
			if err := clientConn.Conn.WriteMessage(websocket.TextMessage, jsonData); err != nil {
				log.Printf("Retry delivery failed for user %d: %v", pm.UserID, err)
				attempts := pm.Attempts + 1
				delay := h.baseRetryDelay * time.Duration(1<<uint(attempts))
				nextRetry := time.Now().Add(delay)
				h.pendingMessageRepo.MarkAttempted(pm.ID, attempts, &nextRetry)
			} else {
				log.Printf("Delivered pending frame %d to user %d", pm.ID, pm.UserID)
				h.pendingMessageRepo.Delete(pm.ID)
			}
		}
	}
}

// pingRoutine sends periodic ping messages to keep the connection alive
func (h *Hub) pingRoutine(client *ClientConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Ping routine recovered from panic for user %d: %v", client.UserID, r)
		}
	}()

	for {
		select {
		case <-client.CloseChan:
			return
		case <-client.PingTicker.C:
			h.clientsMux.RLock()
			_, exists := h.clients[client.UserID]
			h.clientsMux.RUnlock()

			if !exists {
				return
			}

			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				log.Printf("Ping failed for user %d: %v", client.UserID, err)
				h.Unregister(client.UserID)
				return
			}
		}
	}
}

// connectionHealthChecker removes connections that stopped answering pings
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.clientsMux.RLock()
		deadConnections := make([]uint, 0)
		now := time.Now()

		for userID, client := range h.clients {
			if now.Sub(client.LastPong) > h.pongTimeout {
				deadConnections = append(deadConnections, userID)
			}
		}
		h.clientsMux.RUnlock()

		for _, userID := range deadConnections {
			log.Printf("Removing dead connection for user %d (no pong received)", userID)
			h.Unregister(userID)
		}
	}
}

// compressData compresses data using gzip
func (h *Hub) compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)

	if _, err := gzipWriter.Write(data); err != nil {
		return nil, err
	}

	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecompressData decompresses a gzip payload received from a client
func DecompressData(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}
