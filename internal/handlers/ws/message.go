package ws

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/folionet/messaging-backend/internal/cache"
	"github.com/folionet/messaging-backend/internal/realtime"
	"github.com/folionet/messaging-backend/internal/service"
	"github.com/gofiber/websocket/v2"
)

// MessageContext provides all dependencies needed for frame processing
type MessageContext struct {
	UserID              uint
	Conn                *websocket.Conn
	Hub                 *realtime.Hub
	ConversationService *service.ConversationService
	MessageService      *service.MessageService
	UnreadService       *service.UnreadService
	Presence            *cache.PresenceCache
	Subs                *SubscriptionSet
}

// Message interface for all WebSocket frame types
type Message interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// SerializedMessage is the wire format wrapper
type SerializedMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorResponse is sent when frame processing fails
type ErrorResponse struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func ToJson(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func FromJson(jsonBytes []byte, msg Message) error {
	return json.Unmarshal(jsonBytes, msg)
}

func CreateMessage(msgType string, typeRegistry map[string]reflect.Type) (Message, error) {
	msgTypeReflect, ok := typeRegistry[msgType]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", msgType)
	}

	instance := reflect.New(msgTypeReflect).Interface()
	return instance.(Message), nil
}

// SendError sends an error response to the client
func SendError(conn *websocket.Conn, code, message, details string) error {
	errResp := ErrorResponse{
		Type:    "error",
		Error:   message,
		Code:    code,
		Details: details,
	}
	return conn.WriteJSON(errResp)
}

// SubscriptionSet tracks the live feeds opened over one connection so they
// can be detached when the connection closes. Setting a key that is already
// occupied cancels the previous feed first, so re-subscribing never leaks.
type SubscriptionSet struct {
	mu      sync.Mutex
	cancels map[string]func()
}

func NewSubscriptionSet() *SubscriptionSet {
	return &SubscriptionSet{cancels: make(map[string]func())}
}

func (s *SubscriptionSet) Set(key string, cancel func()) {
	s.mu.Lock()
	prev := s.cancels[key]
	s.cancels[key] = cancel
	s.mu.Unlock()

	if prev != nil {
		prev()
	}
}

func (s *SubscriptionSet) Cancel(key string) {
	s.mu.Lock()
	cancel := s.cancels[key]
	delete(s.cancels, key)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (s *SubscriptionSet) CancelAll() {
	s.mu.Lock()
	cancels := make([]func(), 0, len(s.cancels))
	for _, c := range s.cancels {
		cancels = append(cancels, c)
	}
	s.cancels = make(map[string]func())
	s.mu.Unlock()

	for _, c := range cancels {
		c()
	}
}
