package ws

import "time"

// MessagePing is a keepalive ping from client
type MessagePing struct {
}

func (msg *MessagePing) GetType() string {
	return "ping"
}

func (msg *MessagePing) Process(ctx *MessageContext) error {
	// A live ping is proof of presence
	_ = ctx.Presence.RefreshUserOnline(ctx.UserID)

	// Respond with pong; server time lets clients estimate clock skew
	return ctx.Conn.WriteJSON(map[string]interface{}{
		"type":        "pong",
		"server_time": time.Now().UTC(),
	})
}

// MessagePong is a pong response (in case client wants to track latency)
type MessagePong struct {
}

func (msg *MessagePong) GetType() string {
	return "pong"
}

func (msg *MessagePong) Process(ctx *MessageContext) error {
	// No-op - just acknowledge
	return nil
}
