package ws

import (
	"testing"
)

func TestDeserializeSendMessageFrame(t *testing.T) {
	raw := []byte(`{"type":"send_message","payload":{"conversation_id":7,"client_id":"abc-123","text":"hello"}}`)

	msg, err := Deserialize(raw)
	if err != nil {
		t.Fatalf("Deserialize error: %v", err)
	}

	send, ok := msg.(*MessageSend)
	if !ok {
		t.Fatalf("got %T, want *MessageSend", msg)
	}
	if send.ConversationID != 7 || send.ClientID != "abc-123" || send.Text != "hello" {
		t.Errorf("unexpected frame contents: %+v", send)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	original := &MessageSubscribeMessages{ConversationID: 42}

	data, err := Serialize(original)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}

	decoded, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize error: %v", err)
	}

	sub, ok := decoded.(*MessageSubscribeMessages)
	if !ok {
		t.Fatalf("got %T, want *MessageSubscribeMessages", decoded)
	}
	if sub.ConversationID != 42 {
		t.Errorf("ConversationID = %d, want 42", sub.ConversationID)
	}
}

func TestDeserializeUnknownType(t *testing.T) {
	if _, err := Deserialize([]byte(`{"type":"bogus","payload":{}}`)); err == nil {
		t.Error("expected error for unknown frame type")
	}
}

func TestTypeRegistryCoversProtocol(t *testing.T) {
	registry := GetTypeRegistry()
	for _, typ := range []string{
		"send_message",
		"mark_read",
		"subscribe_conversations",
		"subscribe_messages",
		"unsubscribe",
		"ping",
		"pong",
	} {
		if _, ok := registry[typ]; !ok {
			t.Errorf("frame type %q not registered", typ)
		}
	}
}

func TestSubscriptionSetCancelAll(t *testing.T) {
	subs := NewSubscriptionSet()

	cancelled := make(map[string]int)
	subs.Set("conversations", func() { cancelled["conversations"]++ })
	subs.Set(messageFeedKey(1), func() { cancelled["messages:1"]++ })

	subs.CancelAll()
	if cancelled["conversations"] != 1 || cancelled["messages:1"] != 1 {
		t.Errorf("cancel counts = %v, want each feed cancelled once", cancelled)
	}

	// Cancelling again finds nothing to do
	subs.CancelAll()
	if cancelled["conversations"] != 1 {
		t.Errorf("repeated CancelAll re-cancelled: %v", cancelled)
	}
}

func TestSubscriptionSetReplaceCancelsPrevious(t *testing.T) {
	subs := NewSubscriptionSet()

	prevCancelled := false
	subs.Set("conversations", func() { prevCancelled = true })
	subs.Set("conversations", func() {})

	if !prevCancelled {
		t.Error("replacing a feed did not cancel the previous one")
	}
}
