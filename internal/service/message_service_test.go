package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/folionet/messaging-backend/internal/models"
	"github.com/folionet/messaging-backend/internal/realtime"
)

type messageServiceFixture struct {
	messages      *MessageService
	conversations *ConversationService
	unread        *UnreadService
	convRepo      *MockConversationRepository
	messageRepo   *MockMessageRepository
	stateRepo     *MockUserConversationRepository
	broker        *realtime.Broker
}

func newMessageServiceFixture() *messageServiceFixture {
	convRepo := NewMockConversationRepository()
	messageRepo := NewMockMessageRepository()
	stateRepo := NewMockUserConversationRepository()
	broker := realtime.NewBroker()
	return &messageServiceFixture{
		messages:      NewMessageService(messageRepo, convRepo, stateRepo, broker, nil, nil, nil),
		conversations: NewConversationService(convRepo, stateRepo, messageRepo, broker, nil),
		unread:        NewUnreadService(stateRepo, nil),
		convRepo:      convRepo,
		messageRepo:   messageRepo,
		stateRepo:     stateRepo,
		broker:        broker,
	}
}

func (f *messageServiceFixture) conversation(t *testing.T, userID1, userID2 uint) *models.Conversation {
	t.Helper()
	conv, err := f.conversations.GetOrCreate(userID1, userID2)
	if err != nil {
		t.Fatalf("GetOrCreate(%d, %d) error: %v", userID1, userID2, err)
	}
	return conv
}

func TestSendRoundTrip(t *testing.T) {
	f := newMessageServiceFixture()
	conv := f.conversation(t, 1, 2)

	sent, err := f.messages.Send(conv.ID, 1, "hello")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}

	messages, err := f.messages.GetMessages(conv.ID)
	if err != nil {
		t.Fatalf("GetMessages error: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	got := messages[0]
	if got.Text != "hello" {
		t.Errorf("Text = %q, want %q", got.Text, "hello")
	}
	if got.SenderID != 1 {
		t.Errorf("SenderID = %d, want 1", got.SenderID)
	}
	if got.Read {
		t.Error("fresh message is marked read")
	}
	if got.ID != sent.ID {
		t.Errorf("retrieved ID = %d, want %d", got.ID, sent.ID)
	}
}

func TestSendTrimsText(t *testing.T) {
	f := newMessageServiceFixture()
	conv := f.conversation(t, 1, 2)

	sent, err := f.messages.Send(conv.ID, 1, "  hi there \n")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if sent.Text != "hi there" {
		t.Errorf("Text = %q, want trimmed %q", sent.Text, "hi there")
	}
}

func TestSendRejectsEmptyAndWhitespaceText(t *testing.T) {
	f := newMessageServiceFixture()
	conv := f.conversation(t, 1, 2)

	for _, text := range []string{"", "   ", "\t\n "} {
		if _, err := f.messages.Send(conv.ID, 1, text); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Send(%q) error = %v, want ErrInvalidInput", text, err)
		}
	}
}

func TestSendLengthBoundary(t *testing.T) {
	f := newMessageServiceFixture()
	conv := f.conversation(t, 1, 2)

	atLimit := strings.Repeat("a", 1000)
	if _, err := f.messages.Send(conv.ID, 1, atLimit); err != nil {
		t.Errorf("Send of exactly 1000 characters failed: %v", err)
	}

	overLimit := strings.Repeat("a", 1001)
	if _, err := f.messages.Send(conv.ID, 1, overLimit); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Send of 1001 characters error = %v, want ErrInvalidInput", err)
	}
}

func TestSendToMissingConversation(t *testing.T) {
	f := newMessageServiceFixture()

	if _, err := f.messages.Send(99, 1, "hello"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Send to missing conversation error = %v, want ErrNotFound", err)
	}
}

func TestSendByNonParticipant(t *testing.T) {
	f := newMessageServiceFixture()
	conv := f.conversation(t, 1, 2)

	if _, err := f.messages.Send(conv.ID, 3, "hello"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Send by non-participant error = %v, want ErrPermissionDenied", err)
	}
}

func TestSendIncrementsRecipientUnreadOnly(t *testing.T) {
	f := newMessageServiceFixture()
	conv := f.conversation(t, 1, 2)

	const n = 3
	for i := 0; i < n; i++ {
		if _, err := f.messages.Send(conv.ID, 2, "ping"); err != nil {
			t.Fatalf("Send #%d error: %v", i+1, err)
		}
	}

	recipient, err := f.unread.GetUnreadCount(1, conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if recipient != n {
		t.Errorf("recipient unread = %d after %d sends, want %d", recipient, n, n)
	}

	sender, err := f.unread.GetUnreadCount(2, conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sender != 0 {
		t.Errorf("sender unread = %d, want 0", sender)
	}
}

func TestSendUpdatesConversationSnapshot(t *testing.T) {
	f := newMessageServiceFixture()
	conv := f.conversation(t, 1, 2)
	before := conv.UpdatedAt

	sent, err := f.messages.Send(conv.ID, 1, "latest news")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}

	updated, err := f.conversations.GetByID(conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.LastMessage.Text != "latest news" {
		t.Errorf("LastMessage.Text = %q, want %q", updated.LastMessage.Text, "latest news")
	}
	if updated.LastMessage.SenderID != 1 {
		t.Errorf("LastMessage.SenderID = %d, want 1", updated.LastMessage.SenderID)
	}
	if !updated.LastMessage.SentAt.Equal(sent.CreatedAt) {
		t.Errorf("LastMessage.SentAt = %v, want %v", updated.LastMessage.SentAt, sent.CreatedAt)
	}
	if updated.UpdatedAt.Before(before) {
		t.Errorf("UpdatedAt went backwards: %v -> %v", before, updated.UpdatedAt)
	}
}

func TestGetMessagesOrderedByTimestamp(t *testing.T) {
	f := newMessageServiceFixture()
	conv := f.conversation(t, 1, 2)

	for _, text := range []string{"first", "second", "third", "fourth"} {
		if _, err := f.messages.Send(conv.ID, 1, text); err != nil {
			t.Fatal(err)
		}
	}

	messages, err := f.messages.GetMessages(conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(messages))
	}
	for i := 1; i < len(messages); i++ {
		if messages[i].CreatedAt.Before(messages[i-1].CreatedAt) {
			t.Errorf("message %d timestamp precedes message %d", i, i-1)
		}
	}
	if messages[0].Text != "first" || messages[3].Text != "fourth" {
		t.Errorf("order = [%s ... %s], want [first ... fourth]", messages[0].Text, messages[3].Text)
	}
}

func TestSendWithClientIDDeduplicates(t *testing.T) {
	f := newMessageServiceFixture()
	conv := f.conversation(t, 1, 2)

	first, err := f.messages.SendWithClientID(conv.ID, 1, "client-abc", "hello")
	if err != nil {
		t.Fatalf("first send error: %v", err)
	}

	// A retry with the same client ID must not append a second message
	second, err := f.messages.SendWithClientID(conv.ID, 1, "client-abc", "hello")
	if err != nil {
		t.Fatalf("retried send error: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("retry produced message %d, want %d", second.ID, first.ID)
	}

	messages, _ := f.messages.GetMessages(conv.ID)
	if len(messages) != 1 {
		t.Errorf("log has %d messages after retry, want 1", len(messages))
	}

	// The recipient's badge must count the message once
	unread, _ := f.unread.GetUnreadCount(2, conv.ID)
	if unread != 1 {
		t.Errorf("recipient unread = %d after retry, want 1", unread)
	}
}

func TestSubscribeReceivesNewMessages(t *testing.T) {
	f := newMessageServiceFixture()
	conv := f.conversation(t, 1, 2)

	var snapshots [][]models.Message
	cancel, err := f.messages.Subscribe(conv.ID, func(messages []models.Message) {
		snapshots = append(snapshots, messages)
	}, nil)
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	defer cancel()

	if len(snapshots) != 1 || len(snapshots[0]) != 0 {
		t.Fatalf("initial snapshot = %v, want one empty snapshot", snapshots)
	}

	if _, err := f.messages.Send(conv.ID, 1, "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.messages.Send(conv.ID, 2, "hi back"); err != nil {
		t.Fatal(err)
	}

	if len(snapshots) != 3 {
		t.Fatalf("got %d snapshots, want 3", len(snapshots))
	}
	final := snapshots[2]
	if len(final) != 2 {
		t.Fatalf("final snapshot has %d messages, want 2", len(final))
	}
	if final[0].Text != "hello" || final[1].Text != "hi back" {
		t.Errorf("final snapshot order = [%s, %s], want [hello, hi back]", final[0].Text, final[1].Text)
	}
}

func TestSendSurvivesUnreadIncrementFailure(t *testing.T) {
	f := newMessageServiceFixture()
	conv := f.conversation(t, 1, 2)
	f.stateRepo.failIncrement = errors.New("connection reset")

	// The counter is a best-effort cache; the send itself must still succeed.
	if _, err := f.messages.Send(conv.ID, 1, "hello"); err != nil {
		t.Errorf("Send failed on unread increment error: %v", err)
	}

	messages, _ := f.messages.GetMessages(conv.ID)
	if len(messages) != 1 {
		t.Errorf("log has %d messages, want 1", len(messages))
	}
}

func TestMessagingScenario(t *testing.T) {
	f := newMessageServiceFixture()

	conv := f.conversation(t, 1, 2)

	if _, err := f.messages.Send(conv.ID, 1, "hi"); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	u2Counts, err := f.unread.GetAllUnreadCounts(2)
	if err != nil {
		t.Fatal(err)
	}
	if u2Counts[conv.ID] != 1 {
		t.Errorf("u2 unread for conversation = %d, want 1", u2Counts[conv.ID])
	}

	u1Total, err := f.unread.GetTotalUnread(1)
	if err != nil {
		t.Fatal(err)
	}
	if u1Total != 0 {
		t.Errorf("u1 total unread = %d, want 0", u1Total)
	}

	if err := f.unread.MarkRead(conv.ID, 2); err != nil {
		t.Fatalf("MarkRead error: %v", err)
	}

	u2Counts, err = f.unread.GetAllUnreadCounts(2)
	if err != nil {
		t.Fatal(err)
	}
	if count, ok := u2Counts[conv.ID]; !ok || count != 0 {
		t.Errorf("u2 unread after MarkRead = %v (present %v), want 0", count, ok)
	}
}
