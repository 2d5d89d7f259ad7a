package inbox

import (
	"errors"
	"testing"
	"time"

	"github.com/folionet/messaging-backend/internal/client"
	"github.com/folionet/messaging-backend/internal/models"
)

func TestDayLabel(t *testing.T) {
	now := time.Date(2025, time.March, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"same day", time.Date(2025, time.March, 15, 0, 5, 0, 0, time.UTC), "Today"},
		{"previous day", time.Date(2025, time.March, 14, 23, 59, 0, 0, time.UTC), "Yesterday"},
		{"older", time.Date(2025, time.January, 2, 12, 0, 0, 0, time.UTC), "January 2, 2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayLabel(tt.at, now); got != tt.want {
				t.Errorf("DayLabel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatTimestampTodayShowsClock(t *testing.T) {
	now := time.Date(2025, time.March, 15, 14, 30, 0, 0, time.UTC)
	at := time.Date(2025, time.March, 15, 9, 5, 0, 0, time.UTC)

	if got := FormatTimestamp(at, now); got != "09:05" {
		t.Errorf("FormatTimestamp = %q, want 09:05", got)
	}
	if got := FormatTimestamp(now.AddDate(0, 0, -1), now); got != "Yesterday" {
		t.Errorf("FormatTimestamp = %q, want Yesterday", got)
	}
}

func TestGroupByDay(t *testing.T) {
	now := time.Date(2025, time.March, 15, 14, 30, 0, 0, time.UTC)
	messages := []models.Message{
		{ID: 1, CreatedAt: time.Date(2025, time.March, 13, 10, 0, 0, 0, time.UTC)},
		{ID: 2, CreatedAt: time.Date(2025, time.March, 14, 8, 0, 0, 0, time.UTC)},
		{ID: 3, CreatedAt: time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)},
		{ID: 4, CreatedAt: time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)},
	}

	groups := GroupByDay(messages, now)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	if groups[0].Label != "March 13, 2025" || len(groups[0].Messages) != 1 {
		t.Errorf("groups[0] = %q with %d messages", groups[0].Label, len(groups[0].Messages))
	}
	if groups[1].Label != "Yesterday" || len(groups[1].Messages) != 2 {
		t.Errorf("groups[1] = %q with %d messages", groups[1].Label, len(groups[1].Messages))
	}
	if groups[2].Label != "Today" || groups[2].Messages[0].ID != 4 {
		t.Errorf("groups[2] = %q starting with message %d", groups[2].Label, groups[2].Messages[0].ID)
	}
}

type stubResolver struct {
	profile *client.Profile
	err     error
}

func (r *stubResolver) GetProfileByID(token string, userID uint) (*client.Profile, error) {
	return r.profile, r.err
}

func TestDisplayName(t *testing.T) {
	full := &stubResolver{profile: &client.Profile{ID: 2, Username: "grace", FullName: "Grace H"}}
	if got := DisplayName(full, "", 2); got != "Grace H" {
		t.Errorf("DisplayName = %q, want full name", got)
	}

	usernameOnly := &stubResolver{profile: &client.Profile{ID: 2, Username: "grace"}}
	if got := DisplayName(usernameOnly, "", 2); got != "grace" {
		t.Errorf("DisplayName = %q, want username", got)
	}

	failing := &stubResolver{err: errors.New("account service down")}
	if got := DisplayName(failing, "", 2); got != "User 2" {
		t.Errorf("DisplayName = %q, want placeholder on failure", got)
	}

	if got := DisplayName(nil, "", 9); got != "User 9" {
		t.Errorf("DisplayName = %q, want placeholder without resolver", got)
	}
}

type stubMarker struct {
	calls []uint
	err   error
}

func (m *stubMarker) MarkRead(conversationID, userID uint) error {
	m.calls = append(m.calls, conversationID)
	return m.err
}

func TestReadTriggerMarksOnPeerMessage(t *testing.T) {
	marker := &stubMarker{}
	trigger := NewReadTrigger(marker, 1, 10)

	// Initial snapshot with a peer message marks once
	if err := trigger.Observe([]models.Message{
		{ID: 1, SenderID: 2, ConversationID: 10},
	}); err != nil {
		t.Fatal(err)
	}
	if len(marker.calls) != 1 {
		t.Fatalf("MarkRead calls = %d, want 1", len(marker.calls))
	}

	// Re-observing the same snapshot does not re-mark
	if err := trigger.Observe([]models.Message{
		{ID: 1, SenderID: 2, ConversationID: 10},
	}); err != nil {
		t.Fatal(err)
	}
	if len(marker.calls) != 1 {
		t.Errorf("MarkRead calls after repeat = %d, want 1", len(marker.calls))
	}

	// The user's own send does not mark
	if err := trigger.Observe([]models.Message{
		{ID: 1, SenderID: 2, ConversationID: 10},
		{ID: 2, SenderID: 1, ConversationID: 10},
	}); err != nil {
		t.Fatal(err)
	}
	if len(marker.calls) != 1 {
		t.Errorf("MarkRead calls after own send = %d, want 1", len(marker.calls))
	}

	// A fresh peer message marks again
	if err := trigger.Observe([]models.Message{
		{ID: 3, SenderID: 2, ConversationID: 10},
	}); err != nil {
		t.Fatal(err)
	}
	if len(marker.calls) != 2 {
		t.Errorf("MarkRead calls after new peer message = %d, want 2", len(marker.calls))
	}
}
