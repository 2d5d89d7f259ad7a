package inbox

import (
	"fmt"
	"time"

	"github.com/folionet/messaging-backend/internal/client"
	"github.com/folionet/messaging-backend/internal/models"
)

// DayGroup is a run of consecutive messages sent on the same calendar day,
// labeled the way the conversation view renders its separators.
type DayGroup struct {
	Label    string
	Messages []models.Message
}

// DayLabel renders a calendar-day separator relative to now.
func DayLabel(t, now time.Time) string {
	day := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}

	switch day(t) {
	case day(now):
		return "Today"
	case day(now.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return t.Format("January 2, 2006")
	}
}

// FormatTimestamp renders a message timestamp for display: clock time for
// today's messages, otherwise the day label.
func FormatTimestamp(t, now time.Time) string {
	label := DayLabel(t, now)
	if label == "Today" {
		return t.Format("15:04")
	}
	return label
}

// GroupByDay splits an ascending message log into per-day groups, preserving
// order.
func GroupByDay(messages []models.Message, now time.Time) []DayGroup {
	var groups []DayGroup
	for _, msg := range messages {
		label := DayLabel(msg.CreatedAt, now)
		if len(groups) == 0 || groups[len(groups)-1].Label != label {
			groups = append(groups, DayGroup{Label: label})
		}
		last := &groups[len(groups)-1]
		last.Messages = append(last.Messages, msg)
	}
	return groups
}

// ProfileResolver is the slice of the account service client the inbox needs.
type ProfileResolver interface {
	GetProfileByID(token string, userID uint) (*client.Profile, error)
}

// DisplayName resolves a user ID to the name the inbox shows: full name when
// set, otherwise username, otherwise a numeric placeholder. Lookup failures
// degrade to the placeholder rather than failing the render.
func DisplayName(resolver ProfileResolver, token string, userID uint) string {
	fallback := fmt.Sprintf("User %d", userID)
	if resolver == nil {
		return fallback
	}

	profile, err := resolver.GetProfileByID(token, userID)
	if err != nil || profile == nil {
		return fallback
	}
	if profile.FullName != "" {
		return profile.FullName
	}
	if profile.Username != "" {
		return profile.Username
	}
	return fallback
}

// ReadMarker is the slice of the unread service the trigger needs.
type ReadMarker interface {
	MarkRead(conversationID, userID uint) error
}

// ReadTrigger watches the message feed of the conversation a user has open
// and marks it read whenever a new message from the peer arrives, so an open
// conversation never accumulates unread count.
type ReadTrigger struct {
	marker         ReadMarker
	userID         uint
	conversationID uint
	lastSeenID     uint
}

func NewReadTrigger(marker ReadMarker, userID, conversationID uint) *ReadTrigger {
	return &ReadTrigger{
		marker:         marker,
		userID:         userID,
		conversationID: conversationID,
	}
}

// Observe consumes one snapshot of the conversation's message log. It marks
// the conversation read only when the snapshot contains a peer message not
// seen before; snapshots of the user's own sends do not re-mark.
func (t *ReadTrigger) Observe(messages []models.Message) error {
	newPeerMessage := false
	for _, msg := range messages {
		if msg.ID <= t.lastSeenID {
			continue
		}
		t.lastSeenID = msg.ID
		if msg.SenderID != t.userID {
			newPeerMessage = true
		}
	}

	if !newPeerMessage {
		return nil
	}
	return t.marker.MarkRead(t.conversationID, t.userID)
}
