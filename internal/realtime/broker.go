package realtime

import (
	"sync"

	"github.com/folionet/messaging-backend/internal/models"
)

// ConversationSnapshotFunc receives the full current conversation list for a
// user, sorted by updated_at descending. The slice must not be mutated.
type ConversationSnapshotFunc func([]models.Conversation)

// MessageSnapshotFunc receives the full current message list for a
// conversation, sorted ascending by timestamp. The slice must not be mutated.
type MessageSnapshotFunc func([]models.Message)

// ErrorFunc is invoked at most once when a feed fails terminally. The feed is
// detached afterwards; re-subscribing is the caller's decision.
type ErrorFunc func(error)

type conversationSub struct {
	onUpdate ConversationSnapshotFunc
	onError  ErrorFunc
}

type messageSub struct {
	onUpdate MessageSnapshotFunc
	onError  ErrorFunc
}

// Broker is the in-process fan-out point for live snapshot feeds. Services
// publish a fresh snapshot after every mutation; the broker pushes it to every
// registered subscriber. Delivery order of intermediate snapshots is not
// guaranteed, only that each delivered snapshot is internally sorted by its
// publisher.
type Broker struct {
	mu       sync.RWMutex
	nextID   uint64
	convSubs map[uint]map[uint64]*conversationSub // keyed by user ID
	msgSubs  map[uint]map[uint64]*messageSub      // keyed by conversation ID
}

func NewBroker() *Broker {
	return &Broker{
		convSubs: make(map[uint]map[uint64]*conversationSub),
		msgSubs:  make(map[uint]map[uint64]*messageSub),
	}
}

// SubscribeConversations registers a live feed of the given user's
// conversation list. The returned cancel func detaches the feed; no callbacks
// fire after it returns.
func (b *Broker) SubscribeConversations(userID uint, onUpdate ConversationSnapshotFunc, onError ErrorFunc) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.convSubs[userID] == nil {
		b.convSubs[userID] = make(map[uint64]*conversationSub)
	}
	b.convSubs[userID][id] = &conversationSub{onUpdate: onUpdate, onError: onError}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.convSubs[userID], id)
		if len(b.convSubs[userID]) == 0 {
			delete(b.convSubs, userID)
		}
		b.mu.Unlock()
	}
}

// SubscribeMessages registers a live feed of a conversation's message list.
func (b *Broker) SubscribeMessages(conversationID uint, onUpdate MessageSnapshotFunc, onError ErrorFunc) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.msgSubs[conversationID] == nil {
		b.msgSubs[conversationID] = make(map[uint64]*messageSub)
	}
	b.msgSubs[conversationID][id] = &messageSub{onUpdate: onUpdate, onError: onError}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.msgSubs[conversationID], id)
		if len(b.msgSubs[conversationID]) == 0 {
			delete(b.msgSubs, conversationID)
		}
		b.mu.Unlock()
	}
}

// HasConversationSubscribers lets publishers skip the snapshot query when
// nobody is listening.
func (b *Broker) HasConversationSubscribers(userID uint) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.convSubs[userID]) > 0
}

func (b *Broker) HasMessageSubscribers(conversationID uint) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.msgSubs[conversationID]) > 0
}

// PublishConversations pushes a snapshot to every subscriber of the user's
// conversation feed. Callbacks run on the publisher's goroutine, outside the
// broker lock.
func (b *Broker) PublishConversations(userID uint, snapshot []models.Conversation) {
	b.mu.RLock()
	subs := make([]*conversationSub, 0, len(b.convSubs[userID]))
	for _, s := range b.convSubs[userID] {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		s.onUpdate(snapshot)
	}
}

// PublishMessages pushes a snapshot to every subscriber of the conversation's
// message feed.
func (b *Broker) PublishMessages(conversationID uint, snapshot []models.Message) {
	b.mu.RLock()
	subs := make([]*messageSub, 0, len(b.msgSubs[conversationID]))
	for _, s := range b.msgSubs[conversationID] {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		s.onUpdate(snapshot)
	}
}

// FailConversations invokes every subscriber's error callback and detaches
// the whole feed for the user.
func (b *Broker) FailConversations(userID uint, err error) {
	b.mu.Lock()
	subs := b.convSubs[userID]
	delete(b.convSubs, userID)
	b.mu.Unlock()

	for _, s := range subs {
		if s.onError != nil {
			s.onError(err)
		}
	}
}

// FailMessages invokes every subscriber's error callback and detaches the
// whole feed for the conversation.
func (b *Broker) FailMessages(conversationID uint, err error) {
	b.mu.Lock()
	subs := b.msgSubs[conversationID]
	delete(b.msgSubs, conversationID)
	b.mu.Unlock()

	for _, s := range subs {
		if s.onError != nil {
			s.onError(err)
		}
	}
}
