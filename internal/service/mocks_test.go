package service

import (
	"errors"
	"sort"
	"time"

	"github.com/folionet/messaging-backend/internal/models"
)

// MockConversationRepository is an in-memory ConversationRepositoryInterface for testing
type MockConversationRepository struct {
	conversations map[uint]*models.Conversation
	nextID        uint

	failCreate error
	failFind   error
}

func NewMockConversationRepository() *MockConversationRepository {
	return &MockConversationRepository{
		conversations: make(map[uint]*models.Conversation),
		nextID:        1,
	}
}

func (m *MockConversationRepository) Create(conv *models.Conversation) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	if conv.ID == 0 {
		conv.ID = m.nextID
		m.nextID++
	}
	now := time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = now
	}
	stored := *conv
	m.conversations[conv.ID] = &stored
	return nil
}

func (m *MockConversationRepository) FindByID(id uint) (*models.Conversation, error) {
	if m.failFind != nil {
		return nil, m.failFind
	}
	if conv, ok := m.conversations[id]; ok {
		copied := *conv
		return &copied, nil
	}
	return nil, nil
}

func (m *MockConversationRepository) FindByPair(userAID, userBID uint) (*models.Conversation, error) {
	if m.failFind != nil {
		return nil, m.failFind
	}
	var best *models.Conversation
	for _, conv := range m.conversations {
		if conv.UserAID != userAID || conv.UserBID != userBID {
			continue
		}
		if best == nil || conv.CreatedAt.Before(best.CreatedAt) ||
			(conv.CreatedAt.Equal(best.CreatedAt) && conv.ID < best.ID) {
			best = conv
		}
	}
	if best == nil {
		return nil, nil
	}
	copied := *best
	return &copied, nil
}

func (m *MockConversationRepository) FindByParticipant(userID uint) ([]models.Conversation, error) {
	if m.failFind != nil {
		return nil, m.failFind
	}
	var result []models.Conversation
	for _, conv := range m.conversations {
		if conv.HasParticipant(userID) {
			result = append(result, *conv)
		}
	}
	return result, nil
}

func (m *MockConversationRepository) FindAll() ([]models.Conversation, error) {
	if m.failFind != nil {
		return nil, m.failFind
	}
	result := make([]models.Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		result = append(result, *conv)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockConversationRepository) TouchLastMessage(id uint, last models.LastMessage, at time.Time) error {
	conv, ok := m.conversations[id]
	if !ok {
		return errors.New("record not found")
	}
	conv.LastMessage = last
	conv.UpdatedAt = at
	return nil
}

func (m *MockConversationRepository) Delete(id uint) error {
	delete(m.conversations, id)
	return nil
}

// MockMessageRepository is an in-memory MessageRepositoryInterface for testing
type MockMessageRepository struct {
	messages map[uint]*models.Message
	nextID   uint

	failCreate error
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		messages: make(map[uint]*models.Message),
		nextID:   1,
	}
}

func (m *MockMessageRepository) Create(message *models.Message) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	if message.ID == 0 {
		message.ID = m.nextID
		m.nextID++
	}
	if message.CreatedAt.IsZero() {
		// Spread timestamps so ordering by time is meaningful in tests.
		message.CreatedAt = time.Now().Add(time.Duration(message.ID) * time.Millisecond)
	}
	stored := *message
	m.messages[message.ID] = &stored
	return nil
}

func (m *MockMessageRepository) FindByID(id uint) (*models.Message, error) {
	if msg, ok := m.messages[id]; ok {
		copied := *msg
		return &copied, nil
	}
	return nil, errors.New("record not found")
}

func (m *MockMessageRepository) FindByClientID(clientID string, senderID uint) (*models.Message, error) {
	for _, msg := range m.messages {
		if msg.ClientID == clientID && msg.SenderID == senderID {
			copied := *msg
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockMessageRepository) FindByConversation(conversationID uint) ([]models.Message, error) {
	var result []models.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			result = append(result, *msg)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockMessageRepository) DeleteByConversation(conversationID uint) error {
	for id, msg := range m.messages {
		if msg.ConversationID == conversationID {
			delete(m.messages, id)
		}
	}
	return nil
}

type stateKey struct {
	userID         uint
	conversationID uint
}

// MockUserConversationRepository is an in-memory UserConversationRepositoryInterface for testing
type MockUserConversationRepository struct {
	states map[stateKey]*models.UserConversationState

	failCreate    error
	failIncrement error
	failReset     error
}

func NewMockUserConversationRepository() *MockUserConversationRepository {
	return &MockUserConversationRepository{
		states: make(map[stateKey]*models.UserConversationState),
	}
}

func (m *MockUserConversationRepository) Create(state *models.UserConversationState) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now
	stored := *state
	m.states[stateKey{state.UserID, state.ConversationID}] = &stored
	return nil
}

func (m *MockUserConversationRepository) Get(userID, conversationID uint) (*models.UserConversationState, error) {
	if state, ok := m.states[stateKey{userID, conversationID}]; ok {
		copied := *state
		return &copied, nil
	}
	return nil, nil
}

func (m *MockUserConversationRepository) ListByUser(userID uint) ([]models.UserConversationState, error) {
	var result []models.UserConversationState
	for _, state := range m.states {
		if state.UserID == userID {
			result = append(result, *state)
		}
	}
	return result, nil
}

func (m *MockUserConversationRepository) IncrementUnread(userID, conversationID uint) error {
	if m.failIncrement != nil {
		return m.failIncrement
	}
	state, ok := m.states[stateKey{userID, conversationID}]
	if !ok {
		return errors.New("record not found")
	}
	state.UnreadCount++
	state.UpdatedAt = time.Now()
	return nil
}

func (m *MockUserConversationRepository) ResetUnread(userID, conversationID uint, readAt time.Time) (int64, error) {
	if m.failReset != nil {
		return 0, m.failReset
	}
	state, ok := m.states[stateKey{userID, conversationID}]
	if !ok {
		return 0, nil
	}
	state.UnreadCount = 0
	state.LastReadAt = &readAt
	state.UpdatedAt = time.Now()
	return 1, nil
}

func (m *MockUserConversationRepository) SumUnread(userID uint) (int64, error) {
	var total int64
	for _, state := range m.states {
		if state.UserID == userID {
			total += state.UnreadCount
		}
	}
	return total, nil
}

func (m *MockUserConversationRepository) DeleteByConversation(conversationID uint) error {
	for key := range m.states {
		if key.conversationID == conversationID {
			delete(m.states, key)
		}
	}
	return nil
}
