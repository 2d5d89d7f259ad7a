package repository

import (
	"errors"
	"time"

	"github.com/folionet/messaging-backend/internal/models"
	"gorm.io/gorm"
)

type UserConversationRepository struct {
	db *gorm.DB
}

func NewUserConversationRepository(db *gorm.DB) *UserConversationRepository {
	return &UserConversationRepository{db: db}
}

func (r *UserConversationRepository) Create(state *models.UserConversationState) error {
	return r.db.Create(state).Error
}

func (r *UserConversationRepository) Get(userID, conversationID uint) (*models.UserConversationState, error) {
	var state models.UserConversationState
	err := r.db.Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *UserConversationRepository) ListByUser(userID uint) ([]models.UserConversationState, error) {
	var states []models.UserConversationState
	err := r.db.Where("user_id = ?", userID).Find(&states).Error
	return states, err
}

// IncrementUnread bumps the counter in a single UPDATE so concurrent sends
// from both directions cannot under-count each other.
func (r *UserConversationRepository) IncrementUnread(userID, conversationID uint) error {
	res := r.db.Exec(`
		UPDATE user_conversations
		SET unread_count = unread_count + 1, updated_at = NOW()
		WHERE user_id = ? AND conversation_id = ?
	`, userID, conversationID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ResetUnread zeroes the counter and stamps the read watermark. Returns the
// number of rows touched; 0 means the user has no state row for the
// conversation.
func (r *UserConversationRepository) ResetUnread(userID, conversationID uint, readAt time.Time) (int64, error) {
	res := r.db.Exec(`
		UPDATE user_conversations
		SET unread_count = 0, last_read_at = ?, updated_at = NOW()
		WHERE user_id = ? AND conversation_id = ?
	`, readAt, userID, conversationID)
	return res.RowsAffected, res.Error
}

func (r *UserConversationRepository) SumUnread(userID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.UserConversationState{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(unread_count), 0)").
		Scan(&total).Error
	return total, err
}

func (r *UserConversationRepository) DeleteByConversation(conversationID uint) error {
	return r.db.Where("conversation_id = ?", conversationID).
		Delete(&models.UserConversationState{}).Error
}
