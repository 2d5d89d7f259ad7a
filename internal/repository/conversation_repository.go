package repository

import (
	"errors"
	"time"

	"github.com/folionet/messaging-backend/internal/models"
	"gorm.io/gorm"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(conv *models.Conversation) error {
	return r.db.Create(conv).Error
}

func (r *ConversationRepository) FindByID(id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.First(&conv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindByPair looks up a conversation by its canonical participant pair.
// Callers are expected to pass the pair already ordered (see models.CanonicalPair).
// When duplicates exist (concurrent first contact), the earliest-created row wins.
func (r *ConversationRepository) FindByPair(userAID, userBID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.Where("user_a_id = ? AND user_b_id = ?", userAID, userBID).
		Order("created_at ASC, id ASC").
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepository) FindByParticipant(userID uint) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("updated_at DESC, id DESC").
		Find(&convs).Error
	return convs, err
}

func (r *ConversationRepository) FindAll() ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.Order("created_at ASC, id ASC").Find(&convs).Error
	return convs, err
}

// TouchLastMessage refreshes the denormalized last-message snapshot and bumps
// updated_at, which drives inbox ordering.
func (r *ConversationRepository) TouchLastMessage(id uint, last models.LastMessage, at time.Time) error {
	return r.db.Model(&models.Conversation{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message_text":      last.Text,
			"last_message_sender_id": last.SenderID,
			"last_message_at":        last.SentAt,
			"updated_at":             at,
		}).Error
}

func (r *ConversationRepository) Delete(id uint) error {
	return r.db.Delete(&models.Conversation{}, id).Error
}
