package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bloomdoula/bloom-be/internal/messaging"
	"github.com/bloomdoula/bloom-be/internal/models"
)

// ConversationStore is the Postgres-backed messaging.Store.
type ConversationStore struct {
	DB *gorm.DB
}

func NewConversationStore(db *gorm.DB) *ConversationStore {
	return &ConversationStore{DB: db}
}

func (s *ConversationStore) FindConversation(ctx context.Context, id uuid.UUID) (*messaging.Conversation, error) {
	var row models.Conversation
	if err := s.DB.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	conv := row.AuthzView()
	return &conv, nil
}

func (s *ConversationStore) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *ConversationStore) QueryConversations(ctx context.Context, q messaging.ConversationQuery) ([]messaging.Conversation, int64, error) {
	tx := s.DB.WithContext(ctx).Model(&models.Conversation{})

	if len(q.Types) > 0 {
		tx = tx.Where("type IN ?", q.Types)
	}
	if q.ClientID != nil {
		tx = tx.Where("client_id = ?", *q.ClientID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Conversation
	err := tx.
		Order("last_message_at DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]messaging.Conversation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.AuthzView())
	}
	return out, total, nil
}
