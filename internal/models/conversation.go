package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/bloomdoula/bloom-be/internal/messaging"
)

// Conversation is a message thread. ClientID is set iff the type carries a
// client party (client_direct, team_about_client, legacy direct).
type Conversation struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	Type     messaging.ConversationType   `gorm:"type:varchar(30);not null;index" json:"conversation_type"`
	ClientID *uuid.UUID                   `gorm:"type:uuid;index" json:"client_id,omitempty"`
	Status   messaging.ConversationStatus `gorm:"type:varchar(20);default:'active';index" json:"status"`

	Title       string     `json:"title"`
	CreatedByID *uuid.UUID `gorm:"type:uuid" json:"created_by_id,omitempty"`

	LastMessageAt time.Time `gorm:"index" json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Client       *Client                   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
	Messages     []Message                 `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

// AuthzView reduces the row to the fields the access rules evaluate.
func (c Conversation) AuthzView() messaging.Conversation {
	return messaging.Conversation{
		ID:            c.ID,
		Type:          c.Type,
		ClientID:      c.ClientID,
		Status:        c.Status,
		Title:         c.Title,
		LastMessageAt: c.LastMessageAt,
	}
}

// ConversationParticipant ties one actor to one conversation. Exactly one of
// UserID / ClientID is set. For team threads, a row here is the sole basis
// for staff access.
type ConversationParticipant struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;index:idx_participant_conv;index:idx_participant_conv_user" json:"conversation_id"`
	UserID         *uuid.UUID `gorm:"type:uuid;index:idx_participant_conv_user" json:"user_id,omitempty"`
	ClientID       *uuid.UUID `gorm:"type:uuid;index" json:"client_id,omitempty"`

	UnreadCount int        `gorm:"default:0" json:"unread_count"`
	LastReadAt  *time.Time `json:"last_read_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is append-only; the only mutation is an explicit authorized delete.
// Exactly one of SenderUserID / SenderClientID is set.
type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;index" json:"conversation_id"`
	SenderUserID   *uuid.UUID `gorm:"type:uuid;index" json:"sender_user_id,omitempty"`
	SenderClientID *uuid.UUID `gorm:"type:uuid;index" json:"sender_client_id,omitempty"`

	Type        string         `gorm:"type:varchar(20);default:'text'" json:"type"` // text, system
	Text        string         `json:"text"`
	Attachments datatypes.JSON `json:"attachments,omitempty"` // [{url, name, content_type}]

	CreatedAt time.Time `json:"created_at"`

	SenderUser   *User   `gorm:"foreignKey:SenderUserID" json:"sender_user,omitempty"`
	SenderClient *Client `gorm:"foreignKey:SenderClientID" json:"sender_client,omitempty"`
}

// AuthzView reduces the row to the author identity the delete rule needs.
func (m Message) AuthzView() messaging.Message {
	return messaging.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderUserID:   m.SenderUserID,
		SenderClientID: m.SenderClientID,
	}
}
