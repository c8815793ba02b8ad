package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Conversation is the store's view of a thread, reduced to the fields the
// access rules need.
type Conversation struct {
	ID            uuid.UUID          `json:"id"`
	Type          ConversationType   `json:"conversation_type"`
	ClientID      *uuid.UUID         `json:"client_id,omitempty"`
	Status        ConversationStatus `json:"status"`
	Title         string             `json:"title"`
	LastMessageAt time.Time          `json:"last_message_at"`
}

// Message carries the author identity of a stored message. Exactly one of
// SenderUserID / SenderClientID is set.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderUserID   *uuid.UUID
	SenderClientID *uuid.UUID
}

// ConversationQuery is the filter the accessor pushes down to the store.
// Status empty means no status filter.
type ConversationQuery struct {
	Types    []ConversationType
	ClientID *uuid.UUID
	Status   ConversationStatus
	Limit    int
	Offset   int
}

// Store is the read surface the authorization core needs from persistence.
// Implementations must answer from current data on every call; decisions are
// never cached across requests.
type Store interface {
	// FindConversation returns nil, nil when no row exists.
	FindConversation(ctx context.Context, id uuid.UUID) (*Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	// QueryConversations returns a page ordered by most recent activity first,
	// plus the total row count matching the filter.
	QueryConversations(ctx context.Context, q ConversationQuery) ([]Conversation, int64, error)
}
