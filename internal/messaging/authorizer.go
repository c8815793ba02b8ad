package messaging

import (
	"context"

	"github.com/google/uuid"
)

// TargetKind names who a new conversation is opened with.
type TargetKind string

const (
	TargetUser   TargetKind = "user"
	TargetClient TargetKind = "client"
)

// Authorizer decides per-conversation access. Every check is fail-closed: a
// missing row, a store error, or an unmatched rule all resolve to false.
type Authorizer struct {
	store Store
}

func NewAuthorizer(store Store) *Authorizer {
	return &Authorizer{store: store}
}

// CanViewConversation reports whether caller may open the conversation.
//
// Staff see every client-facing thread regardless of who started it, so any
// team member can pick up a client conversation. Team threads are opt-in:
// staff access requires a participant row. Clients only ever see their own
// client-visible threads.
func (a *Authorizer) CanViewConversation(ctx context.Context, caller Caller, conversationID uuid.UUID) bool {
	conv, err := a.store.FindConversation(ctx, conversationID)
	if err != nil || conv == nil {
		return false
	}
	return a.canAccess(ctx, caller, conv)
}

// CanSendMessage applies the view rules plus the status gate: only active
// conversations accept messages, for everyone, admins included.
func (a *Authorizer) CanSendMessage(ctx context.Context, caller Caller, conversationID uuid.UUID) bool {
	conv, err := a.store.FindConversation(ctx, conversationID)
	if err != nil || conv == nil {
		return false
	}
	if conv.Status != StatusActive {
		return false
	}
	return a.canAccess(ctx, caller, conv)
}

// CanStartConversationWith reports whether caller may open a new thread with
// the given target. Clients can never initiate; every client-facing thread is
// staff-provisioned.
func (a *Authorizer) CanStartConversationWith(caller Caller, targetID uuid.UUID, kind TargetKind) bool {
	switch caller.(type) {
	case StaffCaller:
		return kind == TargetUser || kind == TargetClient
	default:
		return false
	}
}

// CanDeleteMessage allows authors to delete their own messages; admin staff
// may delete anyone's. Clients never escalate past their own.
func (a *Authorizer) CanDeleteMessage(caller Caller, msg Message) bool {
	switch c := caller.(type) {
	case StaffCaller:
		if msg.SenderUserID != nil && *msg.SenderUserID == c.ID {
			return true
		}
		return c.Role == RoleAdmin
	case ClientCaller:
		return msg.SenderClientID != nil && *msg.SenderClientID == c.ClientID
	default:
		return false
	}
}

func (a *Authorizer) canAccess(ctx context.Context, caller Caller, conv *Conversation) bool {
	switch c := caller.(type) {
	case StaffCaller:
		switch conv.Type {
		case TypeClientDirect, TypeTeamAboutClient:
			return true
		case TypeTeamInternal, TypeDirect, TypeGroup:
			ok, err := a.store.IsParticipant(ctx, conv.ID, c.ID)
			return err == nil && ok
		default:
			return false
		}
	case ClientCaller:
		if conv.ClientID == nil {
			return false
		}
		switch conv.Type {
		case TypeClientDirect, TypeDirect:
			return *conv.ClientID == c.ClientID
		default:
			return false
		}
	default:
		return false
	}
}
