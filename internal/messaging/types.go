package messaging

// ConversationType is the closed set of thread kinds the practice supports.
// Every access rule switches over this set explicitly; an unknown value is
// always treated as deny.
type ConversationType string

const (
	// TypeClientDirect is the canonical "client talks to the practice" thread.
	TypeClientDirect ConversationType = "client_direct"
	// TypeTeamInternal is staff-only discussion, visible to named participants.
	TypeTeamInternal ConversationType = "team_internal"
	// TypeTeamAboutClient is staff-only discussion about a client who is not
	// present. Visible to all staff, never to the client.
	TypeTeamAboutClient ConversationType = "team_about_client"
	// TypeDirect and TypeGroup exist for rows created before the type split.
	// Staff access is participant-gated; a direct thread carrying a client id
	// is additionally visible to that client.
	TypeDirect ConversationType = "direct"
	TypeGroup  ConversationType = "group"
	// TypeSystem is reserved and not user-addressable.
	TypeSystem ConversationType = "system"
)

type ConversationStatus string

const (
	StatusActive   ConversationStatus = "active"
	StatusClosed   ConversationStatus = "closed"
	StatusArchived ConversationStatus = "archived"
	// StatusAll is a list-filter sentinel, never stored.
	StatusAll ConversationStatus = "all"
)

// ClassifyConversation maps creation intent to a conversation type.
func ClassifyConversation(hasClient, staffOnly, aboutClientNotPresent bool) ConversationType {
	switch {
	case hasClient && !staffOnly:
		return TypeClientDirect
	case staffOnly && aboutClientNotPresent:
		return TypeTeamAboutClient
	case staffOnly:
		return TypeTeamInternal
	default:
		return TypeClientDirect
	}
}

// VisibleToClients reports whether a client party may ever see this type.
func (t ConversationType) VisibleToClients() bool {
	return t == TypeClientDirect
}

// TeamOnly reports whether the type is internal to staff.
func (t ConversationType) TeamOnly() bool {
	return t == TypeTeamInternal || t == TypeTeamAboutClient
}
