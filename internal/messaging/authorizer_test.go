package messaging

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store for unit tests.
type fakeStore struct {
	conversations map[uuid.UUID]Conversation
	participants  map[uuid.UUID]map[uuid.UUID]bool

	findErr        error
	participantErr error
	queryErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conversations: make(map[uuid.UUID]Conversation),
		participants:  make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (f *fakeStore) addConversation(conv Conversation) {
	f.conversations[conv.ID] = conv
}

func (f *fakeStore) addParticipant(conversationID, userID uuid.UUID) {
	if f.participants[conversationID] == nil {
		f.participants[conversationID] = make(map[uuid.UUID]bool)
	}
	f.participants[conversationID][userID] = true
}

func (f *fakeStore) removeParticipant(conversationID, userID uuid.UUID) {
	delete(f.participants[conversationID], userID)
}

func (f *fakeStore) FindConversation(_ context.Context, id uuid.UUID) (*Conversation, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	conv, ok := f.conversations[id]
	if !ok {
		return nil, nil
	}
	return &conv, nil
}

func (f *fakeStore) IsParticipant(_ context.Context, conversationID, userID uuid.UUID) (bool, error) {
	if f.participantErr != nil {
		return false, f.participantErr
	}
	return f.participants[conversationID][userID], nil
}

func (f *fakeStore) QueryConversations(_ context.Context, q ConversationQuery) ([]Conversation, int64, error) {
	if f.queryErr != nil {
		return nil, 0, f.queryErr
	}

	typeSet := make(map[ConversationType]bool, len(q.Types))
	for _, t := range q.Types {
		typeSet[t] = true
	}

	var matched []Conversation
	for _, conv := range f.conversations {
		if len(typeSet) > 0 && !typeSet[conv.Type] {
			continue
		}
		if q.ClientID != nil && (conv.ClientID == nil || *conv.ClientID != *q.ClientID) {
			continue
		}
		if q.Status != "" && conv.Status != q.Status {
			continue
		}
		matched = append(matched, conv)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].LastMessageAt.After(matched[j].LastMessageAt)
	})

	total := int64(len(matched))
	if q.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func conv(t ConversationType, status ConversationStatus, clientID *uuid.UUID) Conversation {
	return Conversation{
		ID:            uuid.New(),
		Type:          t,
		ClientID:      clientID,
		Status:        status,
		LastMessageAt: time.Now(),
	}
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestCanViewConversation_StaffClientFacingTypes(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)
	ctx := context.Background()

	clientID := uuid.New()
	direct := conv(TypeClientDirect, StatusActive, ptr(clientID))
	about := conv(TypeTeamAboutClient, StatusActive, ptr(clientID))
	store.addConversation(direct)
	store.addConversation(about)

	// Any staff member, any role, no participant row required.
	for _, role := range []StaffRole{RoleAdmin, RoleProvider, RoleViewer, ""} {
		staff := StaffCaller{ID: uuid.New(), Role: role}
		assert.True(t, auth.CanViewConversation(ctx, staff, direct.ID), "role %q on client_direct", role)
		assert.True(t, auth.CanViewConversation(ctx, staff, about.ID), "role %q on team_about_client", role)
	}
}

func TestCanViewConversation_StaffParticipantGatedTypes(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)
	ctx := context.Background()

	provider := StaffCaller{ID: uuid.New(), Role: RoleProvider}

	for _, tc := range []ConversationType{TypeTeamInternal, TypeDirect, TypeGroup} {
		c := conv(tc, StatusActive, nil)
		store.addConversation(c)

		assert.False(t, auth.CanViewConversation(ctx, provider, c.ID), "non-participant on %s", tc)

		store.addParticipant(c.ID, provider.ID)
		assert.True(t, auth.CanViewConversation(ctx, provider, c.ID), "participant on %s", tc)

		store.removeParticipant(c.ID, provider.ID)
		assert.False(t, auth.CanViewConversation(ctx, provider, c.ID), "removed participant on %s", tc)
	}
}

func TestCanViewConversation_ClientOwnership(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)
	ctx := context.Background()

	clientID := uuid.New()
	me := ClientCaller{ClientID: clientID}
	other := ClientCaller{ClientID: uuid.New()}

	mine := conv(TypeClientDirect, StatusActive, ptr(clientID))
	legacy := conv(TypeDirect, StatusActive, ptr(clientID))
	store.addConversation(mine)
	store.addConversation(legacy)

	assert.True(t, auth.CanViewConversation(ctx, me, mine.ID))
	assert.True(t, auth.CanViewConversation(ctx, me, legacy.ID))
	assert.False(t, auth.CanViewConversation(ctx, other, mine.ID))
	assert.False(t, auth.CanViewConversation(ctx, other, legacy.ID))
}

func TestCanViewConversation_ClientNeverSeesTeamThreads(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)
	ctx := context.Background()

	clientID := uuid.New()
	me := ClientCaller{ClientID: clientID}

	// Even a team thread about this very client stays invisible to them.
	about := conv(TypeTeamAboutClient, StatusActive, ptr(clientID))
	internal := conv(TypeTeamInternal, StatusActive, nil)
	store.addConversation(about)
	store.addConversation(internal)

	assert.False(t, auth.CanViewConversation(ctx, me, about.ID))
	assert.False(t, auth.CanViewConversation(ctx, me, internal.ID))
}

func TestCanViewConversation_FailClosed(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)
	ctx := context.Background()

	staff := StaffCaller{ID: uuid.New(), Role: RoleAdmin}
	client := ClientCaller{ClientID: uuid.New()}

	// Unknown conversation.
	assert.False(t, auth.CanViewConversation(ctx, staff, uuid.New()))

	// Anonymous caller, existing conversation.
	c := conv(TypeClientDirect, StatusActive, ptr(client.ClientID))
	store.addConversation(c)
	assert.False(t, auth.CanViewConversation(ctx, Anonymous{}, c.ID))

	// System type denies everyone.
	sys := conv(TypeSystem, StatusActive, nil)
	store.addConversation(sys)
	assert.False(t, auth.CanViewConversation(ctx, staff, sys.ID))
	assert.False(t, auth.CanViewConversation(ctx, client, sys.ID))

	// Client thread with no client id set denies client callers.
	orphan := conv(TypeClientDirect, StatusActive, nil)
	store.addConversation(orphan)
	assert.False(t, auth.CanViewConversation(ctx, client, orphan.ID))

	// Store errors collapse to deny, never propagate.
	store.findErr = errors.New("connection reset")
	assert.False(t, auth.CanViewConversation(ctx, staff, c.ID))
	store.findErr = nil

	store.participantErr = errors.New("connection reset")
	internal := conv(TypeTeamInternal, StatusActive, nil)
	store.addConversation(internal)
	store.addParticipant(internal.ID, staff.ID)
	assert.False(t, auth.CanViewConversation(ctx, staff, internal.ID))
}

func TestCanSendMessage_StatusGate(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)
	ctx := context.Background()

	clientID := uuid.New()
	admin := StaffCaller{ID: uuid.New(), Role: RoleAdmin}
	client := ClientCaller{ClientID: clientID}

	for _, status := range []ConversationStatus{StatusClosed, StatusArchived} {
		c := conv(TypeClientDirect, status, ptr(clientID))
		store.addConversation(c)

		// Read-only for everyone, admins included, but still viewable.
		assert.False(t, auth.CanSendMessage(ctx, admin, c.ID), "admin send on %s", status)
		assert.False(t, auth.CanSendMessage(ctx, client, c.ID), "client send on %s", status)
		assert.True(t, auth.CanViewConversation(ctx, admin, c.ID))
		assert.True(t, auth.CanViewConversation(ctx, client, c.ID))
	}

	active := conv(TypeClientDirect, StatusActive, ptr(clientID))
	store.addConversation(active)
	assert.True(t, auth.CanSendMessage(ctx, admin, active.ID))
	assert.True(t, auth.CanSendMessage(ctx, client, active.ID))
}

func TestCanSendMessage_SameRulesAsView(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)
	ctx := context.Background()

	provider := StaffCaller{ID: uuid.New(), Role: RoleProvider}
	internal := conv(TypeTeamInternal, StatusActive, nil)
	store.addConversation(internal)

	assert.False(t, auth.CanSendMessage(ctx, provider, internal.ID))
	store.addParticipant(internal.ID, provider.ID)
	assert.True(t, auth.CanSendMessage(ctx, provider, internal.ID))
}

func TestCanStartConversationWith(t *testing.T) {
	auth := NewAuthorizer(newFakeStore())

	staff := StaffCaller{ID: uuid.New(), Role: RoleProvider}
	client := ClientCaller{ClientID: uuid.New()}
	target := uuid.New()

	assert.True(t, auth.CanStartConversationWith(staff, target, TargetUser))
	assert.True(t, auth.CanStartConversationWith(staff, target, TargetClient))
	assert.False(t, auth.CanStartConversationWith(staff, target, TargetKind("channel")))

	// Clients never initiate, regardless of target.
	assert.False(t, auth.CanStartConversationWith(client, target, TargetUser))
	assert.False(t, auth.CanStartConversationWith(client, target, TargetClient))
	assert.False(t, auth.CanStartConversationWith(client, client.ClientID, TargetUser))

	assert.False(t, auth.CanStartConversationWith(Anonymous{}, target, TargetUser))
}

func TestCanDeleteMessage(t *testing.T) {
	auth := NewAuthorizer(newFakeStore())

	authorStaff := StaffCaller{ID: uuid.New(), Role: RoleProvider}
	admin := StaffCaller{ID: uuid.New(), Role: RoleAdmin}
	otherProvider := StaffCaller{ID: uuid.New(), Role: RoleProvider}
	viewer := StaffCaller{ID: uuid.New(), Role: RoleViewer}

	staffMsg := Message{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		SenderUserID:   ptr(authorStaff.ID),
	}

	assert.True(t, auth.CanDeleteMessage(authorStaff, staffMsg), "author deletes own")
	assert.True(t, auth.CanDeleteMessage(admin, staffMsg), "admin override")
	assert.False(t, auth.CanDeleteMessage(otherProvider, staffMsg), "provider cannot delete another's")
	assert.False(t, auth.CanDeleteMessage(viewer, staffMsg))

	authorClient := ClientCaller{ClientID: uuid.New()}
	otherClient := ClientCaller{ClientID: uuid.New()}
	clientMsg := Message{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		SenderClientID: ptr(authorClient.ClientID),
	}

	assert.True(t, auth.CanDeleteMessage(authorClient, clientMsg))
	assert.False(t, auth.CanDeleteMessage(otherClient, clientMsg))
	// A client never deletes staff messages, and staff ownership never
	// matches a client message author.
	assert.False(t, auth.CanDeleteMessage(authorClient, staffMsg))
	assert.False(t, auth.CanDeleteMessage(otherProvider, clientMsg))
	assert.True(t, auth.CanDeleteMessage(admin, clientMsg), "admin override spans client messages")

	assert.False(t, auth.CanDeleteMessage(Anonymous{}, staffMsg))
	assert.False(t, auth.CanDeleteMessage(Anonymous{}, clientMsg))
}

// Every caller kind against every type with no participant rows and no
// ownership: the only true results must be the staff continuity-of-care
// pairs.
func TestAuthorizer_FailClosedTotality(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)
	ctx := context.Background()

	staff := StaffCaller{ID: uuid.New(), Role: RoleProvider}
	client := ClientCaller{ClientID: uuid.New()}

	allTypes := []ConversationType{
		TypeClientDirect, TypeTeamInternal, TypeTeamAboutClient,
		TypeDirect, TypeGroup, TypeSystem, ConversationType("unknown"),
	}

	for _, tc := range allTypes {
		c := conv(tc, StatusActive, nil)
		store.addConversation(c)

		staffAllowed := tc == TypeClientDirect || tc == TypeTeamAboutClient
		assert.Equal(t, staffAllowed, auth.CanViewConversation(ctx, staff, c.ID), "staff view %s", tc)
		assert.Equal(t, staffAllowed, auth.CanSendMessage(ctx, staff, c.ID), "staff send %s", tc)

		assert.False(t, auth.CanViewConversation(ctx, client, c.ID), "client view %s", tc)
		assert.False(t, auth.CanViewConversation(ctx, Anonymous{}, c.ID), "anonymous view %s", tc)
	}
}

func TestAuthorizer_TeamInternalParticipantScenario(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)
	ctx := context.Background()

	provider := StaffCaller{ID: uuid.New(), Role: RoleProvider}
	team := conv(TypeTeamInternal, StatusActive, nil)
	store.addConversation(team)

	require.False(t, auth.CanViewConversation(ctx, provider, team.ID))
	store.addParticipant(team.ID, provider.ID)
	require.True(t, auth.CanViewConversation(ctx, provider, team.ID))
}
