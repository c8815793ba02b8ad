package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedListing(store *fakeStore, clientID uuid.UUID, member uuid.UUID) (visible, hidden Conversation) {
	base := time.Now()

	cd := conv(TypeClientDirect, StatusActive, ptr(clientID))
	cd.LastMessageAt = base.Add(-1 * time.Minute)
	store.addConversation(cd)

	about := conv(TypeTeamAboutClient, StatusActive, ptr(clientID))
	about.LastMessageAt = base.Add(-2 * time.Minute)
	store.addConversation(about)

	visible = conv(TypeTeamInternal, StatusActive, nil)
	visible.LastMessageAt = base.Add(-3 * time.Minute)
	store.addConversation(visible)
	store.addParticipant(visible.ID, member)

	hidden = conv(TypeTeamInternal, StatusActive, nil)
	hidden.LastMessageAt = base.Add(-4 * time.Minute)
	store.addConversation(hidden)

	closed := conv(TypeClientDirect, StatusClosed, ptr(clientID))
	closed.LastMessageAt = base.Add(-5 * time.Minute)
	store.addConversation(closed)

	sys := conv(TypeSystem, StatusActive, nil)
	sys.LastMessageAt = base
	store.addConversation(sys)

	return visible, hidden
}

func TestAccessibleConversations_Staff(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)
	ctx := context.Background()

	clientID := uuid.New()
	staff := StaffCaller{ID: uuid.New(), Role: RoleProvider}
	visible, hidden := seedListing(store, clientID, staff.ID)

	res, err := auth.AccessibleConversations(ctx, staff, ListOptions{})
	require.NoError(t, err)

	// Active client_direct, team_about_client, and the member team thread;
	// never the non-member team thread, the closed thread, or system rows.
	require.Len(t, res.Conversations, 3)
	ids := make(map[uuid.UUID]bool)
	for _, c := range res.Conversations {
		ids[c.ID] = true
		assert.NotEqual(t, TypeSystem, c.Type)
		assert.Equal(t, StatusActive, c.Status)
	}
	assert.True(t, ids[visible.ID])
	assert.False(t, ids[hidden.ID])

	// Newest activity first.
	for i := 1; i < len(res.Conversations); i++ {
		assert.False(t, res.Conversations[i].LastMessageAt.After(res.Conversations[i-1].LastMessageAt))
	}

	// Total reports the pre-filter store count: the hidden team thread is
	// included even though it never appears in any page.
	assert.Equal(t, int64(4), res.Total)
}

func TestAccessibleConversations_StaffAllStatuses(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)
	ctx := context.Background()

	clientID := uuid.New()
	staff := StaffCaller{ID: uuid.New(), Role: RoleAdmin}
	seedListing(store, clientID, staff.ID)

	res, err := auth.AccessibleConversations(ctx, staff, ListOptions{Status: StatusAll})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Total)

	var sawClosed bool
	for _, c := range res.Conversations {
		if c.Status == StatusClosed {
			sawClosed = true
		}
	}
	assert.True(t, sawClosed)
}

func TestAccessibleConversations_Client(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)
	ctx := context.Background()

	clientID := uuid.New()
	client := ClientCaller{ClientID: clientID}
	seedListing(store, clientID, uuid.New())

	// Another client's thread must not leak in.
	foreign := conv(TypeClientDirect, StatusActive, ptr(uuid.New()))
	store.addConversation(foreign)

	res, err := auth.AccessibleConversations(ctx, client, ListOptions{})
	require.NoError(t, err)
	require.Len(t, res.Conversations, 1)
	assert.Equal(t, TypeClientDirect, res.Conversations[0].Type)
	require.NotNil(t, res.Conversations[0].ClientID)
	assert.Equal(t, clientID, *res.Conversations[0].ClientID)
	assert.Equal(t, int64(1), res.Total)
}

func TestAccessibleConversations_Anonymous(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)

	seedListing(store, uuid.New(), uuid.New())

	res, err := auth.AccessibleConversations(context.Background(), Anonymous{}, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Conversations)
	assert.Zero(t, res.Total)
}

func TestAccessibleConversations_PaginationStable(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)
	ctx := context.Background()

	clientID := uuid.New()
	staff := StaffCaller{ID: uuid.New(), Role: RoleProvider}

	base := time.Now()
	for i := 0; i < 7; i++ {
		c := conv(TypeClientDirect, StatusActive, ptr(clientID))
		c.LastMessageAt = base.Add(-time.Duration(i) * time.Minute)
		store.addConversation(c)
	}

	opts := ListOptions{Limit: 3, Offset: 2}
	first, err := auth.AccessibleConversations(ctx, staff, opts)
	require.NoError(t, err)
	second, err := auth.AccessibleConversations(ctx, staff, opts)
	require.NoError(t, err)

	require.Len(t, first.Conversations, 3)
	assert.Equal(t, first.Total, second.Total)
	for i := range first.Conversations {
		assert.Equal(t, first.Conversations[i].ID, second.Conversations[i].ID)
	}
}

func TestAccessibleConversations_LimitDefaultsAndCap(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)
	ctx := context.Background()

	clientID := uuid.New()
	staff := StaffCaller{ID: uuid.New(), Role: RoleProvider}
	for i := 0; i < defaultPageSize+5; i++ {
		store.addConversation(conv(TypeClientDirect, StatusActive, ptr(clientID)))
	}

	res, err := auth.AccessibleConversations(ctx, staff, ListOptions{Limit: 0, Offset: -5})
	require.NoError(t, err)
	assert.Len(t, res.Conversations, defaultPageSize)

	res, err = auth.AccessibleConversations(ctx, staff, ListOptions{Limit: maxPageSize + 1})
	require.NoError(t, err)
	assert.Len(t, res.Conversations, defaultPageSize+5)
}

func TestAccessibleConversations_StoreErrorPropagates(t *testing.T) {
	store := newFakeStore()
	auth := NewAuthorizer(store)
	store.queryErr = errors.New("connection reset")

	_, err := auth.AccessibleConversations(context.Background(), StaffCaller{ID: uuid.New()}, ListOptions{})
	assert.Error(t, err)
}
