package messaging

import "context"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListOptions filters a conversation listing. Status empty defaults to
// active; StatusAll lists every status.
type ListOptions struct {
	Status ConversationStatus
	Limit  int
	Offset int
}

type ListResult struct {
	Conversations []Conversation `json:"conversations"`
	// Total is the store-side count of rows matching the caller's visible
	// types. Team-internal threads the caller does not participate in are
	// dropped after the page is fetched, so Total can exceed the number of
	// conversations the caller can actually open.
	Total int64 `json:"total"`
}

// staffListTypes covers every type a staff listing may surface. System rows
// are never listed.
var staffListTypes = []ConversationType{
	TypeClientDirect,
	TypeTeamAboutClient,
	TypeTeamInternal,
	TypeDirect,
	TypeGroup,
}

// AccessibleConversations returns the page of conversations the caller may
// see, newest activity first. Unlike the can* checks, a store failure here is
// a failed fetch and propagates to the caller.
func (a *Authorizer) AccessibleConversations(ctx context.Context, caller Caller, opts ListOptions) (ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	status := opts.Status
	switch status {
	case "":
		status = StatusActive
	case StatusAll:
		status = ""
	}

	switch c := caller.(type) {
	case StaffCaller:
		rows, total, err := a.store.QueryConversations(ctx, ConversationQuery{
			Types:  staffListTypes,
			Status: status,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return ListResult{}, err
		}

		// Team-internal membership cannot be pushed into the page query, so
		// the caller's non-member threads are dropped here.
		out := make([]Conversation, 0, len(rows))
		for _, conv := range rows {
			if conv.Type == TypeTeamInternal {
				member, err := a.store.IsParticipant(ctx, conv.ID, c.ID)
				if err != nil {
					return ListResult{}, err
				}
				if !member {
					continue
				}
			}
			out = append(out, conv)
		}
		return ListResult{Conversations: out, Total: total}, nil

	case ClientCaller:
		clientID := c.ClientID
		rows, total, err := a.store.QueryConversations(ctx, ConversationQuery{
			Types:    []ConversationType{TypeClientDirect},
			ClientID: &clientID,
			Status:   status,
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			return ListResult{}, err
		}
		return ListResult{Conversations: rows, Total: total}, nil

	default:
		return ListResult{Conversations: []Conversation{}}, nil
	}
}
