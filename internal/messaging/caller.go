package messaging

import "github.com/google/uuid"

type StaffRole string

const (
	RoleAdmin    StaffRole = "admin"
	RoleProvider StaffRole = "provider"
	RoleViewer   StaffRole = "viewer"
)

// Caller is the identity an authorization check runs as. Exactly one of the
// three implementations applies per request; "staff and client at once" is
// not representable.
type Caller interface {
	isCaller()
}

// StaffCaller is an authenticated internal user.
type StaffCaller struct {
	ID   uuid.UUID
	Role StaffRole
}

// ClientCaller is an authenticated portal session tied to one client record.
type ClientCaller struct {
	ClientID uuid.UUID
	Name     string
	Email    string
}

// Anonymous is an unauthenticated caller. Always denied.
type Anonymous struct{}

func (StaffCaller) isCaller()  {}
func (ClientCaller) isCaller() {}
func (Anonymous) isCaller()    {}
