package messaging

// Permission is a coarse capability used for route and UI gating. It is a
// hint only: per-conversation checks on the Authorizer remain authoritative.
type Permission string

const (
	PermCreate                     Permission = "create"
	PermRead                       Permission = "read"
	PermUpdate                     Permission = "update"
	PermDelete                     Permission = "delete"
	PermReadAllClientConversations Permission = "read_all_client_conversations"
	PermReadTeamConversations      Permission = "read_team_conversations"
	PermDeleteAnyMessage           Permission = "delete_any_message"
)

var rolePermissions = map[StaffRole]map[Permission]bool{
	RoleAdmin: {
		PermCreate:                     true,
		PermRead:                       true,
		PermUpdate:                     true,
		PermDelete:                     true,
		PermReadAllClientConversations: true,
		PermReadTeamConversations:      true,
		PermDeleteAnyMessage:           true,
	},
	RoleProvider: {
		PermCreate:                     true,
		PermRead:                       true,
		PermUpdate:                     true,
		PermDelete:                     true,
		PermReadAllClientConversations: true,
		PermReadTeamConversations:      true,
	},
	RoleViewer: {
		PermRead:                       true,
		PermReadAllClientConversations: true,
	},
}

// HasMessagingPermission reports whether a staff role carries the given
// capability. An unknown or empty role has none.
func HasMessagingPermission(role StaffRole, perm Permission) bool {
	return rolePermissions[role][perm]
}
