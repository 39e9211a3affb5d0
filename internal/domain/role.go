package domain

// Role represents a user's access level.
type Role string

const (
	RoleUser       Role = "user"
	RoleLogger     Role = "logger"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Capability names an action a role may or may not perform. Handlers
// check capabilities through Role.Can rather than comparing role
// strings inline, so the full permission matrix lives in one place.
type Capability string

const (
	CapRecordEvent      Capability = "record_event"
	CapManageMatches    Capability = "manage_matches"
	CapUpdateMatchState Capability = "update_match_state"
	CapRecomputeStats   Capability = "recompute_stats"
	CapViewQuarantine   Capability = "view_quarantine"
	CapSendAnnouncement Capability = "send_announcement"
	CapManageUsers      Capability = "manage_users"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleUser: {},
	RoleLogger: {
		CapRecordEvent:      true,
		CapUpdateMatchState: true,
	},
	RoleAdmin: {
		CapRecordEvent:      true,
		CapManageMatches:    true,
		CapUpdateMatchState: true,
		CapRecomputeStats:   true,
		CapViewQuarantine:   true,
		CapSendAnnouncement: true,
	},
	RoleSuperAdmin: {
		CapRecordEvent:      true,
		CapManageMatches:    true,
		CapUpdateMatchState: true,
		CapRecomputeStats:   true,
		CapViewQuarantine:   true,
		CapSendAnnouncement: true,
		CapManageUsers:      true,
	},
}

// Can reports whether the role is allowed to perform the capability.
func (r Role) Can(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	return caps[c]
}

// Valid reports whether the role is a known role.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}
