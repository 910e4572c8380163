package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// EndpointSecurityConfig maps HTTP route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Operational - Public
	"health":  SecurityPublic,
	"metrics": SecurityPublic,

	// Invitations - Access Protected
	"invitations.send":   SecurityAccess,
	"invitations.list":   SecurityAccess,
	"invitations.accept": SecurityAccess,
	"invitations.reject": SecurityAccess,

	// Group formation - Access Protected
	"group_requests.submit":  SecurityAccess,
	"group_requests.get":     SecurityAccess,
	"group_requests.respond": SecurityAccess,

	// Approval chain - Access Protected
	"approvals.create":  SecurityAccess,
	"approvals.pending": SecurityAccess,
	"approvals.approve": SecurityAccess,
	"approvals.reject":  SecurityAccess,
	"approvals.return":  SecurityAccess,

	// Notifications - Access Protected
	"notifications.list":          SecurityAccess,
	"notifications.unread_count":  SecurityAccess,
	"notifications.stats":         SecurityAccess,
	"notifications.mark_read":     SecurityAccess,
	"notifications.mark_all_read": SecurityAccess,
	"notifications.delete":        SecurityAccess,
	"notifications.stream":        SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
