package rbac

const (
	RoleInstructor = "instructor"
	RoleAssistant  = "assistant"
	RoleAdmin      = "admin"
	RoleViewer     = "viewer"
)

// Roles lists the roles an instructor account may hold.
var Roles = []string{RoleInstructor, RoleAssistant, RoleAdmin, RoleViewer}

// Default policy. Assistants can enter scores but cannot change how a
// subject is graded. Viewers only read.
var RolePermissions = map[string][]string{
	RoleViewer: {
		"subject:view",
		"category:view",
		"student:view",
		"score:view",
		"cutoff:view",
		"grades:view",
	},
	RoleAssistant: {
		"subject:view",
		"category:view",
		"student:view",
		"score:view",
		"score:write",
		"cutoff:view",
		"grades:view",
	},
	RoleInstructor: {
		"subject:*",
		"category:*",
		"student:*",
		"score:*",
		"cutoff:*",
		"grades:*",
		"events:view",
	},
	RoleAdmin: {
		"*", // everything
	},
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
