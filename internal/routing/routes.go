package routing

import (
	"strings"

	"github.com/acompana/portal/internal/identity"
)

// Path vocabulary shared with the view layer. The portal does not define
// what each screen shows, only which role may reach which segment.
const (
	// PathRoot is the landing page when logged out and the role dashboard
	// when logged in.
	PathRoot = "/"

	// Public paths
	PathRoleSelect        = "/login"
	PathElderlyLogin      = "/login/elderly"
	PathFamilyLogin       = "/login/family"
	PathProfessionalLogin = "/login/professional"

	// Shared-layout paths (elderly and/or family)
	PathChat      = "/chat"
	PathReminders = "/reminders"
	PathMemory    = "/memory"
	PathMessages  = "/messages"
	PathInfo      = "/info"

	// Professional shell paths
	PathUsers      = "/users"
	PathCreateUser = "/users/new"
	PathPasswords  = "/passwords"
)

var publicPaths = []string{
	PathRoot,
	PathRoleSelect,
	PathElderlyLogin,
	PathFamilyLogin,
	PathProfessionalLogin,
}

var elderlyPaths = []string{
	PathRoot,
	PathChat,
	PathReminders,
	PathMemory,
	PathMessages,
	PathInfo,
}

var familyPaths = []string{
	PathRoot,
	PathReminders,
	PathMessages,
	PathInfo,
}

var professionalPaths = []string{
	PathRoot,
	PathCreateUser,
	PathReminders,
	PathPasswords,
}

// PathsFor returns the route allowlist for a role. The returned slice is
// shared; callers must not mutate it.
func PathsFor(role identity.Role) []string {
	switch role {
	case identity.RoleElderly:
		return elderlyPaths
	case identity.RoleFamily:
		return familyPaths
	case identity.RoleProfessional:
		return professionalPaths
	default:
		return nil
	}
}

// Allowed reports whether a role may reach a path. Routes are role-scoped
// by construction: a path not in the role's allowlist simply does not
// exist for that role.
func Allowed(role identity.Role, path string) bool {
	for _, p := range PathsFor(role) {
		if p == path {
			return true
		}
	}
	// User detail pages (/users/<id>) are professional-only.
	if role == identity.RoleProfessional && isUserDetail(path) {
		return true
	}
	return false
}

func isPublic(path string) bool {
	for _, p := range publicPaths {
		if p == path {
			return true
		}
	}
	return false
}

// isUserDetail matches /users/<id> for a non-empty id that is not the
// create-user segment.
func isUserDetail(path string) bool {
	if path == PathCreateUser {
		return false
	}
	rest, ok := strings.CutPrefix(path, PathUsers+"/")
	return ok && rest != "" && !strings.Contains(rest, "/")
}
