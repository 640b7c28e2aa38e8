package routing

import (
	"github.com/acompana/portal/internal/identity"
	"github.com/acompana/portal/internal/session"
)

// Kind classifies which view surface gets mounted.
type Kind int

const (
	// KindLoading shows the global loading indicator; no routes are
	// evaluated while durable storage is still being read
	KindLoading Kind = iota
	// KindPublic mounts a public route (landing, role selection, logins)
	KindPublic
	// KindVerifyingAccess is the holding screen for an identity whose
	// role is not yet valid
	KindVerifyingAccess
	// KindProfessionalShell mounts the dedicated professional shell,
	// never alongside the shared layout
	KindProfessionalShell
	// KindSharedLayout mounts the shared layout (identity banner plus
	// logout control) around an elderly or family route
	KindSharedLayout
	// KindRedirect is a soft redirect to the role's dashboard
	KindRedirect
	// KindNotFound is the catch-all for unknown public paths
	KindNotFound
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindPublic:
		return "public"
	case KindVerifyingAccess:
		return "verifying-access"
	case KindProfessionalShell:
		return "professional-shell"
	case KindSharedLayout:
		return "shared-layout"
	case KindRedirect:
		return "redirect"
	case KindNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// Decision is the resolved navigation outcome for one state/path pair.
type Decision struct {
	Kind Kind

	// Path is the route actually mounted (public, shell, or layout kinds).
	Path string

	// RedirectTo is the target of a soft redirect.
	RedirectTo string

	// Role is the session role for role-scoped kinds.
	Role identity.Role
}

// Resolve maps a session state and a requested path to the view surface
// to mount. It is a pure function: the same inputs always produce the
// same decision, evaluated in a fixed order with first match winning.
//
// An identity without a valid role is never routed into any role-specific
// subtree, not even transiently; it stays on the verifying-access screen
// until the role becomes valid or the session is cleared. Guessing a role
// instead would hand one population another population's views.
func Resolve(st session.State, path string) Decision {
	switch st.Phase {
	case session.PhaseLoading:
		return Decision{Kind: KindLoading}

	case session.PhaseUnauthenticated:
		if isPublic(path) {
			return Decision{Kind: KindPublic, Path: path}
		}
		return Decision{Kind: KindNotFound, Path: path}

	case session.PhasePendingRole:
		return Decision{Kind: KindVerifyingAccess}

	case session.PhaseAuthenticated:
		role := st.Identity.Role
		if role == identity.RoleProfessional {
			// The shell owns its internal routes; anything it does not
			// know lands on the professional dashboard.
			if Allowed(role, path) {
				return Decision{Kind: KindProfessionalShell, Path: path, Role: role}
			}
			return Decision{Kind: KindProfessionalShell, Path: PathRoot, Role: role}
		}
		if Allowed(role, path) {
			return Decision{Kind: KindSharedLayout, Path: path, Role: role}
		}
		// Paths outside the allowlist (including the other role's
		// segments) soft-redirect to this role's dashboard.
		return Decision{Kind: KindRedirect, RedirectTo: PathRoot, Role: role}

	default:
		return Decision{Kind: KindNotFound, Path: path}
	}
}
