package identity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies which portal population an identity belongs to.
//
// The role decides which navigation surface a session is allowed to see,
// so anything outside the known set is treated as not-yet-valid rather
// than mapped to a default.
type Role string

const (
	// RoleElderly is an elderly end-user of the care platform
	RoleElderly Role = "elderly"
	// RoleFamily is a family member linked to an elderly user
	RoleFamily Role = "family"
	// RoleProfessional is a care professional managing users
	RoleProfessional Role = "professional"
)

// ParseRole parses a string into a Role.
// Returns false for anything outside the known role set.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleElderly:
		return RoleElderly, true
	case RoleFamily:
		return RoleFamily, true
	case RoleProfessional:
		return RoleProfessional, true
	default:
		return "", false
	}
}

// Valid reports whether the role is one of the known portal roles.
func (r Role) Valid() bool {
	switch r {
	case RoleElderly, RoleFamily, RoleProfessional:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Identity is the authenticated principal returned by the authentication
// service and persisted between runs.
//
// FirstName and LastName are display-only. Extra carries role-specific
// attributes the portal does not interpret (for example a family member's
// linked elderly-user reference); they survive serialization round trips
// untouched.
type Identity struct {
	ID        string
	Role      Role
	FirstName string
	LastName  string
	Extra     map[string]any
}

// Validate reports whether the identity can back an authenticated session.
//
// An identity is valid when it has a non-empty ID and a role from the known
// set. Anything else must never be routed into a role-specific view.
func (i *Identity) Validate() error {
	if i == nil {
		return fmt.Errorf("identity is nil")
	}
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("identity has no id")
	}
	if !i.Role.Valid() {
		return fmt.Errorf("identity has unknown role %q", i.Role)
	}
	return nil
}

// DisplayName returns the name shown in the identity banner.
func (i *Identity) DisplayName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name == "" {
		return i.ID
	}
	return name
}

// Known wire field names. Everything else round-trips through Extra.
const (
	fieldID        = "id"
	fieldRole      = "role"
	fieldFirstName = "firstName"
	fieldLastName  = "lastName"
)

// MarshalJSON serializes the identity with its opaque extras inlined.
func (i Identity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(i.Extra)+4)
	for k, v := range i.Extra {
		out[k] = v
	}
	out[fieldID] = i.ID
	out[fieldRole] = string(i.Role)
	if i.FirstName != "" {
		out[fieldFirstName] = i.FirstName
	}
	if i.LastName != "" {
		out[fieldLastName] = i.LastName
	}
	return json.Marshal(out)
}

// UnmarshalJSON deserializes the identity, folding unknown fields into Extra.
// It does not enforce the validity invariant; callers decide what to do with
// an identity that fails Validate.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*i = Identity{}
	for k, v := range raw {
		switch k {
		case fieldID:
			if s, ok := v.(string); ok {
				i.ID = s
			}
		case fieldRole:
			if s, ok := v.(string); ok {
				i.Role = Role(s)
			}
		case fieldFirstName:
			if s, ok := v.(string); ok {
				i.FirstName = s
			}
		case fieldLastName:
			if s, ok := v.(string); ok {
				i.LastName = s
			}
		default:
			if i.Extra == nil {
				i.Extra = make(map[string]any)
			}
			i.Extra[k] = v
		}
	}
	return nil
}
