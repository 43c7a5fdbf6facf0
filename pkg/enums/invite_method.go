package enums

import "fmt"

// InviteMethod distinguishes how an invitation is delivered. Link invites
// carry no recipient address; the method field replaces the placeholder
// addresses the legacy client fabricated for shared links.
type InviteMethod string

const (
	InviteMethodEmail InviteMethod = "email"
	InviteMethodLink  InviteMethod = "link"
)

var validInviteMethods = []InviteMethod{
	InviteMethodEmail,
	InviteMethodLink,
}

// String implements fmt.Stringer.
func (m InviteMethod) String() string {
	return string(m)
}

// IsValid reports whether the value matches a known InviteMethod.
func (m InviteMethod) IsValid() bool {
	for _, candidate := range validInviteMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseInviteMethod converts raw input into an InviteMethod.
func ParseInviteMethod(value string) (InviteMethod, error) {
	for _, candidate := range validInviteMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invite method %q", value)
}
