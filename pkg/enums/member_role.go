package enums

import "fmt"

// MemberRole represents a store-level permissions role.
type MemberRole string

const (
	MemberRoleStoreOwner  MemberRole = "store_owner"
	MemberRoleStoreAdmin  MemberRole = "store_admin"
	MemberRoleSalesPerson MemberRole = "sales_person"
)

var validMemberRoles = []MemberRole{
	MemberRoleStoreOwner,
	MemberRoleStoreAdmin,
	MemberRoleSalesPerson,
}

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MemberRole.
func (m MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == m {
			return true
		}
	}
	return false
}

// CanManageCatalog reports whether the role may mutate products.
// Sales persons get read-only access.
func (m MemberRole) CanManageCatalog() bool {
	return m == MemberRoleStoreOwner || m == MemberRoleStoreAdmin
}

// CanManageStaff reports whether the role may invite, re-role, or remove
// staff members.
func (m MemberRole) CanManageStaff() bool {
	return m == MemberRoleStoreOwner || m == MemberRoleStoreAdmin
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
