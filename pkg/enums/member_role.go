package enums

import "fmt"

// MemberRole represents a tenant-level permissions role.
type MemberRole string

const (
	MemberRoleOwner      MemberRole = "owner"
	MemberRoleAdmin      MemberRole = "admin"
	MemberRoleAccountant MemberRole = "accountant"
	MemberRoleStaff      MemberRole = "staff"
	MemberRoleViewer     MemberRole = "viewer"
)

var validMemberRoles = []MemberRole{
	MemberRoleOwner,
	MemberRoleAdmin,
	MemberRoleAccountant,
	MemberRoleStaff,
	MemberRoleViewer,
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

// CanManagePayments reports whether the role may refund, cancel or delete payments.
func (m MemberRole) CanManagePayments() bool {
	switch m {
	case MemberRoleOwner, MemberRoleAdmin, MemberRoleAccountant:
		return true
	default:
		return false
	}
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
