package domain

import "time"

// RoleTag enumerates account roles. The set is closed; there are no
// custom roles.
type RoleTag string

const (
	RoleUser    RoleTag = "user"
	RoleManager RoleTag = "manager"
	RoleDemo    RoleTag = "demo"
)

// ValidRole reports whether tag is one of the enumerated roles.
func ValidRole(tag RoleTag) bool {
	switch tag {
	case RoleUser, RoleManager, RoleDemo:
		return true
	}
	return false
}

// RoleAssignment links a user to exactly one role. Assignments are
// overwritten on change, never deleted.
type RoleAssignment struct {
	UserID    string
	Role      RoleTag
	CreatedAt time.Time
	UpdatedAt time.Time
}
