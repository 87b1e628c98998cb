package domain

// Permission enumerates atomic capabilities checked against a role.
type Permission string

const (
	PermissionViewOwnCoupons Permission = "coupons.view_own"
	PermissionViewAllCoupons Permission = "coupons.view_all"
	PermissionCreateCoupon   Permission = "coupons.create"
	PermissionEditCoupon     Permission = "coupons.edit"
	PermissionDeleteCoupon   Permission = "coupons.delete"
	PermissionViewUsers      Permission = "users.view"
	PermissionEditUserRole   Permission = "users.edit_role"
	PermissionManageSystem   Permission = "system.manage"
)

// Grant qualifies how a permission is granted to a role.
type Grant string

const (
	GrantAllowed   Grant = "allowed"
	GrantOwnerOnly Grant = "owner_only"
)

// RolePermissions is the static role capability table, loaded once and
// never mutated. A missing entry means denied.
var RolePermissions = map[RoleTag]map[Permission]Grant{
	RoleUser: {
		PermissionViewOwnCoupons: GrantAllowed,
		PermissionCreateCoupon:   GrantAllowed,
		PermissionEditCoupon:     GrantOwnerOnly,
		PermissionDeleteCoupon:   GrantOwnerOnly,
	},
	RoleDemo: {
		PermissionViewOwnCoupons: GrantAllowed,
	},
	RoleManager: {
		PermissionViewOwnCoupons: GrantAllowed,
		PermissionViewAllCoupons: GrantAllowed,
		PermissionCreateCoupon:   GrantAllowed,
		PermissionEditCoupon:     GrantAllowed,
		PermissionDeleteCoupon:   GrantAllowed,
		PermissionViewUsers:      GrantAllowed,
		PermissionEditUserRole:   GrantAllowed,
		PermissionManageSystem:   GrantAllowed,
	},
}

// GrantFor looks up the grant kind for a (role, permission) pair.
func GrantFor(role RoleTag, permission Permission) (Grant, bool) {
	perms, ok := RolePermissions[role]
	if !ok {
		return "", false
	}
	grant, ok := perms[permission]
	return grant, ok
}

// AllPermissions lists every enumerated permission.
func AllPermissions() []Permission {
	return []Permission{
		PermissionViewOwnCoupons,
		PermissionViewAllCoupons,
		PermissionCreateCoupon,
		PermissionEditCoupon,
		PermissionDeleteCoupon,
		PermissionViewUsers,
		PermissionEditUserRole,
		PermissionManageSystem,
	}
}
