package authz

// CheckRoles verifies the identity carries a role that is a member of the
// allowed set. Returns ErrUnauthorized when the identity is incomplete and
// ErrForbidden when the role lacks permission.
func CheckRoles(id Identity, allowed []int) error {
	if !id.Complete() {
		return ErrUnauthorized
	}
	if !HasPermission(id.RoleID, allowed) {
		return ErrForbidden
	}
	return nil
}

// Require verifies the identity may perform the given operation category.
func Require(id Identity, cat Category) error {
	return CheckRoles(id, permissionTable[cat])
}

// RequireAdmin allows only the administrator role.
func RequireAdmin(id Identity) error {
	if !id.Complete() {
		return ErrUnauthorized
	}
	if !IsAdmin(id.RoleID) {
		return ErrForbidden
	}
	return nil
}

// RequireAdminPrivileges allows administrators and directors.
func RequireAdminPrivileges(id Identity) error {
	if !id.Complete() {
		return ErrUnauthorized
	}
	if !HasAdminPrivileges(id.RoleID) {
		return ErrForbidden
	}
	return nil
}

// RequireResourceOwner allows the subject that owns the resource. Roles with
// admin privileges pass regardless of ownership.
func RequireResourceOwner(id Identity, ownerID int) error {
	if !id.Complete() {
		return ErrUnauthorized
	}
	if HasAdminPrivileges(id.RoleID) {
		return nil
	}
	if id.UserID != ownerID {
		return ErrForbidden
	}
	return nil
}
