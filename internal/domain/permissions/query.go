package permissions

// CheckPermission is HasPermission with the resolution error exposed, for
// callers that want to log misconfigured documents before denying.
func CheckPermission(org OrganizationPermissions, role UserRole, module ModuleName, action PermissionAction) (bool, error) {
	effective, err := CalculateEffectivePermissions(org, role)
	if err != nil {
		return false, err
	}
	mp, ok := effective.Modules[module]
	if !ok {
		return false, nil
	}
	return mp.Allows(action), nil
}

// HasPermission reports whether role may perform action on module. It fails
// closed: unconfigured roles, cyclic inheritance and unknown modules all deny.
func HasPermission(org OrganizationPermissions, role UserRole, module ModuleName, action PermissionAction) bool {
	allowed, err := CheckPermission(org, role, module, action)
	return err == nil && allowed
}

// HasSpecialPermission looks only at the role's own special_permissions.
// Special permissions are not inherited.
func HasSpecialPermission(org OrganizationPermissions, role UserRole, permission string) bool {
	rp, ok := org.Roles[role]
	if !ok {
		return false
	}
	return rp.HasSpecial(permission)
}

func IsFeatureEnabled(org OrganizationPermissions, feature FeatureFlag) bool {
	return org.Features[feature]
}

// CanAssignRole reports whether a user holding assigner may give target to
// another user. Admins may assign anything, managers anything up to their own
// rank, everyone else nothing. The organization document is not consulted.
func CanAssignRole(_ OrganizationPermissions, assigner, target UserRole) bool {
	switch assigner {
	case RoleAdmin:
		return true
	case RoleManager:
		level, ok := roleLevels[target]
		return ok && level <= roleLevels[RoleManager]
	default:
		return false
	}
}

var maxAssignableRoles = map[UserRole]UserRole{
	RoleAdmin:    RoleAdmin,
	RoleManager:  RoleManager,
	RoleCounter:  RoleUser,
	RoleUser:     RoleCustomer,
	RoleCustomer: RoleRestricted,
}

// GetMaxAssignableRole is a fixed lookup, not derived from rank, and does not
// agree with CanAssignRole for counter, user and customer.
func GetMaxAssignableRole(role UserRole) UserRole {
	if assignable, ok := maxAssignableRoles[role]; ok {
		return assignable
	}
	return RoleRestricted
}

type UserPermissions struct {
	Modules            map[ModuleName]ModulePermission `json:"modules" yaml:"modules"`
	SpecialPermissions []string                        `json:"special_permissions" yaml:"special_permissions"`
	Restrictions       *RoleRestrictions               `json:"restrictions" yaml:"restrictions"`
}

// GetUserPermissions summarises what role can do. It returns nil when the role
// cannot be resolved.
func GetUserPermissions(org OrganizationPermissions, role UserRole) *UserPermissions {
	effective, err := CalculateEffectivePermissions(org, role)
	if err != nil {
		return nil
	}
	own := org.Roles[role].Clone()
	return &UserPermissions{
		Modules:            effective.Modules,
		SpecialPermissions: own.SpecialPermissions,
		Restrictions:       own.Restrictions,
	}
}
