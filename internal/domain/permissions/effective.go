package permissions

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a role referenced by a query that the
// organization's document does not configure.
type ConfigurationError struct {
	Role UserRole
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("role %q is not configured", e.Role)
}

// CyclicInheritanceError reports an inherits_from chain that revisits a role.
type CyclicInheritanceError struct {
	Chain []UserRole
}

func (e *CyclicInheritanceError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, role := range e.Chain {
		parts[i] = string(role)
	}
	return "cyclic role inheritance: " + strings.Join(parts, " -> ")
}

// CalculateEffectivePermissions resolves role overrides and inheritance into a
// document whose modules describe exactly what role may do. The role's own
// overrides win over inherited modules, which win over the organization base.
// org is never modified.
func CalculateEffectivePermissions(org OrganizationPermissions, role UserRole) (OrganizationPermissions, error) {
	return resolve(org, role, nil)
}

func resolve(org OrganizationPermissions, role UserRole, chain []UserRole) (OrganizationPermissions, error) {
	for _, seen := range chain {
		if seen == role {
			return OrganizationPermissions{}, &CyclicInheritanceError{Chain: append(append([]UserRole{}, chain...), role)}
		}
	}
	chain = append(chain, role)

	rolePermissions, ok := org.Roles[role]
	if !ok {
		return OrganizationPermissions{}, &ConfigurationError{Role: role}
	}

	effective := org.Clone()
	if effective.Modules == nil {
		effective.Modules = map[ModuleName]ModulePermission{}
	}
	for module, override := range rolePermissions.ModuleOverrides {
		effective.Modules[module] = override.ApplyTo(effective.Modules[module])
	}

	if rolePermissions.InheritsFrom == "" {
		return effective, nil
	}
	parent, err := resolve(org, rolePermissions.InheritsFrom, chain)
	if err != nil {
		return OrganizationPermissions{}, err
	}
	for module, inherited := range parent.Modules {
		if _, own := rolePermissions.ModuleOverrides[module]; own {
			continue
		}
		effective.Modules[module] = inherited
	}
	return effective, nil
}
