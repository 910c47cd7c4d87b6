package permissions

import (
	"fmt"
	"sort"
)

type ValidationResult struct {
	IsValid bool     `json:"is_valid" yaml:"is_valid"`
	Errors  []string `json:"errors" yaml:"errors"`
}

// ValidatePermissions checks the shape of a (possibly partial) document. It
// does not check enum membership, numeric ranges or cross-field consistency.
func ValidatePermissions(p PermissionsUpdate) ValidationResult {
	errs := []string{}

	modules := make([]string, 0, len(p.Modules))
	for name := range p.Modules {
		modules = append(modules, string(name))
	}
	sort.Strings(modules)
	for _, name := range modules {
		if p.Modules[ModuleName(name)].Actions == nil {
			errs = append(errs, fmt.Sprintf("modules.%s.actions is required", name))
		}
	}

	roles := make([]string, 0, len(p.Roles))
	for role := range p.Roles {
		roles = append(roles, string(role))
	}
	sort.Strings(roles)
	for _, role := range roles {
		rp := p.Roles[UserRole(role)]
		if rp.Restrictions == nil {
			errs = append(errs, fmt.Sprintf("roles.%s.restrictions is required", role))
		}
		if rp.SpecialPermissions == nil {
			errs = append(errs, fmt.Sprintf("roles.%s.special_permissions must be an array", role))
		}
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
