package permissions

// PolicyUpdate carries the policy fields a caller wants to replace. Nil fields
// keep the base value.
type PolicyUpdate struct {
	SessionTimeout        *uint             `json:"session_timeout,omitempty" yaml:"session_timeout,omitempty"`
	MaxConcurrentSessions *uint             `json:"max_concurrent_sessions,omitempty" yaml:"max_concurrent_sessions,omitempty"`
	IPRestrictions        []string          `json:"ip_restrictions,omitempty" yaml:"ip_restrictions,omitempty"`
	TimeRestrictions      []TimeRestriction `json:"time_restrictions,omitempty" yaml:"time_restrictions,omitempty"`
	DataRetentionDays     *uint             `json:"data_retention_days,omitempty" yaml:"data_retention_days,omitempty"`
}

func (p *PolicyUpdate) IsEmpty() bool {
	return p == nil || (p.SessionTimeout == nil && p.MaxConcurrentSessions == nil && p.IPRestrictions == nil &&
		p.TimeRestrictions == nil && p.DataRetentionDays == nil)
}

// PermissionsUpdate is a partial OrganizationPermissions. Entries present in a
// section replace the base entry with the same key as a whole.
type PermissionsUpdate struct {
	Modules  map[ModuleName]ModulePermission `json:"modules,omitempty" yaml:"modules,omitempty"`
	Roles    map[UserRole]RolePermissions    `json:"roles,omitempty" yaml:"roles,omitempty"`
	Features map[FeatureFlag]bool            `json:"features,omitempty" yaml:"features,omitempty"`
	Policies *PolicyUpdate                   `json:"policies,omitempty" yaml:"policies,omitempty"`
}

func (u PermissionsUpdate) IsEmpty() bool {
	return len(u.Modules) == 0 && len(u.Roles) == 0 && len(u.Features) == 0 && u.Policies.IsEmpty()
}

// AsUpdate expresses a whole document as an update, which lets full
// documents go through ValidatePermissions.
func (o OrganizationPermissions) AsUpdate() PermissionsUpdate {
	c := o.Clone()
	p := c.Policies
	return PermissionsUpdate{
		Modules:  c.Modules,
		Roles:    c.Roles,
		Features: c.Features,
		Policies: &PolicyUpdate{
			SessionTimeout:        &p.SessionTimeout,
			MaxConcurrentSessions: &p.MaxConcurrentSessions,
			IPRestrictions:        p.IPRestrictions,
			TimeRestrictions:      p.TimeRestrictions,
			DataRetentionDays:     &p.DataRetentionDays,
		},
	}
}

// MergePermissions reconciles updates onto base one level deep. A module,
// role or feature present in updates replaces the base entry wholesale, so a
// module update that carries only some actions drops the others. base is not
// modified.
func MergePermissions(base OrganizationPermissions, updates PermissionsUpdate) OrganizationPermissions {
	out := base.Clone()
	if len(updates.Modules) > 0 && out.Modules == nil {
		out.Modules = make(map[ModuleName]ModulePermission, len(updates.Modules))
	}
	for name, module := range updates.Modules {
		out.Modules[name] = module.Clone()
	}
	if len(updates.Roles) > 0 && out.Roles == nil {
		out.Roles = make(map[UserRole]RolePermissions, len(updates.Roles))
	}
	for role, rp := range updates.Roles {
		out.Roles[role] = rp.Clone()
	}
	if len(updates.Features) > 0 && out.Features == nil {
		out.Features = make(map[FeatureFlag]bool, len(updates.Features))
	}
	for flag, on := range updates.Features {
		out.Features[flag] = on
	}
	if p := updates.Policies; p != nil {
		if p.SessionTimeout != nil {
			out.Policies.SessionTimeout = *p.SessionTimeout
		}
		if p.MaxConcurrentSessions != nil {
			out.Policies.MaxConcurrentSessions = *p.MaxConcurrentSessions
		}
		if p.IPRestrictions != nil {
			out.Policies.IPRestrictions = append([]string{}, p.IPRestrictions...)
		}
		if p.TimeRestrictions != nil {
			out.Policies.TimeRestrictions = Policies{TimeRestrictions: p.TimeRestrictions}.Clone().TimeRestrictions
		}
		if p.DataRetentionDays != nil {
			out.Policies.DataRetentionDays = *p.DataRetentionDays
		}
	}
	return out
}
