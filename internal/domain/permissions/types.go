package permissions

type ModuleName string

const (
	ModuleDashboard ModuleName = "dashboard"
	ModuleUsers     ModuleName = "users"
	ModuleInventory ModuleName = "inventory"
	ModuleSales     ModuleName = "sales"
	ModuleReports   ModuleName = "reports"
	ModuleSettings  ModuleName = "settings"
	ModuleBilling   ModuleName = "billing"
)

var KnownModules = []ModuleName{
	ModuleDashboard, ModuleUsers, ModuleInventory, ModuleSales, ModuleReports, ModuleSettings, ModuleBilling,
}

// IsKnown reports whether m is one of the built-in modules. Documents may carry
// additional modules; the engine treats module names as an open set.
func (m ModuleName) IsKnown() bool {
	for _, known := range KnownModules {
		if m == known {
			return true
		}
	}
	return false
}

type PermissionAction string

const (
	ActionCreate PermissionAction = "create"
	ActionRead   PermissionAction = "read"
	ActionUpdate PermissionAction = "update"
	ActionDelete PermissionAction = "delete"
	ActionExport PermissionAction = "export"
	ActionImport PermissionAction = "import"
)

var AllActions = []PermissionAction{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionExport, ActionImport}

func (a PermissionAction) Valid() bool {
	for _, known := range AllActions {
		if a == known {
			return true
		}
	}
	return false
}

type UserRole string

const (
	RoleRestricted UserRole = "restricted"
	RoleCustomer   UserRole = "customer"
	RoleUser       UserRole = "user"
	RoleCounter    UserRole = "counter"
	RoleManager    UserRole = "manager"
	RoleAdmin      UserRole = "admin"
)

var AllRoles = []UserRole{RoleRestricted, RoleCustomer, RoleUser, RoleCounter, RoleManager, RoleAdmin}

// roleLevels is deliberately flat: customer shares rank with restricted and
// counter shares rank with user.
var roleLevels = map[UserRole]int{
	RoleRestricted: 1,
	RoleCustomer:   1,
	RoleUser:       2,
	RoleCounter:    2,
	RoleManager:    3,
	RoleAdmin:      4,
}

func (r UserRole) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Level returns the rank used for role assignment, or 0 for an unknown role.
func (r UserRole) Level() int {
	return roleLevels[r]
}

func ParseRole(s string) (UserRole, bool) {
	r := UserRole(s)
	return r, r.Valid()
}

type FeatureFlag string

const (
	FeatureAdvancedAnalytics FeatureFlag = "advanced_analytics"
	FeatureMultiLocation     FeatureFlag = "multi_location"
	FeatureAPIAccess         FeatureFlag = "api_access"
	FeatureCustomReports     FeatureFlag = "custom_reports"
	FeatureBulkOperations    FeatureFlag = "bulk_operations"
)

var AllFeatures = []FeatureFlag{
	FeatureAdvancedAnalytics, FeatureMultiLocation, FeatureAPIAccess, FeatureCustomReports, FeatureBulkOperations,
}

type ModuleRestrictions struct {
	OwnDataOnly        bool               `json:"own_data_only" yaml:"own_data_only"`
	DepartmentDataOnly bool               `json:"department_data_only" yaml:"department_data_only"`
	ApprovalRequired   []PermissionAction `json:"approval_required" yaml:"approval_required"`
}

func (r *ModuleRestrictions) Clone() *ModuleRestrictions {
	if r == nil {
		return nil
	}
	out := *r
	if r.ApprovalRequired != nil {
		out.ApprovalRequired = append([]PermissionAction{}, r.ApprovalRequired...)
	}
	return &out
}

// ModulePermission is the base grant for one module. When Enabled is false
// every action is denied whatever Actions holds.
type ModulePermission struct {
	Enabled      bool                      `json:"enabled" yaml:"enabled"`
	Actions      map[PermissionAction]bool `json:"actions" yaml:"actions"`
	Restrictions *ModuleRestrictions       `json:"restrictions,omitempty" yaml:"restrictions,omitempty"`
}

func (m ModulePermission) Clone() ModulePermission {
	return ModulePermission{
		Enabled:      m.Enabled,
		Actions:      cloneActions(m.Actions),
		Restrictions: m.Restrictions.Clone(),
	}
}

func (m ModulePermission) Allows(action PermissionAction) bool {
	if !m.Enabled {
		return false
	}
	return m.Actions[action]
}

// ModuleOverride is a partial ModulePermission applied on top of the
// organization's base module by a role.
type ModuleOverride struct {
	Enabled      *bool                     `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Actions      map[PermissionAction]bool `json:"actions,omitempty" yaml:"actions,omitempty"`
	Restrictions *ModuleRestrictions       `json:"restrictions,omitempty" yaml:"restrictions,omitempty"`
}

func (o ModuleOverride) Clone() ModuleOverride {
	out := ModuleOverride{
		Actions:      cloneActions(o.Actions),
		Restrictions: o.Restrictions.Clone(),
	}
	if o.Enabled != nil {
		enabled := *o.Enabled
		out.Enabled = &enabled
	}
	return out
}

// ApplyTo returns base with the override laid over it: enabled replaced when
// set, actions merged key by key, restrictions replaced wholesale when set.
func (o ModuleOverride) ApplyTo(base ModulePermission) ModulePermission {
	out := base.Clone()
	if o.Enabled != nil {
		out.Enabled = *o.Enabled
	}
	if len(o.Actions) > 0 {
		if out.Actions == nil {
			out.Actions = make(map[PermissionAction]bool, len(o.Actions))
		}
		for action, allowed := range o.Actions {
			out.Actions[action] = allowed
		}
	}
	if o.Restrictions != nil {
		out.Restrictions = o.Restrictions.Clone()
	}
	return out
}

type RoleRestrictions struct {
	MaxRecordsPerQuery  uint `json:"max_records_per_query" yaml:"max_records_per_query"`
	RateLimitPerHour    uint `json:"rate_limit_per_hour" yaml:"rate_limit_per_hour"`
	SensitiveDataAccess bool `json:"sensitive_data_access" yaml:"sensitive_data_access"`
}

type RolePermissions struct {
	InheritsFrom       UserRole                      `json:"inherits_from,omitempty" yaml:"inherits_from,omitempty"`
	SpecialPermissions []string                      `json:"special_permissions" yaml:"special_permissions"`
	ModuleOverrides    map[ModuleName]ModuleOverride `json:"module_overrides" yaml:"module_overrides"`
	Restrictions       *RoleRestrictions             `json:"restrictions" yaml:"restrictions"`
}

func (r RolePermissions) Clone() RolePermissions {
	out := RolePermissions{InheritsFrom: r.InheritsFrom}
	if r.SpecialPermissions != nil {
		out.SpecialPermissions = append([]string{}, r.SpecialPermissions...)
	}
	if r.ModuleOverrides != nil {
		out.ModuleOverrides = make(map[ModuleName]ModuleOverride, len(r.ModuleOverrides))
		for module, override := range r.ModuleOverrides {
			out.ModuleOverrides[module] = override.Clone()
		}
	}
	if r.Restrictions != nil {
		restrictions := *r.Restrictions
		out.Restrictions = &restrictions
	}
	return out
}

func (r RolePermissions) HasSpecial(permission string) bool {
	for _, p := range r.SpecialPermissions {
		if p == permission {
			return true
		}
	}
	return false
}

type TimeRestriction struct {
	StartTime  string `json:"start_time" yaml:"start_time"`
	EndTime    string `json:"end_time" yaml:"end_time"`
	DaysOfWeek []int  `json:"days_of_week" yaml:"days_of_week"`
	Timezone   string `json:"timezone" yaml:"timezone"`
}

type Policies struct {
	SessionTimeout        uint              `json:"session_timeout" yaml:"session_timeout"`
	MaxConcurrentSessions uint              `json:"max_concurrent_sessions" yaml:"max_concurrent_sessions"`
	IPRestrictions        []string          `json:"ip_restrictions" yaml:"ip_restrictions"`
	TimeRestrictions      []TimeRestriction `json:"time_restrictions" yaml:"time_restrictions"`
	DataRetentionDays     uint              `json:"data_retention_days" yaml:"data_retention_days"`
}

func (p Policies) Clone() Policies {
	out := p
	if p.IPRestrictions != nil {
		out.IPRestrictions = append([]string{}, p.IPRestrictions...)
	}
	if p.TimeRestrictions != nil {
		out.TimeRestrictions = make([]TimeRestriction, len(p.TimeRestrictions))
		for i, tr := range p.TimeRestrictions {
			out.TimeRestrictions[i] = tr
			if tr.DaysOfWeek != nil {
				out.TimeRestrictions[i].DaysOfWeek = append([]int{}, tr.DaysOfWeek...)
			}
		}
	}
	return out
}

// OrganizationPermissions is the permission document owned by one organization.
type OrganizationPermissions struct {
	Modules  map[ModuleName]ModulePermission `json:"modules" yaml:"modules"`
	Roles    map[UserRole]RolePermissions    `json:"roles" yaml:"roles"`
	Features map[FeatureFlag]bool            `json:"features" yaml:"features"`
	Policies Policies                        `json:"policies" yaml:"policies"`
}

// Clone returns a deep copy that shares no maps or slices with o.
func (o OrganizationPermissions) Clone() OrganizationPermissions {
	out := OrganizationPermissions{Policies: o.Policies.Clone()}
	if o.Modules != nil {
		out.Modules = make(map[ModuleName]ModulePermission, len(o.Modules))
		for name, module := range o.Modules {
			out.Modules[name] = module.Clone()
		}
	}
	if o.Roles != nil {
		out.Roles = make(map[UserRole]RolePermissions, len(o.Roles))
		for role, rp := range o.Roles {
			out.Roles[role] = rp.Clone()
		}
	}
	if o.Features != nil {
		out.Features = make(map[FeatureFlag]bool, len(o.Features))
		for flag, enabled := range o.Features {
			out.Features[flag] = enabled
		}
	}
	return out
}

func cloneActions(in map[PermissionAction]bool) map[PermissionAction]bool {
	if in == nil {
		return nil
	}
	out := make(map[PermissionAction]bool, len(in))
	for action, allowed := range in {
		out[action] = allowed
	}
	return out
}
