package permissions

// actionSet builds a complete action map in which only the listed actions are granted.
func actionSet(granted ...PermissionAction) map[PermissionAction]bool {
	out := make(map[PermissionAction]bool, len(AllActions))
	for _, action := range AllActions {
		out[action] = false
	}
	for _, action := range granted {
		out[action] = true
	}
	return out
}

func enabled(v bool) *bool { return &v }

func disabledOverride() ModuleOverride {
	return ModuleOverride{Enabled: enabled(false)}
}

// DefaultTemplate returns the out-of-box permission document used for new
// organizations and for resets. Every call builds a new value, so callers may
// mutate the result freely.
func DefaultTemplate() OrganizationPermissions {
	return OrganizationPermissions{
		Modules: map[ModuleName]ModulePermission{
			ModuleDashboard: {Enabled: true, Actions: actionSet(ActionRead, ActionExport)},
			ModuleUsers:     {Enabled: true, Actions: actionSet(ActionCreate, ActionRead, ActionUpdate, ActionExport)},
			ModuleInventory: {Enabled: true, Actions: actionSet(ActionCreate, ActionRead, ActionUpdate, ActionExport, ActionImport)},
			ModuleSales:     {Enabled: true, Actions: actionSet(ActionCreate, ActionRead, ActionUpdate, ActionExport)},
			ModuleReports:   {Enabled: true, Actions: actionSet(ActionRead, ActionExport)},
			ModuleSettings:  {Enabled: true, Actions: actionSet(ActionRead, ActionUpdate)},
			ModuleBilling:   {Enabled: true, Actions: actionSet(ActionRead, ActionExport)},
		},
		Roles: map[UserRole]RolePermissions{
			RoleAdmin: {
				InheritsFrom:       RoleManager,
				SpecialPermissions: []string{"manage_organization", "manage_permissions", "manage_billing", "view_audit_logs"},
				ModuleOverrides: map[ModuleName]ModuleOverride{
					ModuleUsers:    {Enabled: enabled(true), Actions: actionSet(AllActions...)},
					ModuleSettings: {Enabled: enabled(true), Actions: actionSet(AllActions...)},
					ModuleBilling: {
						Enabled: enabled(true),
						Actions: actionSet(ActionCreate, ActionRead, ActionUpdate, ActionExport, ActionImport),
					},
				},
				Restrictions: &RoleRestrictions{MaxRecordsPerQuery: 10000, RateLimitPerHour: 10000, SensitiveDataAccess: true},
			},
			RoleManager: {
				InheritsFrom:       RoleUser,
				SpecialPermissions: []string{"approve_refunds", "manage_staff", "view_reports"},
				ModuleOverrides: map[ModuleName]ModuleOverride{
					ModuleUsers:     {Enabled: enabled(true), Actions: actionSet(ActionCreate, ActionRead, ActionUpdate, ActionExport)},
					ModuleInventory: {Enabled: enabled(true), Actions: map[PermissionAction]bool{ActionDelete: true}},
					ModuleReports:   {Enabled: enabled(true), Actions: actionSet(ActionCreate, ActionRead, ActionExport)},
					ModuleSettings: {
						Enabled: enabled(true),
						Actions: actionSet(ActionRead),
					},
				},
				Restrictions: &RoleRestrictions{MaxRecordsPerQuery: 5000, RateLimitPerHour: 5000, SensitiveDataAccess: true},
			},
			RoleUser: {
				SpecialPermissions: []string{"process_sales"},
				ModuleOverrides: map[ModuleName]ModuleOverride{
					ModuleDashboard: {Enabled: enabled(true), Actions: actionSet(ActionRead)},
					ModuleInventory: {Enabled: enabled(true), Actions: actionSet(ActionRead)},
					ModuleSales:     {Enabled: enabled(true), Actions: actionSet(ActionCreate, ActionRead, ActionUpdate)},
					ModuleReports:   {Enabled: enabled(true), Actions: actionSet(ActionRead)},
					ModuleUsers:     disabledOverride(),
					ModuleSettings:  disabledOverride(),
					ModuleBilling:   disabledOverride(),
				},
				Restrictions: &RoleRestrictions{MaxRecordsPerQuery: 1000, RateLimitPerHour: 1000},
			},
			RoleCounter: {
				InheritsFrom:       RoleUser,
				SpecialPermissions: []string{"process_sales", "open_cash_drawer"},
				ModuleOverrides: map[ModuleName]ModuleOverride{
					ModuleSales: {
						Enabled:      enabled(true),
						Actions:      actionSet(ActionCreate, ActionRead),
						Restrictions: &ModuleRestrictions{OwnDataOnly: true, ApprovalRequired: []PermissionAction{ActionUpdate}},
					},
				},
				Restrictions: &RoleRestrictions{MaxRecordsPerQuery: 500, RateLimitPerHour: 500},
			},
			RoleCustomer: {
				InheritsFrom:       RoleRestricted,
				SpecialPermissions: []string{},
				ModuleOverrides: map[ModuleName]ModuleOverride{
					ModuleSales: {
						Enabled:      enabled(true),
						Actions:      actionSet(ActionRead),
						Restrictions: &ModuleRestrictions{OwnDataOnly: true, ApprovalRequired: []PermissionAction{}},
					},
				},
				Restrictions: &RoleRestrictions{MaxRecordsPerQuery: 100, RateLimitPerHour: 100},
			},
			RoleRestricted: {
				SpecialPermissions: []string{},
				ModuleOverrides: map[ModuleName]ModuleOverride{
					ModuleDashboard: {Enabled: enabled(true), Actions: actionSet(ActionRead)},
					ModuleUsers:     disabledOverride(),
					ModuleInventory: disabledOverride(),
					ModuleSales:     disabledOverride(),
					ModuleReports:   disabledOverride(),
					ModuleSettings:  disabledOverride(),
					ModuleBilling:   disabledOverride(),
				},
				Restrictions: &RoleRestrictions{MaxRecordsPerQuery: 50, RateLimitPerHour: 50},
			},
		},
		Features: map[FeatureFlag]bool{
			FeatureAdvancedAnalytics: false,
			FeatureMultiLocation:     false,
			FeatureAPIAccess:         false,
			FeatureCustomReports:     true,
			FeatureBulkOperations:    false,
		},
		Policies: Policies{
			SessionTimeout:        480,
			MaxConcurrentSessions: 3,
			IPRestrictions:        []string{},
			TimeRestrictions:      []TimeRestriction{},
			DataRetentionDays:     365,
		},
	}
}
