package domain

import (
	"posadmin/internal/domain/permissions"
	"time"
)

type User struct {
	ID             string               `json:"id"`
	OrganizationID string               `json:"organization_id"`
	Email          string               `json:"email"`
	Name           string               `json:"name"`
	Role           permissions.UserRole `json:"role"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// PermissionRecord is the persisted permission document of one organization.
// Version starts at 1 and grows by one on every save.
type PermissionRecord struct {
	OrganizationID string                              `json:"organization_id"`
	Permissions    permissions.OrganizationPermissions `json:"permissions"`
	Version        int64                               `json:"version"`
	UpdatedAt      time.Time                           `json:"updated_at"`
	UpdatedBy      string                              `json:"updated_by,omitempty"`
}

type AuditAction string

const (
	AuditPermissionsUpdated AuditAction = "permissions.updated"
	AuditPermissionsReset   AuditAction = "permissions.reset"
	AuditRoleChanged        AuditAction = "user.role_changed"
)

type AuditEntry struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organization_id"`
	ActorID        string            `json:"actor_id"`
	Action         AuditAction       `json:"action"`
	Target         string            `json:"target"`
	Details        map[string]string `json:"details,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}
