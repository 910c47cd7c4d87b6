package ports

import (
	"context"
	"posadmin/internal/domain"
	"posadmin/internal/domain/permissions"
)

type PermissionRepository interface {
	Get(ctx context.Context, orgID string) (domain.PermissionRecord, error)
	// Save stores record when the stored version equals expectedVersion
	// (0 meaning no stored document) and returns domain.ErrVersionConflict otherwise.
	Save(ctx context.Context, record domain.PermissionRecord, expectedVersion int64) error
}

type UserRepository interface {
	GetByID(ctx context.Context, userID string) (domain.User, error)
	UpdateRole(ctx context.Context, userID string, role permissions.UserRole) error
}

type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	ListByOrganization(ctx context.Context, orgID string, limit int) ([]domain.AuditEntry, error)
}

type PermissionCache interface {
	Get(ctx context.Context, orgID string) (domain.PermissionRecord, bool)
	// Set must keep an already cached record whose Version is newer.
	Set(ctx context.Context, record domain.PermissionRecord)
	Invalidate(ctx context.Context, orgID string)
}
