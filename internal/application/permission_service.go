package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"posadmin/internal/domain"
	"posadmin/internal/domain/permissions"
	"posadmin/internal/ports"
)

type TemplateFunc func() permissions.OrganizationPermissions

type PermissionService struct {
	repo     ports.PermissionRepository
	cache    ports.PermissionCache
	audit    ports.AuditRepository
	logger   ports.Logger
	template TemplateFunc
	now      func() time.Time
}

type PermissionServiceOption func(*PermissionService)

func WithCache(cache ports.PermissionCache) PermissionServiceOption {
	return func(s *PermissionService) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithTemplate replaces the built-in default template. fn must return a new
// value on every call.
func WithTemplate(fn TemplateFunc) PermissionServiceOption {
	return func(s *PermissionService) {
		if fn != nil {
			s.template = fn
		}
	}
}

func WithClock(now func() time.Time) PermissionServiceOption {
	return func(s *PermissionService) { s.now = now }
}

func NewPermissionService(repo ports.PermissionRepository, audit ports.AuditRepository, logger ports.Logger, opts ...PermissionServiceOption) *PermissionService {
	s := &PermissionService{
		repo:     repo,
		cache:    noopCache{},
		audit:    audit,
		logger:   logger,
		template: permissions.DefaultTemplate,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the organization's stored document, or the default template
// with version 0 when nothing has been stored yet.
func (s *PermissionService) Get(ctx context.Context, orgID string) (domain.PermissionRecord, error) {
	if orgID == "" {
		return domain.PermissionRecord{}, domain.ErrInvalidInput
	}
	if record, ok := s.cache.Get(ctx, orgID); ok {
		return record, nil
	}
	record, err := s.current(ctx, orgID)
	if err != nil {
		return domain.PermissionRecord{}, err
	}
	if record.Version > 0 {
		s.cache.Set(ctx, record)
	}
	return record, nil
}

func (s *PermissionService) current(ctx context.Context, orgID string) (domain.PermissionRecord, error) {
	record, err := s.repo.Get(ctx, orgID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.PermissionRecord{OrganizationID: orgID, Permissions: s.template()}, nil
	}
	if err != nil {
		return domain.PermissionRecord{}, err
	}
	return record, nil
}

// Update merges update into the stored document, validates the result and
// persists it. When expectedVersion is set it must match the stored version.
func (s *PermissionService) Update(ctx context.Context, orgID, actorID string, update permissions.PermissionsUpdate, expectedVersion *int64) (domain.PermissionRecord, error) {
	if orgID == "" {
		return domain.PermissionRecord{}, domain.ErrInvalidInput
	}
	current, err := s.current(ctx, orgID)
	if err != nil {
		return domain.PermissionRecord{}, err
	}
	if expectedVersion != nil && *expectedVersion != current.Version {
		return domain.PermissionRecord{}, fmt.Errorf("organization %s is at version %d: %w", orgID, current.Version, domain.ErrVersionConflict)
	}

	merged := permissions.MergePermissions(current.Permissions, update)
	if result := permissions.ValidatePermissions(merged.AsUpdate()); !result.IsValid {
		s.logger.Warn(ctx, "rejected permission update", "organization_id", orgID, "errors", result.Errors)
		return domain.PermissionRecord{}, &domain.ValidationFailedError{Errors: result.Errors}
	}
	s.warnUnresolvableRoles(ctx, orgID, merged)

	record, err := s.save(ctx, current, merged, actorID)
	if err != nil {
		return domain.PermissionRecord{}, err
	}
	s.recordAudit(ctx, domain.AuditEntry{
		OrganizationID: orgID,
		ActorID:        actorID,
		Action:         domain.AuditPermissionsUpdated,
		Target:         orgID,
		Details:        describeUpdate(update, record.Version),
	})
	return record, nil
}

// Reset replaces the organization's document with the default template.
func (s *PermissionService) Reset(ctx context.Context, orgID, actorID string) (domain.PermissionRecord, error) {
	if orgID == "" {
		return domain.PermissionRecord{}, domain.ErrInvalidInput
	}
	current, err := s.current(ctx, orgID)
	if err != nil {
		return domain.PermissionRecord{}, err
	}
	record, err := s.save(ctx, current, s.template(), actorID)
	if err != nil {
		return domain.PermissionRecord{}, err
	}
	s.recordAudit(ctx, domain.AuditEntry{
		OrganizationID: orgID,
		ActorID:        actorID,
		Action:         domain.AuditPermissionsReset,
		Target:         orgID,
		Details:        map[string]string{"version": fmt.Sprint(record.Version)},
	})
	return record, nil
}

// Effective summarises what role may do inside the organization.
func (s *PermissionService) Effective(ctx context.Context, orgID string, role permissions.UserRole) (*permissions.UserPermissions, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidInput
	}
	record, err := s.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	summary := permissions.GetUserPermissions(record.Permissions, role)
	if summary == nil {
		_, cause := permissions.CalculateEffectivePermissions(record.Permissions, role)
		s.logger.Error(ctx, "role cannot be resolved", "organization_id", orgID, "role", role, "error", cause)
		return nil, fmt.Errorf("role %s in organization %s: %w", role, orgID, domain.ErrNotFound)
	}
	return summary, nil
}

func (s *PermissionService) IsFeatureEnabled(ctx context.Context, orgID string, feature permissions.FeatureFlag) (bool, error) {
	record, err := s.Get(ctx, orgID)
	if err != nil {
		return false, err
	}
	return permissions.IsFeatureEnabled(record.Permissions, feature), nil
}

func (s *PermissionService) save(ctx context.Context, current domain.PermissionRecord, doc permissions.OrganizationPermissions, actorID string) (domain.PermissionRecord, error) {
	record := domain.PermissionRecord{
		OrganizationID: current.OrganizationID,
		Permissions:    doc,
		Version:        current.Version + 1,
		UpdatedAt:      s.now(),
		UpdatedBy:      actorID,
	}
	if err := s.repo.Save(ctx, record, current.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			s.cache.Invalidate(ctx, current.OrganizationID)
		}
		return domain.PermissionRecord{}, err
	}
	// A concurrent Get may still cache the previous version after this point.
	s.cache.Set(ctx, record)
	s.logger.Info(ctx, "permissions saved", "organization_id", record.OrganizationID, "version", record.Version, "actor_id", actorID)
	return record, nil
}

func (s *PermissionService) warnUnresolvableRoles(ctx context.Context, orgID string, doc permissions.OrganizationPermissions) {
	for role := range doc.Roles {
		if _, err := permissions.CalculateEffectivePermissions(doc, role); err != nil {
			s.logger.Warn(ctx, "stored role does not resolve", "organization_id", orgID, "role", role, "error", err)
		}
	}
}

func (s *PermissionService) recordAudit(ctx context.Context, entry domain.AuditEntry) {
	if s.audit == nil {
		return
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = s.now()
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error(ctx, "failed to append audit entry", "organization_id", entry.OrganizationID, "action", entry.Action, "error", err)
	}
}

func describeUpdate(update permissions.PermissionsUpdate, version int64) map[string]string {
	details := map[string]string{"version": fmt.Sprint(version)}
	if keys := sortedKeys(update.Modules); keys != "" {
		details["modules"] = keys
	}
	if keys := sortedKeys(update.Roles); keys != "" {
		details["roles"] = keys
	}
	if keys := sortedKeys(update.Features); keys != "" {
		details["features"] = keys
	}
	if !update.Policies.IsEmpty() {
		details["policies"] = "true"
	}
	return details
}

func sortedKeys[K ~string, V any](m map[K]V) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (domain.PermissionRecord, bool) {
	return domain.PermissionRecord{}, false
}
func (noopCache) Set(context.Context, domain.PermissionRecord) {}
func (noopCache) Invalidate(context.Context, string)           {}
