package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"posadmin/internal/domain"
	"posadmin/internal/domain/permissions"
	"posadmin/internal/ports"
)

type AuthorizationService struct {
	users    ports.UserRepository
	perms    *PermissionService
	recorder ports.DecisionRecorder
	logger   ports.Logger
}

func NewAuthorizationService(users ports.UserRepository, perms *PermissionService, recorder ports.DecisionRecorder, logger ports.Logger) *AuthorizationService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &AuthorizationService{users: users, perms: perms, recorder: recorder, logger: logger}
}

// IsAllowed answers whether userID may perform action on module inside orgID.
// Unknown users, users of other organizations and documents that do not
// resolve for the user's role all deny.
func (s *AuthorizationService) IsAllowed(ctx context.Context, orgID, userID string, module permissions.ModuleName, action permissions.PermissionAction) (bool, error) {
	if orgID == "" || userID == "" || module == "" || !action.Valid() {
		return false, domain.ErrInvalidInput
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if user.OrganizationID != orgID {
		s.logger.Warn(ctx, "cross organization authorization attempt", "user_id", userID, "organization_id", orgID)
		return false, nil
	}
	record, err := s.perms.Get(ctx, orgID)
	if err != nil {
		return false, err
	}
	allowed, err := permissions.CheckPermission(record.Permissions, user.Role, module, action)
	if err != nil {
		s.logger.Error(ctx, "permission document misconfigured", "organization_id", orgID, "role", user.Role, "error", err)
		s.recorder.RecordConfigurationError(configurationErrorKind(err))
		return false, nil
	}
	s.recorder.RecordDecision(string(user.Role), string(module), string(action), allowed)
	return allowed, nil
}

// IsMember reports whether userID belongs to orgID. Unknown users are not members.
func (s *AuthorizationService) IsMember(ctx context.Context, orgID, userID string) (bool, error) {
	if orgID == "" || userID == "" {
		return false, domain.ErrInvalidInput
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if user.OrganizationID != orgID {
		s.logger.Warn(ctx, "cross organization access attempt", "user_id", userID, "organization_id", orgID)
		return false, nil
	}
	return true, nil
}

// HasSpecialPermission checks the user's own role entry; special permissions
// are not inherited.
func (s *AuthorizationService) HasSpecialPermission(ctx context.Context, orgID, userID, permission string) (bool, error) {
	if orgID == "" || userID == "" || permission == "" {
		return false, domain.ErrInvalidInput
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if user.OrganizationID != orgID {
		return false, nil
	}
	record, err := s.perms.Get(ctx, orgID)
	if err != nil {
		return false, err
	}
	return permissions.HasSpecialPermission(record.Permissions, user.Role, permission), nil
}

func configurationErrorKind(err error) string {
	var cycle *permissions.CyclicInheritanceError
	if errors.As(err, &cycle) {
		return "cyclic_inheritance"
	}
	return "role_not_configured"
}

type UserService struct {
	users  ports.UserRepository
	perms  *PermissionService
	audit  ports.AuditRepository
	logger ports.Logger
}

func NewUserService(users ports.UserRepository, perms *PermissionService, audit ports.AuditRepository, logger ports.Logger) *UserService {
	return &UserService{users: users, perms: perms, audit: audit, logger: logger}
}

// ChangeRole gives targetID the role named by role on behalf of actorID.
func (s *UserService) ChangeRole(ctx context.Context, actorID, targetID, role string) (domain.User, error) {
	newRole, ok := permissions.ParseRole(role)
	if actorID == "" || targetID == "" || !ok {
		return domain.User{}, domain.ErrInvalidInput
	}
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrPermissionDeny
		}
		return domain.User{}, err
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return domain.User{}, err
	}
	if actor.OrganizationID != target.OrganizationID {
		return domain.User{}, domain.ErrPermissionDeny
	}
	record, err := s.perms.Get(ctx, actor.OrganizationID)
	if err != nil {
		return domain.User{}, err
	}
	if !permissions.CanAssignRole(record.Permissions, actor.Role, newRole) {
		s.logger.Warn(ctx, "role assignment denied", "actor_id", actorID, "actor_role", actor.Role, "target_id", targetID, "role", newRole)
		return domain.User{}, fmt.Errorf("%s cannot assign %s: %w", actor.Role, newRole, domain.ErrPermissionDeny)
	}
	if err := s.users.UpdateRole(ctx, targetID, newRole); err != nil {
		return domain.User{}, err
	}

	previous := target.Role
	target.Role = newRole
	target.UpdatedAt = time.Now().UTC()
	if s.audit != nil {
		entry := domain.AuditEntry{
			ID:             uuid.NewString(),
			OrganizationID: target.OrganizationID,
			ActorID:        actorID,
			Action:         domain.AuditRoleChanged,
			Target:         targetID,
			Details:        map[string]string{"from": string(previous), "to": string(newRole)},
			CreatedAt:      target.UpdatedAt,
		}
		if err := s.audit.Append(ctx, entry); err != nil {
			s.logger.Error(ctx, "failed to append audit entry", "action", entry.Action, "error", err)
		}
	}
	return target, nil
}

type AssignableRoles struct {
	MaxAssignable permissions.UserRole   `json:"max_assignable"`
	Roles         []permissions.UserRole `json:"roles"`
}

// AssignableRoles reports, for userID, both the fixed max-assignable role and
// the roles the assignment gate actually accepts; the two can disagree.
// requesterID must belong to the same organization as userID.
func (s *UserService) AssignableRoles(ctx context.Context, requesterID, userID string) (AssignableRoles, error) {
	if requesterID == "" || userID == "" {
		return AssignableRoles{}, domain.ErrInvalidInput
	}
	requester, err := s.users.GetByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AssignableRoles{}, domain.ErrPermissionDeny
		}
		return AssignableRoles{}, err
	}
	actor, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return AssignableRoles{}, err
	}
	if requester.OrganizationID != actor.OrganizationID {
		return AssignableRoles{}, domain.ErrPermissionDeny
	}
	record, err := s.perms.Get(ctx, actor.OrganizationID)
	if err != nil {
		return AssignableRoles{}, err
	}
	out := AssignableRoles{MaxAssignable: permissions.GetMaxAssignableRole(actor.Role), Roles: []permissions.UserRole{}}
	for _, role := range permissions.AllRoles {
		if permissions.CanAssignRole(record.Permissions, actor.Role, role) {
			out.Roles = append(out.Roles, role)
		}
	}
	return out, nil
}

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

type AuditService struct {
	repo ports.AuditRepository
}

func NewAuditService(repo ports.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) List(ctx context.Context, orgID string, limit int) ([]domain.AuditEntry, error) {
	if orgID == "" {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	return s.repo.ListByOrganization(ctx, orgID, limit)
}

type noopRecorder struct{}

func (noopRecorder) RecordDecision(string, string, string, bool) {}
func (noopRecorder) RecordConfigurationError(string)             {}
