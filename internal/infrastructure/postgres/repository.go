package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"posadmin/internal/domain"
	"posadmin/internal/domain/permissions"
)

const uniqueViolation = "23505"

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS organization_permissions (
	organization_id TEXT PRIMARY KEY,
	document        JSONB NOT NULL,
	version         BIGINT NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	updated_by      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	email           TEXT NOT NULL,
	name            TEXT NOT NULL DEFAULT '',
	role            TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id              UUID PRIMARY KEY,
	organization_id TEXT NOT NULL,
	actor_id        TEXT NOT NULL,
	action          TEXT NOT NULL,
	target          TEXT NOT NULL,
	details         JSONB,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_logs_org_created ON audit_logs (organization_id, created_at DESC);
`

func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

type PermissionRepository struct {
	db *sql.DB
}

func NewPermissionRepository(db *sql.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) Get(ctx context.Context, orgID string) (domain.PermissionRecord, error) {
	query := `
		SELECT organization_id, document, version, updated_at, updated_by
		FROM organization_permissions
		WHERE organization_id = $1
	`

	var record domain.PermissionRecord
	var document []byte
	err := r.db.QueryRowContext(ctx, query, orgID).Scan(
		&record.OrganizationID,
		&document,
		&record.Version,
		&record.UpdatedAt,
		&record.UpdatedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PermissionRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PermissionRecord{}, fmt.Errorf("failed to get permissions: %w", err)
	}
	if err := json.Unmarshal(document, &record.Permissions); err != nil {
		return domain.PermissionRecord{}, fmt.Errorf("failed to unmarshal permissions: %w", err)
	}
	return record, nil
}

func (r *PermissionRepository) Save(ctx context.Context, record domain.PermissionRecord, expectedVersion int64) error {
	document, err := json.Marshal(record.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	var result sql.Result
	if expectedVersion == 0 {
		result, err = r.db.ExecContext(ctx, `
			INSERT INTO organization_permissions (organization_id, document, version, updated_at, updated_by)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (organization_id) DO NOTHING
		`, record.OrganizationID, string(document), record.Version, record.UpdatedAt, record.UpdatedBy)
	} else {
		result, err = r.db.ExecContext(ctx, `
			UPDATE organization_permissions
			SET document = $2, version = $3, updated_at = $4, updated_by = $5
			WHERE organization_id = $1 AND version = $6
		`, record.OrganizationID, string(document), record.Version, record.UpdatedAt, record.UpdatedBy, expectedVersion)
	}
	if err != nil {
		return fmt.Errorf("failed to save permissions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save permissions: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("organization %s expected version %d: %w", record.OrganizationID, expectedVersion, domain.ErrVersionConflict)
	}
	return nil
}

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (domain.User, error) {
	query := `
		SELECT id, organization_id, email, name, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user domain.User
	var role string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.OrganizationID,
		&user.Email,
		&user.Name,
		&role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	user.Role = permissions.UserRole(role)
	return user, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, userID string, role permissions.UserRole) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`,
		userID, string(role),
	)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, organization_id, actor_id, action, target, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.OrganizationID, entry.ActorID, string(entry.Action), entry.Target, string(details), entry.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("audit entry %s already recorded: %w", entry.ID, domain.ErrInvalidInput)
	}
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByOrganization(ctx context.Context, orgID string, limit int) ([]domain.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, organization_id, actor_id, action, target, details, created_at
		FROM audit_logs
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.AuditEntry{}
	for rows.Next() {
		var entry domain.AuditEntry
		var action string
		var details []byte
		if err := rows.Scan(&entry.ID, &entry.OrganizationID, &entry.ActorID, &action, &entry.Target, &details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Action = domain.AuditAction(action)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}
