package tenancy

import (
	"context"
	"database/sql"
	"fmt"

	"tenant-backup/internal/errors"
	"tenant-backup/internal/logging"
)

// Role is a user's role within one tenant
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Tenant is the root company record a snapshot is scoped to
type Tenant struct {
	ID   int64
	Name string
}

// Service resolves tenants and membership roles. Export is allowed for
// owners and admins; restore is owner-only. The asymmetry is deliberate.
type Service struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewService creates a tenancy service
func NewService(db *sql.DB, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Service{db: db, logger: logger}
}

// GetTenant loads the tenant root record. A missing tenant is fatal for any
// export or restore; no snapshot is usable without its root record.
func (s *Service) GetTenant(ctx context.Context, tenantID int64) (*Tenant, error) {
	var tenant Tenant

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM companies WHERE id = ?", tenantID).
		Scan(&tenant.ID, &tenant.Name)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("tenant %d not found", tenantID), err)
	}
	if err != nil {
		return nil, errors.WrapError(err, "failed to load tenant record")
	}

	return &tenant, nil
}

// GetMemberRole returns the role a user holds within a tenant
func (s *Service) GetMemberRole(ctx context.Context, tenantID, userID int64) (Role, error) {
	var role string

	err := s.db.QueryRowContext(ctx,
		"SELECT role FROM company_users WHERE company_id = ? AND user_id = ?", tenantID, userID).
		Scan(&role)
	if err == sql.ErrNoRows {
		return "", errors.NewAuthorizationError(
			fmt.Sprintf("user %d is not a member of tenant %d", userID, tenantID))
	}
	if err != nil {
		return "", errors.WrapError(err, "failed to load membership role")
	}

	return Role(role), nil
}

// AuthorizeExport verifies the user may export the tenant's data.
// Owners and admins may export.
func (s *Service) AuthorizeExport(ctx context.Context, tenantID, userID int64) error {
	role, err := s.GetMemberRole(ctx, tenantID, userID)
	if err != nil {
		return err
	}

	if role != RoleOwner && role != RoleAdmin {
		s.logger.WithFields(map[string]interface{}{
			"tenant_id": tenantID,
			"user_id":   userID,
			"role":      role,
		}).Warn("Export denied")
		return errors.NewAuthorizationError("export requires the owner or admin role")
	}

	return nil
}

// AuthorizeRestore verifies the user may restore into the tenant.
// Restore is owner-only, and is re-checked at execution time because session
// state may have changed since the request was enqueued.
func (s *Service) AuthorizeRestore(ctx context.Context, tenantID, userID int64) error {
	role, err := s.GetMemberRole(ctx, tenantID, userID)
	if err != nil {
		return err
	}

	if role != RoleOwner {
		s.logger.WithFields(map[string]interface{}{
			"tenant_id": tenantID,
			"user_id":   userID,
			"role":      role,
		}).Warn("Restore denied")
		return errors.NewAuthorizationError("restore requires the owner role")
	}

	return nil
}
