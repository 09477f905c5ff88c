package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/qalileo/qalileo/internal/domain"
	"github.com/qalileo/qalileo/internal/store"
	"go.uber.org/zap"
)

var (
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrTenantNameEmpty   = errors.New("name is required")
	ErrSlugInvalid       = errors.New("slug must be lowercase letters, digits and hyphens")
	ErrSlugTaken         = errors.New("slug already in use")
	ErrSlugReserved      = errors.New("slug is reserved by the platform")
	ErrStaffPermission   = errors.New("insufficient role for this action")
	ErrStaffNotFound     = errors.New("user is not a staff member")
	ErrStaffExists       = errors.New("user is already a staff member")
	ErrStaffRoleInvalid  = errors.New("invalid staff role")
	ErrOwnerImmutable    = errors.New("the owner can only change via ownership transfer")
)

// reservedSlugs are labels the router serves statically. A tenant with
// one of these slugs would shadow the matching endpoint after the
// tenant-host path rewrite, so they can never be claimed.
var reservedSlugs = map[string]struct{}{
	"health":  {},
	"metrics": {},
	"v1":      {},
	"www":     {},
}

type TenantService struct {
	tenants domain.TenantStore
	logger  *zap.Logger
}

func NewTenantService(tenants domain.TenantStore, logger *zap.Logger) *TenantService {
	return &TenantService{tenants: tenants, logger: logger}
}

// Create registers a new company with the creating user as its sole
// owner.
func (s *TenantService) Create(ctx context.Context, name, slug string, creatorID uuid.UUID) (*domain.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTenantNameEmpty
	}
	if !domain.ValidSlug(slug) {
		return nil, ErrSlugInvalid
	}
	if _, ok := reservedSlugs[slug]; ok {
		return nil, ErrSlugReserved
	}

	t := &domain.Tenant{
		Slug: slug,
		Name: name,
		Staff: []domain.StaffMember{
			{UserID: creatorID, Role: domain.RoleOwner},
		},
	}
	if err := s.tenants.Create(ctx, t); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}

	s.logger.Info("tenant created",
		zap.String("tenant_id", t.ID.String()),
		zap.String("slug", t.Slug),
	)
	return t, nil
}

func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	t, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return t, nil
}

// UpdateProfile changes the tenant's display name and slug. Owner or
// admin only; slug changes keep the uniqueness guarantee via the store's
// unique index.
func (s *TenantService) UpdateProfile(ctx context.Context, tenantID, actorID uuid.UUID, name, slug string) (*domain.Tenant, error) {
	t, err := s.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !canManage(t.Role(actorID)) {
		return nil, ErrStaffPermission
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTenantNameEmpty
	}
	if !domain.ValidSlug(slug) {
		return nil, ErrSlugInvalid
	}
	if _, ok := reservedSlugs[slug]; ok {
		return nil, ErrSlugReserved
	}

	t.Name = name
	t.Slug = slug
	if err := s.tenants.Update(ctx, t); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	return t, nil
}

// AddStaff adds userID with the given role. Only owners and admins may
// manage staff, and a second owner can never be added directly.
func (s *TenantService) AddStaff(ctx context.Context, tenantID, actorID, userID uuid.UUID, role domain.StaffRole) (*domain.Tenant, error) {
	if !domain.ValidStaffRole(string(role)) {
		return nil, ErrStaffRoleInvalid
	}
	if role == domain.RoleOwner {
		return nil, ErrOwnerImmutable
	}

	t, err := s.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !canManage(t.Role(actorID)) {
		return nil, ErrStaffPermission
	}
	if t.Role(userID) != "" {
		return nil, ErrStaffExists
	}

	t.Staff = append(t.Staff, domain.StaffMember{UserID: userID, Role: role})
	if err := s.tenants.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateStaffRole changes the role of an existing staff member. The
// owner role can neither be granted nor revoked this way; that is what
// ownership transfer is for.
func (s *TenantService) UpdateStaffRole(ctx context.Context, tenantID, actorID, userID uuid.UUID, role domain.StaffRole) (*domain.Tenant, error) {
	if !domain.ValidStaffRole(string(role)) {
		return nil, ErrStaffRoleInvalid
	}
	if role == domain.RoleOwner {
		return nil, ErrOwnerImmutable
	}

	t, err := s.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !canManage(t.Role(actorID)) {
		return nil, ErrStaffPermission
	}

	switch t.Role(userID) {
	case "":
		return nil, ErrStaffNotFound
	case domain.RoleOwner:
		return nil, ErrOwnerImmutable
	}

	for i, m := range t.Staff {
		if m.UserID == userID {
			t.Staff[i].Role = role
		}
	}
	if err := s.tenants.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// RemoveStaff removes userID from the staff set. The owner cannot be
// removed; ownership must be transferred first.
func (s *TenantService) RemoveStaff(ctx context.Context, tenantID, actorID, userID uuid.UUID) (*domain.Tenant, error) {
	t, err := s.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !canManage(t.Role(actorID)) {
		return nil, ErrStaffPermission
	}

	switch t.Role(userID) {
	case "":
		return nil, ErrStaffNotFound
	case domain.RoleOwner:
		return nil, ErrOwnerImmutable
	}

	staff := t.Staff[:0]
	for _, m := range t.Staff {
		if m.UserID != userID {
			staff = append(staff, m)
		}
	}
	t.Staff = staff

	if err := s.tenants.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// TransferOwnership makes newOwnerID the single owner and demotes the
// current owner to admin. Only the current owner may transfer.
func (s *TenantService) TransferOwnership(ctx context.Context, tenantID, actorID, newOwnerID uuid.UUID) (*domain.Tenant, error) {
	t, err := s.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t.Role(actorID) != domain.RoleOwner {
		return nil, ErrStaffPermission
	}
	if t.Role(newOwnerID) == "" {
		return nil, ErrStaffNotFound
	}
	if newOwnerID == actorID {
		return t, nil
	}

	for i, m := range t.Staff {
		switch m.UserID {
		case actorID:
			t.Staff[i].Role = domain.RoleAdmin
		case newOwnerID:
			t.Staff[i].Role = domain.RoleOwner
		}
	}

	if err := s.tenants.Update(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("ownership transferred",
		zap.String("tenant_id", t.ID.String()),
		zap.String("new_owner", newOwnerID.String()),
	)
	return t, nil
}

func canManage(role domain.StaffRole) bool {
	return role == domain.RoleOwner || role == domain.RoleAdmin
}
