package domain

import (
	"context"

	"github.com/google/uuid"
)

type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) error
}

type DomainStore interface {
	Create(ctx context.Context, d *CustomDomain) error
	GetByID(ctx context.Context, id uuid.UUID) (*CustomDomain, error)
	GetByDomain(ctx context.Context, hostname string) (*CustomDomain, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]CustomDomain, error)
	UpdateState(ctx context.Context, id uuid.UUID, state DomainState) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type DocumentationStore interface {
	Create(ctx context.Context, d *Documentation) error
	GetBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*Documentation, error)
	List(ctx context.Context, tenantID uuid.UUID, statuses []DocStatus) ([]DocumentationSummary, error)
	Update(ctx context.Context, d *Documentation) error
	Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error
}
