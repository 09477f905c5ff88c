package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qalileo/qalileo/internal/domain"
)

type DomainStore struct {
	db *pgxpool.Pool
}

func NewDomainStore(db *pgxpool.Pool) *DomainStore {
	return &DomainStore{db: db}
}

func (s *DomainStore) Create(ctx context.Context, d *domain.CustomDomain) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO custom_domains (domain, tenant_id, state, provider_config)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		d.Domain, d.TenantID, d.State, d.ProviderConfig,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if uniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *DomainStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomDomain, error) {
	return s.get(ctx, `WHERE id = $1`, id)
}

func (s *DomainStore) GetByDomain(ctx context.Context, hostname string) (*domain.CustomDomain, error) {
	return s.get(ctx, `WHERE domain = $1`, hostname)
}

func (s *DomainStore) get(ctx context.Context, where string, arg any) (*domain.CustomDomain, error) {
	d := &domain.CustomDomain{}
	err := s.db.QueryRow(ctx,
		`SELECT id, domain, tenant_id, state, provider_config, created_at, updated_at
		 FROM custom_domains `+where,
		arg,
	).Scan(&d.ID, &d.Domain, &d.TenantID, &d.State, &d.ProviderConfig, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *DomainStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.CustomDomain, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, domain, tenant_id, state, provider_config, created_at, updated_at
		 FROM custom_domains WHERE tenant_id = $1 ORDER BY created_at`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CustomDomain
	for rows.Next() {
		var d domain.CustomDomain
		if err := rows.Scan(&d.ID, &d.Domain, &d.TenantID, &d.State, &d.ProviderConfig, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *DomainStore) UpdateState(ctx context.Context, id uuid.UUID, state domain.DomainState) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE custom_domains SET state = $1, updated_at = NOW() WHERE id = $2`,
		state, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DomainStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM custom_domains WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ domain.DomainStore = (*DomainStore)(nil)
