package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qalileo/qalileo/internal/domain"
)

type TenantStore struct {
	db *pgxpool.Pool
}

func NewTenantStore(db *pgxpool.Pool) *TenantStore {
	return &TenantStore{db: db}
}

func (s *TenantStore) Create(ctx context.Context, t *domain.Tenant) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO tenants (slug, name, custom_domain_id) VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		t.Slug, t.Name, t.CustomDomainID,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if uniqueViolation(err) {
			return ErrConflict
		}
		return err
	}

	for _, m := range t.Staff {
		if _, err := tx.Exec(ctx,
			`INSERT INTO tenant_staff (tenant_id, user_id, role) VALUES ($1, $2, $3)`,
			t.ID, m.UserID, m.Role,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *TenantStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return s.get(ctx, `WHERE id = $1`, id)
}

func (s *TenantStore) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	return s.get(ctx, `WHERE slug = $1`, slug)
}

func (s *TenantStore) get(ctx context.Context, where string, arg any) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	err := s.db.QueryRow(ctx,
		`SELECT id, slug, name, custom_domain_id, created_at, updated_at
		 FROM tenants `+where,
		arg,
	).Scan(&t.ID, &t.Slug, &t.Name, &t.CustomDomainID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT user_id, role FROM tenant_staff WHERE tenant_id = $1 ORDER BY added_at`,
		t.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.StaffMember
		if err := rows.Scan(&m.UserID, &m.Role); err != nil {
			return nil, err
		}
		t.Staff = append(t.Staff, m)
	}
	return t, rows.Err()
}

// Update rewrites the tenant row and replaces its staff set atomically.
func (s *TenantStore) Update(ctx context.Context, t *domain.Tenant) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE tenants SET slug = $1, name = $2, custom_domain_id = $3, updated_at = NOW()
		 WHERE id = $4`,
		t.Slug, t.Name, t.CustomDomainID, t.ID,
	)
	if err != nil {
		if uniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tenant_staff WHERE tenant_id = $1`, t.ID); err != nil {
		return err
	}
	for _, m := range t.Staff {
		if _, err := tx.Exec(ctx,
			`INSERT INTO tenant_staff (tenant_id, user_id, role) VALUES ($1, $2, $3)`,
			t.ID, m.UserID, m.Role,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

var _ domain.TenantStore = (*TenantStore)(nil)
