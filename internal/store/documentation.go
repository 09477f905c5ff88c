package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qalileo/qalileo/internal/domain"
)

type DocumentationStore struct {
	db *pgxpool.Pool
}

func NewDocumentationStore(db *pgxpool.Pool) *DocumentationStore {
	return &DocumentationStore{db: db}
}

func (s *DocumentationStore) Create(ctx context.Context, d *domain.Documentation) error {
	sections, err := json.Marshal(d.Sections)
	if err != nil {
		return err
	}
	err = s.db.QueryRow(ctx,
		`INSERT INTO documentations (tenant_id, title, slug, status, sections, creator_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		d.TenantID, d.Title, d.Slug, d.Status, sections, d.CreatorID,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if uniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *DocumentationStore) GetBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*domain.Documentation, error) {
	d := &domain.Documentation{}
	var sections []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, tenant_id, title, slug, status, sections, creator_id, created_at, updated_at
		 FROM documentations WHERE tenant_id = $1 AND slug = $2`,
		tenantID, slug,
	).Scan(&d.ID, &d.TenantID, &d.Title, &d.Slug, &d.Status, &sections, &d.CreatorID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(sections, &d.Sections); err != nil {
		return nil, err
	}
	return d, nil
}

// List returns summaries for the tenant restricted to the given statuses,
// most recently updated first.
func (s *DocumentationStore) List(ctx context.Context, tenantID uuid.UUID, statuses []domain.DocStatus) ([]domain.DocumentationSummary, error) {
	vals := make([]string, len(statuses))
	for i, st := range statuses {
		vals[i] = string(st)
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, title, slug, status, updated_at
		 FROM documentations
		 WHERE tenant_id = $1 AND status = ANY($2)
		 ORDER BY updated_at DESC`,
		tenantID, vals,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DocumentationSummary
	for rows.Next() {
		var d domain.DocumentationSummary
		if err := rows.Scan(&d.ID, &d.Title, &d.Slug, &d.Status, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *DocumentationStore) Update(ctx context.Context, d *domain.Documentation) error {
	sections, err := json.Marshal(d.Sections)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE documentations
		 SET title = $1, slug = $2, status = $3, sections = $4, updated_at = NOW()
		 WHERE id = $5 AND tenant_id = $6`,
		d.Title, d.Slug, d.Status, sections, d.ID, d.TenantID,
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
	return nil
}

func (s *DocumentationStore) Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM documentations WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ domain.DocumentationStore = (*DocumentationStore)(nil)
