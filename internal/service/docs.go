package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/qalileo/qalileo/internal/domain"
	"github.com/qalileo/qalileo/internal/resolver"
	"github.com/qalileo/qalileo/internal/store"
	"go.uber.org/zap"
)

var (
	ErrDocNotFound      = errors.New("documentation not found")
	ErrDocTitleEmpty    = errors.New("title is required")
	ErrDocSlugInvalid   = errors.New("doc slug must be lowercase letters, digits and hyphens")
	ErrDocSlugTaken     = errors.New("doc slug already in use")
	ErrDocStatusInvalid = errors.New("invalid doc status")
	ErrReadOnly         = errors.New("mutation requires staff scope")
)

// DocsService is the query-shaping gate between routing and the content
// store: scope decides which statuses a caller may see, and CanMutate is
// the sole precondition for writes.
type DocsService struct {
	docs   domain.DocumentationStore
	logger *zap.Logger
}

func NewDocsService(docs domain.DocumentationStore, logger *zap.Logger) *DocsService {
	return &DocsService{docs: docs, logger: logger}
}

func statusesFor(scope resolver.Scope) []domain.DocStatus {
	if scope == resolver.ScopeStaff {
		return []domain.DocStatus{domain.DocDraft, domain.DocPublished}
	}
	return []domain.DocStatus{domain.DocPublished}
}

// List returns doc summaries visible under scope, most recently updated
// first.
func (s *DocsService) List(ctx context.Context, tenantID uuid.UUID, scope resolver.Scope) ([]domain.DocumentationSummary, error) {
	docs, err := s.docs.List(ctx, tenantID, statusesFor(scope))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})
	return docs, nil
}

// Get returns the doc with the given slug. Under public scope a draft is
// reported with the exact same not-found as a genuinely absent slug, so
// the existence of unpublished content never leaks.
func (s *DocsService) Get(ctx context.Context, tenantID uuid.UUID, scope resolver.Scope, slug string) (*domain.Documentation, error) {
	d, err := s.docs.GetBySlug(ctx, tenantID, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDocNotFound
		}
		return nil, err
	}
	if scope != resolver.ScopeStaff && d.Status != domain.DocPublished {
		return nil, ErrDocNotFound
	}
	return d, nil
}

// Create adds a doc for the decided tenant. The decision's CanMutate is
// the authorization precondition.
func (s *DocsService) Create(ctx context.Context, dec resolver.Decision, title, slug string, sections []domain.Section, creatorID uuid.UUID) (*domain.Documentation, error) {
	if !dec.CanMutate {
		return nil, ErrReadOnly
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrDocTitleEmpty
	}
	if !domain.ValidSlug(slug) {
		return nil, ErrDocSlugInvalid
	}

	d := &domain.Documentation{
		TenantID:  dec.TenantID,
		Title:     title,
		Slug:      slug,
		Status:    domain.DocDraft,
		Sections:  sections,
		CreatorID: creatorID,
	}
	if err := s.docs.Create(ctx, d); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDocSlugTaken
		}
		return nil, err
	}
	return d, nil
}

// Update replaces title and sections of the doc with the given slug.
func (s *DocsService) Update(ctx context.Context, dec resolver.Decision, slug, title string, sections []domain.Section) (*domain.Documentation, error) {
	if !dec.CanMutate {
		return nil, ErrReadOnly
	}
	d, err := s.Get(ctx, dec.TenantID, dec.Scope, slug)
	if err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrDocTitleEmpty
	}
	d.Title = title
	d.Sections = sections

	if err := s.docs.Update(ctx, d); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDocNotFound
		}
		return nil, err
	}
	return d, nil
}

// SetStatus publishes or unpublishes a doc.
func (s *DocsService) SetStatus(ctx context.Context, dec resolver.Decision, slug string, status domain.DocStatus) (*domain.Documentation, error) {
	if !dec.CanMutate {
		return nil, ErrReadOnly
	}
	if !domain.ValidDocStatus(string(status)) {
		return nil, ErrDocStatusInvalid
	}
	d, err := s.Get(ctx, dec.TenantID, dec.Scope, slug)
	if err != nil {
		return nil, err
	}

	d.Status = status
	if err := s.docs.Update(ctx, d); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDocNotFound
		}
		return nil, err
	}

	s.logger.Info("doc status changed",
		zap.String("tenant_id", dec.TenantID.String()),
		zap.String("slug", slug),
		zap.String("status", string(status)),
	)
	return d, nil
}

// Delete removes a doc by slug.
func (s *DocsService) Delete(ctx context.Context, dec resolver.Decision, slug string) error {
	if !dec.CanMutate {
		return ErrReadOnly
	}
	d, err := s.Get(ctx, dec.TenantID, dec.Scope, slug)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, d.ID, dec.TenantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrDocNotFound
		}
		return err
	}
	return nil
}
