package domain

import (
	"time"

	"github.com/google/uuid"
)

type DocStatus string

const (
	DocDraft     DocStatus = "draft"
	DocPublished DocStatus = "published"
)

func ValidDocStatus(s string) bool {
	switch DocStatus(s) {
	case DocDraft, DocPublished:
		return true
	}
	return false
}

type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

// Documentation is one doc page owned by a tenant. Slug is unique within
// the tenant. Draft docs are only visible under staff scope.
type Documentation struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Status    DocStatus `json:"status"`
	Sections  []Section `json:"sections"`
	CreatorID uuid.UUID `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentationSummary is the listing shape: everything except section
// bodies.
type DocumentationSummary struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Status    DocStatus `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}
