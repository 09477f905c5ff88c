package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DomainState string

const (
	DomainPending DomainState = "pending"
	DomainActive  DomainState = "active"
	DomainError   DomainState = "error"
)

func ValidDomainState(s string) bool {
	switch DomainState(s) {
	case DomainPending, DomainActive, DomainError:
		return true
	}
	return false
}

// CanTransition reports whether the provisioning state machine allows
// moving from s to next. Every new provisioning attempt enters at
// pending; there is no error -> active shortcut, and an active domain
// may be revoked back to error if a later verification check fails.
func (s DomainState) CanTransition(next DomainState) bool {
	switch s {
	case DomainPending:
		return next == DomainActive || next == DomainError
	case DomainActive:
		return next == DomainError
	default:
		return false
	}
}

// CustomDomain is a bring-your-own hostname registered for a tenant.
// The hostname string is unique across all tenants and only grants
// public routing once State is active. ProviderConfig is whatever blob
// the external provisioning API returned; it is stored opaquely and
// never interpreted beyond the verification flag.
type CustomDomain struct {
	ID             uuid.UUID       `json:"id"`
	Domain         string          `json:"domain"`
	TenantID       *uuid.UUID      `json:"tenant_id,omitempty"`
	State          DomainState     `json:"state"`
	ProviderConfig json.RawMessage `json:"provider_config,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
