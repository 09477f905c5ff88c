package resolver

import "github.com/google/uuid"

type Scope string

const (
	ScopeStaff  Scope = "staff"
	ScopePublic Scope = "public"
	ScopeNone   Scope = "none"
)

// Session is the authenticated caller as reported by the auth provider.
type Session struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
}

// Decision is the access scope applied to a resolved request. Handlers
// treat CanMutate as the sole precondition for writes.
type Decision struct {
	TenantID  uuid.UUID
	Scope     Scope
	CanMutate bool
	Degraded  bool
}

// DecideScope applies the scope rules in order:
//
//   - An authenticated staff member on the platform host works on their
//     own tenant with mutation rights.
//   - Any concrete tenant match is public and read-only, session or not:
//     a staff member browsing their own public site sees exactly what an
//     anonymous visitor sees.
//   - A low-confidence fallback match is public, read-only and flagged
//     degraded for observability.
//   - Anything else gets no scope; the caller must answer not-found
//     rather than defaulting to a tenant.
func DecideScope(res Resolution, sess *Session) Decision {
	if res.PlatformHost {
		if sess != nil && sess.TenantID != uuid.Nil {
			return Decision{TenantID: sess.TenantID, Scope: ScopeStaff, CanMutate: true}
		}
		return Decision{Scope: ScopeNone}
	}

	if res.Resolved && res.Tenant != nil {
		return Decision{
			TenantID: res.Tenant.ID,
			Scope:    ScopePublic,
			Degraded: res.Confidence == ConfidenceLow,
		}
	}

	return Decision{Scope: ScopeNone}
}
