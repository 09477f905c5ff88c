package resolver

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qalileo/qalileo/internal/domain"
)

func resolvedTenant(confidence Confidence) Resolution {
	return Resolution{
		Resolved:   true,
		Tenant:     &domain.Tenant{ID: uuid.New(), Slug: "acme"},
		Strategy:   StrategySubdomain,
		Confidence: confidence,
	}
}

func TestDecideScope_PlatformHostWithSession(t *testing.T) {
	sess := &Session{UserID: uuid.New(), TenantID: uuid.New()}

	d := DecideScope(Resolution{PlatformHost: true, Reason: ReasonPlatformHost}, sess)
	if d.Scope != ScopeStaff || !d.CanMutate {
		t.Fatalf("expected staff scope with mutation, got %+v", d)
	}
	if d.TenantID != sess.TenantID {
		t.Errorf("expected session tenant %s, got %s", sess.TenantID, d.TenantID)
	}
}

func TestDecideScope_PlatformHostAnonymous(t *testing.T) {
	d := DecideScope(Resolution{PlatformHost: true, Reason: ReasonPlatformHost}, nil)
	if d.Scope != ScopeNone || d.CanMutate {
		t.Fatalf("expected no scope, got %+v", d)
	}
}

func TestDecideScope_PublicSiteIgnoresSession(t *testing.T) {
	// A staff member browsing their own public subdomain sees exactly
	// what an anonymous visitor sees.
	res := resolvedTenant(ConfidenceNormal)
	sess := &Session{UserID: uuid.New(), TenantID: res.Tenant.ID}

	for _, s := range []*Session{nil, sess} {
		d := DecideScope(res, s)
		if d.Scope != ScopePublic {
			t.Fatalf("session=%v: expected public scope, got %s", s, d.Scope)
		}
		if d.CanMutate {
			t.Fatalf("session=%v: public scope granted mutation", s)
		}
		if d.TenantID != res.Tenant.ID {
			t.Errorf("session=%v: wrong tenant %s", s, d.TenantID)
		}
	}
}

func TestDecideScope_LowConfidenceIsDegraded(t *testing.T) {
	res := resolvedTenant(ConfidenceLow)
	sess := &Session{UserID: uuid.New(), TenantID: res.Tenant.ID}

	for _, s := range []*Session{nil, sess} {
		d := DecideScope(res, s)
		if d.Scope != ScopePublic || d.CanMutate {
			t.Fatalf("session=%v: expected read-only public, got %+v", s, d)
		}
		if !d.Degraded {
			t.Errorf("session=%v: fallback match not flagged degraded", s)
		}
	}
}

func TestDecideScope_Unresolved(t *testing.T) {
	for _, reason := range []UnresolvedReason{ReasonDomainNotVerified, ReasonNoTenant} {
		for _, s := range []*Session{nil, {UserID: uuid.New(), TenantID: uuid.New()}} {
			d := DecideScope(Resolution{Reason: reason}, s)
			if d.Scope != ScopeNone || d.CanMutate {
				t.Fatalf("reason=%s session=%v: expected no scope, got %+v", reason, s, d)
			}
		}
	}
}

// TestDecideScope_NeverMutableWhenPublic enumerates every resolution kind
// against every session kind and checks the one invariant that matters
// most: mutation is only ever granted under staff scope.
func TestDecideScope_NeverMutableWhenPublic(t *testing.T) {
	resolutions := []Resolution{
		{PlatformHost: true, Reason: ReasonPlatformHost},
		resolvedTenant(ConfidenceNormal),
		resolvedTenant(ConfidenceLow),
		{Reason: ReasonDomainNotVerified},
		{Reason: ReasonNoTenant},
	}
	sessions := []*Session{
		nil,
		{UserID: uuid.New(), TenantID: uuid.New()},
		{UserID: uuid.New()}, // authenticated but no tenant membership
	}

	for _, res := range resolutions {
		for _, sess := range sessions {
			d := DecideScope(res, sess)
			if d.CanMutate && d.Scope != ScopeStaff {
				t.Fatalf("res=%+v sess=%+v: CanMutate granted outside staff scope", res, sess)
			}
			if d.Scope == ScopePublic && d.CanMutate {
				t.Fatalf("res=%+v sess=%+v: public scope with mutation", res, sess)
			}
		}
	}
}
