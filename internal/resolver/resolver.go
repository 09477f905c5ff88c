// Package resolver maps inbound request hostnames to tenants and decides
// the access scope of each request. Resolution follows a fixed precedence:
// platform host, then exact verified custom domain, then subdomain of the
// base hostname, then a low-confidence first-label fallback. The order is
// total so the same hostname can never resolve to two different tenants.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qalileo/qalileo/internal/domain"
	"github.com/qalileo/qalileo/internal/store"
)

type Confidence string

const (
	ConfidenceNormal Confidence = "normal"
	ConfidenceLow    Confidence = "low"
)

type UnresolvedReason string

const (
	// ReasonPlatformHost marks requests for the provider's own domain.
	ReasonPlatformHost UnresolvedReason = "platform_host"
	// ReasonDomainNotVerified marks a registered custom domain whose
	// provisioning has not completed. It never falls through to slug
	// matching: an unverified domain must not resolve to another tenant
	// by coincidental collision.
	ReasonDomainNotVerified UnresolvedReason = "domain_not_verified"
	// ReasonNoTenant marks hostnames no strategy could match.
	ReasonNoTenant UnresolvedReason = "no_tenant"
)

type Strategy string

const (
	StrategyExactDomain Strategy = "exact_domain"
	StrategySubdomain   Strategy = "subdomain"
	StrategyFallback    Strategy = "fallback"
)

// Resolution is the outcome of matching one hostname. Either Tenant is
// set (Resolved true) or Reason explains why not.
type Resolution struct {
	Resolved     bool
	PlatformHost bool
	Tenant       *domain.Tenant
	Strategy     Strategy
	Confidence   Confidence
	Reason       UnresolvedReason
}

type Resolver struct {
	tenants      domain.TenantStore
	domains      domain.DomainStore
	baseHostname string
}

func New(tenants domain.TenantStore, domains domain.DomainStore, baseHostname string) *Resolver {
	return &Resolver{
		tenants:      tenants,
		domains:      domains,
		baseHostname: NormalizeHostname(baseHostname),
	}
}

// NormalizeHostname lowercases the hostname and strips any port and
// trailing dot. The Host header is attacker-influenced, so everything
// downstream matches on the normalized form only.
func NormalizeHostname(hostname string) string {
	h := strings.ToLower(strings.TrimSpace(hostname))
	if i := strings.LastIndex(h, ":"); i >= 0 && !strings.Contains(h[i:], "]") {
		h = h[:i]
	}
	return strings.TrimSuffix(h, ".")
}

// Resolve identifies the tenant owning hostname. Each precedence branch
// performs at most one domain lookup and one tenant lookup.
func (r *Resolver) Resolve(ctx context.Context, hostname string) (Resolution, error) {
	host := NormalizeHostname(hostname)
	if host == "" {
		return Resolution{Reason: ReasonNoTenant}, nil
	}

	// 1. The provider's own domain serves the cross-tenant surface.
	if host == r.baseHostname || host == "www."+r.baseHostname {
		return Resolution{PlatformHost: true, Reason: ReasonPlatformHost}, nil
	}

	// 2. Exact custom-domain match.
	d, err := r.domains.GetByDomain(ctx, host)
	switch {
	case err == nil:
		if d.State != domain.DomainActive || d.TenantID == nil {
			return Resolution{Reason: ReasonDomainNotVerified}, nil
		}
		t, err := r.tenants.GetByID(ctx, *d.TenantID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Registered domain pointing at a missing tenant should
				// not happen; treat as unresolved rather than guessing.
				return Resolution{Reason: ReasonNoTenant}, nil
			}
			return Resolution{}, fmt.Errorf("resolve tenant for domain %s: %w", host, err)
		}
		return Resolution{
			Resolved:   true,
			Tenant:     t,
			Strategy:   StrategyExactDomain,
			Confidence: ConfidenceNormal,
		}, nil
	case !errors.Is(err, store.ErrNotFound):
		return Resolution{}, fmt.Errorf("resolve domain %s: %w", host, err)
	}

	// 3. Subdomain of the base hostname: the leading labels are the slug.
	if candidate, ok := strings.CutSuffix(host, "."+r.baseHostname); ok {
		if !domain.ValidSlug(candidate) {
			return Resolution{Reason: ReasonNoTenant}, nil
		}
		return r.bySlug(ctx, candidate, StrategySubdomain, ConfidenceNormal)
	}

	// 4. Degraded fallback: try the first hostname label as a slug. This
	// tolerates custom domains that were never registered but share a
	// recognizable first label (docs.acme.io for slug "docs" is wrong,
	// acme.example.io for slug "acme" is useful). Low confidence, so the
	// scope decision never grants mutation on this path.
	first, _, _ := strings.Cut(host, ".")
	if !domain.ValidSlug(first) {
		return Resolution{Reason: ReasonNoTenant}, nil
	}
	return r.bySlug(ctx, first, StrategyFallback, ConfidenceLow)
}

func (r *Resolver) bySlug(ctx context.Context, slug string, strategy Strategy, confidence Confidence) (Resolution, error) {
	t, err := r.tenants.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Resolution{Reason: ReasonNoTenant}, nil
		}
		return Resolution{}, fmt.Errorf("resolve tenant slug %s: %w", slug, err)
	}
	return Resolution{
		Resolved:   true,
		Tenant:     t,
		Strategy:   strategy,
		Confidence: confidence,
	}, nil
}
