package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qalileo/qalileo/internal/domain"
	"github.com/qalileo/qalileo/internal/provision"
	"github.com/qalileo/qalileo/internal/resolver"
	"github.com/qalileo/qalileo/internal/store"
	"go.uber.org/zap"
)

var (
	ErrDomainNotFound      = errors.New("domain not found")
	ErrDomainInvalid       = errors.New("invalid domain name")
	ErrDomainTaken         = errors.New("domain already registered")
	ErrDomainReserved      = errors.New("domain is reserved by the platform")
	ErrTenantHasDomain     = errors.New("tenant already has a custom domain")
	ErrProviderUnavailable = errors.New("provisioning provider unavailable")
)

const (
	// providerTimeout bounds every provisioning call so a slow provider
	// cannot stall API requests.
	providerTimeout = 10 * time.Second
	// refreshRetryDelay is the backoff before the single retry of the
	// idempotent verification read.
	refreshRetryDelay = 200 * time.Millisecond
)

// DomainService owns the custom-domain lifecycle: pending on register,
// active once the provider confirms verification, error on provisioning
// failure or later revocation. A new provisioning attempt always
// re-enters at pending.
type DomainService struct {
	domains      domain.DomainStore
	tenants      domain.TenantStore
	provider     provision.Provider
	baseHostname string
	logger       *zap.Logger
}

func NewDomainService(domains domain.DomainStore, tenants domain.TenantStore, provider provision.Provider, baseHostname string, logger *zap.Logger) *DomainService {
	return &DomainService{
		domains:      domains,
		tenants:      tenants,
		provider:     provider,
		baseHostname: resolver.NormalizeHostname(baseHostname),
		logger:       logger,
	}
}

// Register adds a custom domain for the tenant. The provider call happens
// before any local write: if the provider is unreachable the operation
// fails closed and no pending record is left behind.
func (s *DomainService) Register(ctx context.Context, tenantID, actorID uuid.UUID, hostname string) (*domain.CustomDomain, error) {
	host := resolver.NormalizeHostname(hostname)
	if !validHostname(host) {
		return nil, ErrDomainInvalid
	}
	if host == s.baseHostname || strings.HasSuffix(host, "."+s.baseHostname) {
		return nil, ErrDomainReserved
	}

	t, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	if !canManage(t.Role(actorID)) {
		return nil, ErrStaffPermission
	}
	if t.CustomDomainID != nil {
		return nil, ErrTenantHasDomain
	}

	if _, err := s.domains.GetByDomain(ctx, host); err == nil {
		return nil, ErrDomainTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	cfg, err := s.provider.RegisterDomain(callCtx, host)
	if err != nil {
		if errors.Is(err, provision.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrProviderUnavailable
		}
		return nil, err
	}

	// Initial state is always pending regardless of what the provider
	// responded with; verification is confirmed separately.
	d := &domain.CustomDomain{
		Domain:         host,
		TenantID:       &tenantID,
		State:          domain.DomainPending,
		ProviderConfig: cfg,
	}
	if err := s.domains.Create(ctx, d); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDomainTaken
		}
		return nil, err
	}

	t.CustomDomainID = &d.ID
	if err := s.tenants.Update(ctx, t); err != nil {
		// The tenant never learned about the domain, so an orphan record
		// would keep the hostname claimed forever. Roll it back.
		if derr := s.domains.Delete(ctx, d.ID); derr != nil && !errors.Is(derr, store.ErrNotFound) {
			s.logger.Error("orphan domain cleanup failed",
				zap.String("domain", host),
				zap.Error(derr),
			)
		}
		return nil, err
	}

	s.logger.Info("custom domain registered",
		zap.String("tenant_id", tenantID.String()),
		zap.String("domain", host),
	)
	return d, nil
}

// RefreshStatus re-queries the provider's verification flag and advances
// the state machine. It is idempotent: refreshing twice with no
// provider-side change yields the same state. A domain belonging to a
// different tenant is reported exactly like a missing one.
func (s *DomainService) RefreshStatus(ctx context.Context, tenantID, domainID uuid.UUID) (*domain.CustomDomain, error) {
	d, err := s.domains.GetByID(ctx, domainID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDomainNotFound
		}
		return nil, err
	}
	if d.TenantID == nil || *d.TenantID != tenantID {
		return nil, ErrDomainNotFound
	}

	verified, err := s.checkVerification(ctx, d.Domain)
	if err != nil {
		if errors.Is(err, provision.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrProviderUnavailable
		}
		// A definitive provider rejection is a provisioning failure.
		if d.State.CanTransition(domain.DomainError) {
			if uerr := s.domains.UpdateState(ctx, d.ID, domain.DomainError); uerr != nil {
				return nil, uerr
			}
			d.State = domain.DomainError
		}
		s.logger.Warn("domain verification rejected",
			zap.String("domain", d.Domain),
			zap.Error(err),
		)
		return d, nil
	}

	next := d.State
	switch {
	case verified && d.State != domain.DomainActive:
		// error -> active is not a legal shortcut; a failed domain needs
		// a fresh provisioning attempt, which re-enters at pending.
		if d.State.CanTransition(domain.DomainActive) {
			next = domain.DomainActive
		}
	case !verified && d.State == domain.DomainActive:
		// Revocation: a previously verified domain failed a later check.
		next = domain.DomainError
	}

	if next != d.State {
		if err := s.domains.UpdateState(ctx, d.ID, next); err != nil {
			return nil, err
		}
		s.logger.Info("domain state changed",
			zap.String("domain", d.Domain),
			zap.String("from", string(d.State)),
			zap.String("to", string(next)),
		)
		d.State = next
	}
	return d, nil
}

// checkVerification performs the provider read with a bounded timeout,
// retrying once on transient failure. Reads are the only retried calls;
// writes never are.
func (s *DomainService) checkVerification(ctx context.Context, hostname string) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	verified, err := s.provider.CheckVerification(callCtx, hostname)
	cancel()
	if err == nil || !errors.Is(err, provision.ErrUnavailable) {
		return verified, err
	}

	select {
	case <-time.After(refreshRetryDelay):
	case <-ctx.Done():
		return false, ctx.Err()
	}

	callCtx, cancel = context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	return s.provider.CheckVerification(callCtx, hostname)
}

// Remove deletes the domain. Deregistration with the provider is
// best-effort: the local record is the source of truth for routing, so
// local deletion proceeds even when the provider is unreachable.
func (s *DomainService) Remove(ctx context.Context, tenantID, actorID, domainID uuid.UUID) error {
	d, err := s.domains.GetByID(ctx, domainID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrDomainNotFound
		}
		return err
	}
	if d.TenantID == nil || *d.TenantID != tenantID {
		return ErrDomainNotFound
	}

	t, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTenantNotFound
		}
		return err
	}
	if !canManage(t.Role(actorID)) {
		return ErrStaffPermission
	}

	callCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	if err := s.provider.DeregisterDomain(callCtx, d.Domain); err != nil {
		s.logger.Warn("provider deregistration failed, deleting locally anyway",
			zap.String("domain", d.Domain),
			zap.Error(err),
		)
	}

	if err := s.domains.Delete(ctx, d.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if t.CustomDomainID != nil && *t.CustomDomainID == d.ID {
		t.CustomDomainID = nil
		if err := s.tenants.Update(ctx, t); err != nil {
			return err
		}
	}

	s.logger.Info("custom domain removed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("domain", d.Domain),
	)
	return nil
}

func (s *DomainService) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.CustomDomain, error) {
	return s.domains.ListByTenant(ctx, tenantID)
}

// Configured reports whether hostname is a registered custom domain,
// regardless of verification state.
func (s *DomainService) Configured(ctx context.Context, hostname string) (bool, error) {
	_, err := s.domains.GetByDomain(ctx, resolver.NormalizeHostname(hostname))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func validHostname(host string) bool {
	if host == "" || len(host) > 253 || !strings.Contains(host, ".") {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		for _, r := range label {
			if !(r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
				return false
			}
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
	}
	return true
}
