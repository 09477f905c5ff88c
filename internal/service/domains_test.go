package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/qalileo/qalileo/internal/domain"
	"github.com/qalileo/qalileo/internal/provision"
	"github.com/qalileo/qalileo/internal/store"
	"go.uber.org/zap"
)

// mockDomainStore implements domain.DomainStore for testing.
type mockDomainStore struct {
	domains map[uuid.UUID]*domain.CustomDomain
}

func newMockDomainStore() *mockDomainStore {
	return &mockDomainStore{domains: make(map[uuid.UUID]*domain.CustomDomain)}
}

func (m *mockDomainStore) Create(ctx context.Context, d *domain.CustomDomain) error {
	for _, existing := range m.domains {
		if existing.Domain == d.Domain {
			return store.ErrConflict
		}
	}
	d.ID = uuid.New()
	cp := *d
	m.domains[d.ID] = &cp
	return nil
}

func (m *mockDomainStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomDomain, error) {
	d, ok := m.domains[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockDomainStore) GetByDomain(ctx context.Context, hostname string) (*domain.CustomDomain, error) {
	for id, d := range m.domains {
		if d.Domain == hostname {
			return m.GetByID(ctx, id)
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockDomainStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.CustomDomain, error) {
	var out []domain.CustomDomain
	for _, d := range m.domains {
		if d.TenantID != nil && *d.TenantID == tenantID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDomainStore) UpdateState(ctx context.Context, id uuid.UUID, state domain.DomainState) error {
	d, ok := m.domains[id]
	if !ok {
		return store.ErrNotFound
	}
	d.State = state
	return nil
}

func (m *mockDomainStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.domains[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.domains, id)
	return nil
}

func setupDomainTest(t *testing.T) (*DomainService, *TenantService, *mockDomainStore, *provision.MockProvider, *domain.Tenant, uuid.UUID) {
	t.Helper()
	tenants := newMockTenantStore()
	domains := newMockDomainStore()
	provider := provision.NewMockProvider()
	logger := zap.NewNop()

	tenantSvc := NewTenantService(tenants, logger)
	svc := NewDomainService(domains, tenants, provider, "qalileo.com", logger)

	owner := uuid.New()
	tenant, err := tenantSvc.Create(context.Background(), "Acme", "acme", owner)
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return svc, tenantSvc, domains, provider, tenant, owner
}

func TestDomainService_Register(t *testing.T) {
	svc, tenantSvc, _, provider, tenant, owner := setupDomainTest(t)
	ctx := context.Background()

	provider.RegisterResponse = json.RawMessage(`{"name":"docs.acme.io","apexName":"acme.io","verified":false}`)

	d, err := svc.Register(ctx, tenant.ID, owner, "Docs.Acme.IO")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.Domain != "docs.acme.io" {
		t.Errorf("expected normalized hostname, got %s", d.Domain)
	}
	if d.State != domain.DomainPending {
		t.Errorf("expected pending state, got %s", d.State)
	}
	if len(d.ProviderConfig) == 0 {
		t.Error("expected provider config to be stored")
	}
	if len(provider.RegisterCalls) != 1 || provider.RegisterCalls[0] != "docs.acme.io" {
		t.Errorf("unexpected provider calls: %v", provider.RegisterCalls)
	}

	updated, err := tenantSvc.GetByID(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("get tenant: %v", err)
	}
	if updated.CustomDomainID == nil || *updated.CustomDomainID != d.ID {
		t.Error("expected tenant to reference the new domain")
	}
}

func TestDomainService_RegisterDuplicate(t *testing.T) {
	svc, tenantSvc, _, _, tenant, owner := setupDomainTest(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, tenant.ID, owner, "docs.acme.io"); err != nil {
		t.Fatalf("first register: %v", err)
	}

	other := uuid.New()
	globex, err := tenantSvc.Create(ctx, "Globex", "globex", other)
	if err != nil {
		t.Fatalf("create globex: %v", err)
	}
	if _, err := svc.Register(ctx, globex.ID, other, "docs.acme.io"); err != ErrDomainTaken {
		t.Fatalf("expected ErrDomainTaken, got %v", err)
	}
}

func TestDomainService_RegisterFailsClosedWhenProviderDown(t *testing.T) {
	svc, _, domains, provider, tenant, owner := setupDomainTest(t)

	provider.RegisterError = provision.ErrUnavailable

	if _, err := svc.Register(context.Background(), tenant.ID, owner, "docs.acme.io"); err != ErrProviderUnavailable {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if len(domains.domains) != 0 {
		t.Error("expected no orphan pending record")
	}
}

func TestDomainService_RegisterRollsBackOnTenantUpdateFailure(t *testing.T) {
	tenants := newMockTenantStore()
	domains := newMockDomainStore()
	provider := provision.NewMockProvider()
	logger := zap.NewNop()

	tenantSvc := NewTenantService(tenants, logger)
	svc := NewDomainService(domains, tenants, provider, "qalileo.com", logger)

	ctx := context.Background()
	owner := uuid.New()
	tenant, err := tenantSvc.Create(ctx, "Acme", "acme", owner)
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	// If the tenant row cannot record the back-reference, the domain row
	// must not survive: an orphan would keep the hostname claimed forever.
	tenants.updateErr = errors.New("connection reset")
	if _, err := svc.Register(ctx, tenant.ID, owner, "docs.acme.io"); err == nil {
		t.Fatal("expected register to fail")
	}
	if len(domains.domains) != 0 {
		t.Error("expected the half-created domain record rolled back")
	}

	tenants.updateErr = nil
	if _, err := svc.Register(ctx, tenant.ID, owner, "docs.acme.io"); err != nil {
		t.Fatalf("expected retry after recovery to succeed, got %v", err)
	}
}

func TestDomainService_RegisterGuards(t *testing.T) {
	svc, _, _, _, tenant, owner := setupDomainTest(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, tenant.ID, owner, "not-a-domain"); err != ErrDomainInvalid {
		t.Fatalf("expected ErrDomainInvalid, got %v", err)
	}
	if _, err := svc.Register(ctx, tenant.ID, owner, "evil.qalileo.com"); err != ErrDomainReserved {
		t.Fatalf("expected ErrDomainReserved, got %v", err)
	}
	if _, err := svc.Register(ctx, tenant.ID, uuid.New(), "docs.acme.io"); err != ErrStaffPermission {
		t.Fatalf("expected ErrStaffPermission, got %v", err)
	}

	if _, err := svc.Register(ctx, tenant.ID, owner, "docs.acme.io"); err != nil {
		t.Fatalf("register: %v", err)
	}
	// At most one active custom domain per tenant.
	if _, err := svc.Register(ctx, tenant.ID, owner, "help.acme.io"); err != ErrTenantHasDomain {
		t.Fatalf("expected ErrTenantHasDomain, got %v", err)
	}
}

func TestDomainService_RefreshStatusActivates(t *testing.T) {
	svc, _, _, provider, tenant, owner := setupDomainTest(t)
	ctx := context.Background()

	d, err := svc.Register(ctx, tenant.ID, owner, "docs.acme.io")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	provider.VerifiedResponse = true
	refreshed, err := svc.RefreshStatus(ctx, tenant.ID, d.ID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.State != domain.DomainActive {
		t.Fatalf("expected active, got %s", refreshed.State)
	}

	// Idempotent: a second refresh with no provider-side change yields
	// the same state.
	again, err := svc.RefreshStatus(ctx, tenant.ID, d.ID)
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if again.State != refreshed.State {
		t.Errorf("refresh not idempotent: %s then %s", refreshed.State, again.State)
	}
}

func TestDomainService_RefreshStatusRevocation(t *testing.T) {
	svc, _, _, provider, tenant, owner := setupDomainTest(t)
	ctx := context.Background()

	d, _ := svc.Register(ctx, tenant.ID, owner, "docs.acme.io")
	provider.VerifiedResponse = true
	if _, err := svc.RefreshStatus(ctx, tenant.ID, d.ID); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// A later failed verification revokes the domain.
	provider.VerifiedResponse = false
	refreshed, err := svc.RefreshStatus(ctx, tenant.ID, d.ID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.State != domain.DomainError {
		t.Fatalf("expected error state, got %s", refreshed.State)
	}

	// No error -> active shortcut even if the provider verifies again; a
	// new provisioning attempt is required.
	provider.VerifiedResponse = true
	refreshed, err = svc.RefreshStatus(ctx, tenant.ID, d.ID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.State != domain.DomainError {
		t.Fatalf("expected error state to stick, got %s", refreshed.State)
	}
}

func TestDomainService_RefreshStatusRetriesOnce(t *testing.T) {
	svc, _, _, provider, tenant, owner := setupDomainTest(t)
	ctx := context.Background()

	d, _ := svc.Register(ctx, tenant.ID, owner, "docs.acme.io")

	provider.VerifiedError = provision.ErrUnavailable
	if _, err := svc.RefreshStatus(ctx, tenant.ID, d.ID); err != ErrProviderUnavailable {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if len(provider.VerifyCalls) != 2 {
		t.Errorf("expected exactly one retry, got %d calls", len(provider.VerifyCalls))
	}
}

func TestDomainService_RefreshStatusWrongTenant(t *testing.T) {
	svc, tenantSvc, domains, provider, tenant, owner := setupDomainTest(t)
	ctx := context.Background()

	d, _ := svc.Register(ctx, tenant.ID, owner, "docs.acme.io")

	// Another tenant's staff must not be able to read the record or drive
	// its state through a guessed domain ID.
	other := uuid.New()
	globex, _ := tenantSvc.Create(ctx, "Globex", "globex", other)
	provider.VerifiedResponse = true

	if _, err := svc.RefreshStatus(ctx, globex.ID, d.ID); err != ErrDomainNotFound {
		t.Fatalf("expected ErrDomainNotFound, got %v", err)
	}
	if len(provider.VerifyCalls) != 0 {
		t.Error("provider must not be queried for a foreign domain")
	}
	stored, _ := domains.GetByID(ctx, d.ID)
	if stored.State != domain.DomainPending {
		t.Errorf("foreign refresh advanced state to %s", stored.State)
	}
}

func TestDomainService_RemoveProceedsWhenProviderDown(t *testing.T) {
	svc, tenantSvc, domains, provider, tenant, owner := setupDomainTest(t)
	ctx := context.Background()

	d, _ := svc.Register(ctx, tenant.ID, owner, "docs.acme.io")

	// The provider being unreachable must not block local deletion: the
	// local record is the source of truth for routing.
	provider.DeregisterError = provision.ErrUnavailable
	if err := svc.Remove(ctx, tenant.ID, owner, d.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(domains.domains) != 0 {
		t.Error("expected local record deleted")
	}

	updated, _ := tenantSvc.GetByID(ctx, tenant.ID)
	if updated.CustomDomainID != nil {
		t.Error("expected tenant's custom domain reference cleared")
	}
}

func TestDomainService_RemoveWrongTenant(t *testing.T) {
	svc, tenantSvc, _, _, tenant, owner := setupDomainTest(t)
	ctx := context.Background()

	d, _ := svc.Register(ctx, tenant.ID, owner, "docs.acme.io")

	other := uuid.New()
	globex, _ := tenantSvc.Create(ctx, "Globex", "globex", other)
	if err := svc.Remove(ctx, globex.ID, other, d.ID); err != ErrDomainNotFound {
		t.Fatalf("expected ErrDomainNotFound, got %v", err)
	}
}

func TestDomainService_Configured(t *testing.T) {
	svc, _, _, _, tenant, owner := setupDomainTest(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, tenant.ID, owner, "docs.acme.io"); err != nil {
		t.Fatalf("register: %v", err)
	}

	ok, err := svc.Configured(ctx, "docs.acme.io")
	if err != nil || !ok {
		t.Fatalf("expected configured, got %v %v", ok, err)
	}
	ok, err = svc.Configured(ctx, "unknown.example.com")
	if err != nil || ok {
		t.Fatalf("expected not configured, got %v %v", ok, err)
	}
}
