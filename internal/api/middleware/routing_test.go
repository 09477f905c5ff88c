package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/qalileo/qalileo/internal/domain"
	"github.com/qalileo/qalileo/internal/resolver"
	"github.com/qalileo/qalileo/internal/store"
	"go.uber.org/zap"
)

const (
	testBase   = "qalileo.com"
	testSecret = "test-secret"
)

// mockTenantStore implements domain.TenantStore for testing.
type mockTenantStore struct {
	bySlug map[string]*domain.Tenant
}

func (m *mockTenantStore) Create(ctx context.Context, t *domain.Tenant) error {
	m.bySlug[t.Slug] = t
	return nil
}

func (m *mockTenantStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	for _, t := range m.bySlug {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockTenantStore) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	t, ok := m.bySlug[slug]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (m *mockTenantStore) Update(ctx context.Context, t *domain.Tenant) error {
	m.bySlug[t.Slug] = t
	return nil
}

// mockDomainStore implements domain.DomainStore for testing.
type mockDomainStore struct {
	byHost map[string]*domain.CustomDomain
}

func (m *mockDomainStore) Create(ctx context.Context, d *domain.CustomDomain) error {
	m.byHost[d.Domain] = d
	return nil
}

func (m *mockDomainStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomDomain, error) {
	for _, d := range m.byHost {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockDomainStore) GetByDomain(ctx context.Context, hostname string) (*domain.CustomDomain, error) {
	d, ok := m.byHost[hostname]
	if !ok {
		return nil, store.ErrNotFound
	}
	return d, nil
}

func (m *mockDomainStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.CustomDomain, error) {
	return nil, nil
}

func (m *mockDomainStore) UpdateState(ctx context.Context, id uuid.UUID, state domain.DomainState) error {
	return nil
}

func (m *mockDomainStore) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

type capture struct {
	called bool
	path   string
	route  *Route
}

func (c *capture) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.path = r.URL.Path
		c.route = RouteFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func setupRouting(t *testing.T) (*resolver.Resolver, *domain.Tenant, *domain.CustomDomain) {
	t.Helper()
	acme := &domain.Tenant{
		ID:   uuid.New(),
		Slug: "acme",
		Name: "Acme",
		Staff: []domain.StaffMember{
			{UserID: uuid.New(), Role: domain.RoleOwner},
		},
	}
	pendingDomain := &domain.CustomDomain{
		ID:       uuid.New(),
		Domain:   "docs.acme.io",
		TenantID: &acme.ID,
		State:    domain.DomainPending,
	}
	tenants := &mockTenantStore{bySlug: map[string]*domain.Tenant{"acme": acme}}
	domains := &mockDomainStore{byHost: map[string]*domain.CustomDomain{"docs.acme.io": pendingDomain}}
	return resolver.New(tenants, domains, testBase), acme, pendingDomain
}

func serve(t *testing.T, res *resolver.Resolver, req *http.Request, c *capture) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler := SessionAuth(testSecret)(TenantRouting(res, zap.NewNop())(c.handler()))
	handler.ServeHTTP(rec, req)
	return rec
}

func signSession(t *testing.T, userID, tenantID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       userID.String(),
		"tenant_id": tenantID.String(),
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestTenantRouting_PlatformHostPassThrough(t *testing.T) {
	res, _, _ := setupRouting(t)
	c := &capture{}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Host = testBase

	rec := serve(t, res, req, c)
	if rec.Code != http.StatusOK || !c.called {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
	if c.path != "/dashboard" {
		t.Errorf("platform host path mutated to %s", c.path)
	}
	if c.route == nil || !c.route.Resolution.PlatformHost {
		t.Error("expected platform host marker in context")
	}
}

func TestTenantRouting_SubdomainRewrite(t *testing.T) {
	res, acme, _ := setupRouting(t)
	c := &capture{}

	req := httptest.NewRequest(http.MethodGet, "/getting-started", nil)
	req.Host = "acme." + testBase

	rec := serve(t, res, req, c)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if c.path != "/acme/getting-started" {
		t.Errorf("expected rewritten path, got %s", c.path)
	}
	if c.route == nil {
		t.Fatal("expected route in context")
	}
	if c.route.Decision.Scope != resolver.ScopePublic || c.route.Decision.CanMutate {
		t.Errorf("expected read-only public scope, got %+v", c.route.Decision)
	}
	if c.route.Decision.TenantID != acme.ID {
		t.Errorf("wrong tenant: %s", c.route.Decision.TenantID)
	}
}

func TestTenantRouting_NoDoubleRewrite(t *testing.T) {
	res, _, _ := setupRouting(t)
	c := &capture{}

	// The path already structurally encodes the tenant.
	req := httptest.NewRequest(http.MethodGet, "/acme/getting-started", nil)
	req.Host = "acme." + testBase

	serve(t, res, req, c)
	if c.path != "/acme/getting-started" {
		t.Errorf("path double-rewritten to %s", c.path)
	}
}

func TestTenantRouting_UnknownHostRejected(t *testing.T) {
	res, _, _ := setupRouting(t)
	c := &capture{}

	req := httptest.NewRequest(http.MethodGet, "/getting-started", nil)
	req.Host = "unknown.example.com"

	rec := serve(t, res, req, c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if c.called {
		t.Error("handler must not run for unresolved hosts")
	}
}

func TestTenantRouting_UnverifiedDomainRejected(t *testing.T) {
	res, _, pending := setupRouting(t)
	c := &capture{}

	// The Domain record exists but provisioning has not completed, so the
	// request 404s instead of resolving (or falling through to the "docs"
	// slug).
	req := httptest.NewRequest(http.MethodGet, "/getting-started", nil)
	req.Host = pending.Domain

	rec := serve(t, res, req, c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if c.called {
		t.Error("handler must not run for unverified domains")
	}
}

func TestTenantRouting_StaffSessionOnPlatformHost(t *testing.T) {
	res, acme, _ := setupRouting(t)
	c := &capture{}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Host = testBase
	req.Header.Set("Authorization", "Bearer "+signSession(t, acme.Staff[0].UserID, acme.ID))

	rec := serve(t, res, req, c)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if c.route.Decision.Scope != resolver.ScopeStaff || !c.route.Decision.CanMutate {
		t.Fatalf("expected mutable staff scope, got %+v", c.route.Decision)
	}
	if c.route.Decision.TenantID != acme.ID {
		t.Errorf("wrong tenant: %s", c.route.Decision.TenantID)
	}
}

func TestTenantRouting_SessionOnPublicHostStaysPublic(t *testing.T) {
	res, acme, _ := setupRouting(t)
	c := &capture{}

	// Staff browsing their own public subdomain get the anonymous view.
	req := httptest.NewRequest(http.MethodGet, "/getting-started", nil)
	req.Host = "acme." + testBase
	req.Header.Set("Authorization", "Bearer "+signSession(t, acme.Staff[0].UserID, acme.ID))

	serve(t, res, req, c)
	if c.route.Decision.Scope != resolver.ScopePublic || c.route.Decision.CanMutate {
		t.Fatalf("expected read-only public scope, got %+v", c.route.Decision)
	}
}

func TestSessionAuth_InvalidToken(t *testing.T) {
	res, _, _ := setupRouting(t)
	c := &capture{}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Host = testBase
	req.Header.Set("Authorization", "Bearer not-a-token")

	rec := serve(t, res, req, c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if c.called {
		t.Error("handler must not run with an invalid token")
	}
}
