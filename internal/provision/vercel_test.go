package provision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVercelClient_RegisterDomain(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody addDomainRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name": "docs.acme.io", "apexName": "acme.io", "verified": false}`))
	}))
	defer srv.Close()

	client := NewVercelClientWithBaseURL("tok-123", "prj_1", srv.URL)
	cfg, err := client.RegisterDomain(context.Background(), "docs.acme.io")
	require.NoError(t, err)

	assert.Equal(t, "/v10/projects/prj_1/domains", gotPath)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "docs.acme.io", gotBody.Name)

	// The provider response is retained verbatim for later inspection.
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(cfg, &parsed))
	assert.Equal(t, "acme.io", parsed["apexName"])
}

func TestVercelClient_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewVercelClientWithBaseURL("tok", "prj", srv.URL)
	_, err := client.RegisterDomain(context.Background(), "docs.acme.io")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestVercelClient_TransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewVercelClientWithBaseURL("tok", "prj", srv.URL)
	_, err := client.RegisterDomain(context.Background(), "docs.acme.io")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestVercelClient_RejectionCarriesProviderMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error": {"code": "domain_taken", "message": "domain is already in use"}}`))
	}))
	defer srv.Close()

	client := NewVercelClientWithBaseURL("tok", "prj", srv.URL)
	_, err := client.RegisterDomain(context.Background(), "docs.acme.io")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "domain is already in use")
}

func TestVercelClient_CheckVerification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v9/projects/prj/domains/docs.acme.io", r.URL.Path)
		_, _ = w.Write([]byte(`{"name": "docs.acme.io", "verified": true, "misconfigured": false}`))
	}))
	defer srv.Close()

	client := NewVercelClientWithBaseURL("tok", "prj", srv.URL)
	verified, err := client.CheckVerification(context.Background(), "docs.acme.io")
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestVercelClient_DeregisterDomain(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewVercelClientWithBaseURL("tok", "prj", srv.URL)
	require.NoError(t, client.DeregisterDomain(context.Background(), "docs.acme.io"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/v9/projects/prj/domains/docs.acme.io", gotPath)
}

func TestNewProvider(t *testing.T) {
	t.Run("mock", func(t *testing.T) {
		p, err := NewProvider(ProviderMock, "", "")
		require.NoError(t, err)
		assert.IsType(t, &MockProvider{}, p)
	})

	t.Run("vercel requires credentials", func(t *testing.T) {
		_, err := NewProvider(ProviderVercel, "", "")
		require.Error(t, err)

		p, err := NewProvider(ProviderVercel, "tok", "prj")
		require.NoError(t, err)
		assert.IsType(t, &VercelClient{}, p)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewProvider("cloudflare", "", "")
		require.Error(t, err)
	})
}
