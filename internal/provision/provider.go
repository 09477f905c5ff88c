// Package provision talks to the external DNS/TLS provisioning provider.
// The provider's response shapes vary across API versions, so bodies are
// carried as opaque json.RawMessage; the only field this service ever
// interprets is the verification boolean.
package provision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnavailable wraps transport-level failures reaching the provider so
// callers can distinguish "provider down" from "provider said no".
var ErrUnavailable = errors.New("provisioning provider unavailable")

type Provider interface {
	// RegisterDomain adds hostname at the provider and returns whatever
	// configuration blob it responded with.
	RegisterDomain(ctx context.Context, hostname string) (json.RawMessage, error)
	// DeregisterDomain removes hostname at the provider.
	DeregisterDomain(ctx context.Context, hostname string) error
	// CheckVerification reports whether the provider has confirmed
	// DNS/TLS verification for hostname.
	CheckVerification(ctx context.Context, hostname string) (bool, error)
}

// Provider constants
const (
	ProviderVercel = "vercel"
	ProviderMock   = "mock"
)

// NewProvider creates a provisioning client based on the provider name.
func NewProvider(provider, token, projectID string) (Provider, error) {
	switch provider {
	case ProviderVercel:
		if token == "" {
			return nil, fmt.Errorf("PROVISIONER_TOKEN is required for the vercel provider")
		}
		if projectID == "" {
			return nil, fmt.Errorf("PROVISIONER_PROJECT_ID is required for the vercel provider")
		}
		return NewVercelClient(token, projectID), nil

	case ProviderMock:
		return NewMockProvider(), nil

	default:
		return nil, fmt.Errorf("unknown provisioning provider: %s", provider)
	}
}
