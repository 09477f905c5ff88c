package provision

import (
	"context"
	"encoding/json"
)

// MockProvider is a configurable provisioning provider for testing and
// local development. Set the response fields to control what each method
// returns.
type MockProvider struct {
	RegisterResponse json.RawMessage
	RegisterError    error
	DeregisterError  error
	VerifiedResponse bool
	VerifiedError    error

	// Call tracking for assertions
	RegisterCalls   []string
	DeregisterCalls []string
	VerifyCalls     []string
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		RegisterResponse: json.RawMessage(`{"name":"mock","verified":false}`),
	}
}

func (m *MockProvider) RegisterDomain(ctx context.Context, hostname string) (json.RawMessage, error) {
	m.RegisterCalls = append(m.RegisterCalls, hostname)
	if m.RegisterError != nil {
		return nil, m.RegisterError
	}
	return m.RegisterResponse, nil
}

func (m *MockProvider) DeregisterDomain(ctx context.Context, hostname string) error {
	m.DeregisterCalls = append(m.DeregisterCalls, hostname)
	return m.DeregisterError
}

func (m *MockProvider) CheckVerification(ctx context.Context, hostname string) (bool, error) {
	m.VerifyCalls = append(m.VerifyCalls, hostname)
	if m.VerifiedError != nil {
		return false, m.VerifiedError
	}
	return m.VerifiedResponse, nil
}

var _ Provider = (*MockProvider)(nil)
