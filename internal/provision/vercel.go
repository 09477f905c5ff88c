package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const vercelAPIBase = "https://api.vercel.com"

type VercelClient struct {
	token      string
	projectID  string
	baseURL    string
	httpClient *http.Client
}

func NewVercelClient(token, projectID string) *VercelClient {
	return &VercelClient{
		token:      token,
		projectID:  projectID,
		baseURL:    vercelAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewVercelClientWithBaseURL is used by tests to point the client at a
// local server.
func NewVercelClientWithBaseURL(token, projectID, baseURL string) *VercelClient {
	c := NewVercelClient(token, projectID)
	c.baseURL = baseURL
	return c
}

type addDomainRequest struct {
	Name string `json:"name"`
}

// vercelError is the only part of any response parsed beyond the
// verification flag.
type vercelError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *VercelClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal provisioner request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create provisioner request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read provisioner response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var ve vercelError
		if err := json.Unmarshal(respBody, &ve); err == nil && ve.Error != nil {
			return nil, fmt.Errorf("provisioner rejected request: %s", ve.Error.Message)
		}
		return nil, fmt.Errorf("provisioner returned status %d", resp.StatusCode)
	}
	return respBody, nil
}

func (c *VercelClient) RegisterDomain(ctx context.Context, hostname string) (json.RawMessage, error) {
	path := fmt.Sprintf("/v10/projects/%s/domains", url.PathEscape(c.projectID))
	respBody, err := c.do(ctx, http.MethodPost, path, addDomainRequest{Name: hostname})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(respBody), nil
}

func (c *VercelClient) DeregisterDomain(ctx context.Context, hostname string) error {
	path := fmt.Sprintf("/v9/projects/%s/domains/%s", url.PathEscape(c.projectID), url.PathEscape(hostname))
	_, err := c.do(ctx, http.MethodDelete, path, nil)
	return err
}

func (c *VercelClient) CheckVerification(ctx context.Context, hostname string) (bool, error) {
	path := fmt.Sprintf("/v9/projects/%s/domains/%s", url.PathEscape(c.projectID), url.PathEscape(hostname))
	respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return false, err
	}

	var status struct {
		Verified bool `json:"verified"`
	}
	if err := json.Unmarshal(respBody, &status); err != nil {
		return false, fmt.Errorf("unmarshal verification response: %w", err)
	}
	return status.Verified, nil
}

var _ Provider = (*VercelClient)(nil)
