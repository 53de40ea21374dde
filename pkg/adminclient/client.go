// Package adminclient provides the Go client for the canopyd admin and
// status APIs. canopyctl is built on it; it is equally usable as a library.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Client talks to one canopyd instance.
type Client struct {
	base       string
	httpClient *http.Client

	// token state — guarded by mu
	mu          sync.Mutex
	adminSecret string
	bearerToken string
	tokenExpiry time.Time // zero = token was set manually (no auto-refresh)
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken attaches a pre-obtained admin token to every request. The token
// is treated as long-lived and will not be auto-refreshed.
func WithToken(token string) Option {
	return func(c *Client) {
		c.bearerToken = token
		c.tokenExpiry = time.Time{}
	}
}

// WithAdminSecret configures the admin secret. The client exchanges it for a
// session token on first use and refreshes automatically near expiry.
func WithAdminSecret(secret string) Option {
	return func(c *Client) { c.adminSecret = secret }
}

// New creates a Client connected to base, e.g. "http://localhost:8080".
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:       base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FetchToken exchanges the configured admin secret for a session token,
// caches it, and returns it.
func (c *Client) FetchToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchTokenLocked(ctx)
}

func (c *Client) fetchTokenLocked(ctx context.Context) (string, error) {
	if c.adminSecret == "" {
		return "", fmt.Errorf("no admin secret configured")
	}
	payload, _ := json.Marshal(map[string]string{"secret": c.adminSecret})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/api/v1/admin/token", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("token endpoint error %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	// Refresh 60 s before actual expiry to avoid clock-skew failures.
	const refreshBuffer = 60 * time.Second
	c.bearerToken = out.Token
	c.tokenExpiry = time.Now().Add(time.Duration(out.ExpiresIn)*time.Second - refreshBuffer)
	return out.Token, nil
}

// ensureToken returns a valid bearer token, fetching a new one if the cached
// token is absent or approaching expiry. Thread-safe.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bearerToken != "" && (c.tokenExpiry.IsZero() || time.Now().Before(c.tokenExpiry)) {
		return c.bearerToken, nil
	}
	return c.fetchTokenLocked(ctx)
}

// MessageResponse is the standard admin mutation reply.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResult is the reply of a certificate status query.
type StatusResult struct {
	Status    string     `json:"status"`
	CaID      int        `json:"ca_id,omitempty"`
	Reason    int        `json:"reason,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// ─── Public status API ───────────────────────────────────────────────────────

// ListIssuers returns the ids of the loaded issuers.
func (c *Client) ListIssuers(ctx context.Context) ([]int, error) {
	var out struct {
		IssuerIDs []int `json:"issuer_ids"`
	}
	if err := c.get(ctx, "/api/v1/issuers", false, &out); err != nil {
		return nil, err
	}
	return out.IssuerIDs, nil
}

// CertStatus queries the status of a certificate by issuer id and hex serial.
func (c *Client) CertStatus(ctx context.Context, caID int, serialHex string) (*StatusResult, error) {
	path := fmt.Sprintf("/api/v1/issuers/%d/cert/%s", caID, url.PathEscape(serialHex))
	var out StatusResult
	if err := c.get(ctx, path, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CertStatusByFingerprint queries by hex issuer fingerprint and hex serial.
func (c *Client) CertStatusByFingerprint(ctx context.Context, fpHex, serialHex string) (*StatusResult, error) {
	path := "/api/v1/status?fingerprint=" + url.QueryEscape(fpHex) +
		"&serial=" + url.QueryEscape(serialHex)
	var out StatusResult
	if err := c.get(ctx, path, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ─── Admin API ───────────────────────────────────────────────────────────────

// ListCas returns the configured CA names.
func (c *Client) ListCas(ctx context.Context) ([]string, error) {
	var out struct {
		Cas []string `json:"cas"`
	}
	if err := c.get(ctx, "/api/v1/admin/cas", true, &out); err != nil {
		return nil, err
	}
	return out.Cas, nil
}

// GetCa returns the raw JSON record of one CA.
func (c *Client) GetCa(ctx context.Context, name string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/api/v1/admin/cas/"+url.PathEscape(name), true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddCa creates a CA from an operator-surface request document.
func (c *Client) AddCa(ctx context.Context, spec any) (string, error) {
	return c.mutate(ctx, http.MethodPost, "/api/v1/admin/cas", spec)
}

// UpdateCa applies a partial update; the returned message lists the changed
// fields.
func (c *Client) UpdateCa(ctx context.Context, name string, changes any) (string, error) {
	return c.mutate(ctx, http.MethodPatch, "/api/v1/admin/cas/"+url.PathEscape(name), changes)
}

// RemoveCa deletes a CA and everything bound to it.
func (c *Client) RemoveCa(ctx context.Context, name string) (string, error) {
	return c.mutate(ctx, http.MethodDelete, "/api/v1/admin/cas/"+url.PathEscape(name), nil)
}

// RevokeCa marks a CA revoked with an RFC 5280 reason code.
func (c *Client) RevokeCa(ctx context.Context, name string, reason int) (string, error) {
	return c.mutate(ctx, http.MethodPost,
		"/api/v1/admin/cas/"+url.PathEscape(name)+"/revoke",
		map[string]int{"reason": reason})
}

// UnrevokeCa clears a CA's revocation state.
func (c *Client) UnrevokeCa(ctx context.Context, name string) (string, error) {
	return c.mutate(ctx, http.MethodPost,
		"/api/v1/admin/cas/"+url.PathEscape(name)+"/unrevoke", nil)
}

// AddAlias binds an alias to a CA id.
func (c *Client) AddAlias(ctx context.Context, alias string, caID int) (string, error) {
	return c.mutate(ctx, http.MethodPost, "/api/v1/admin/aliases",
		map[string]any{"name": alias, "ca_id": caID})
}

// RemoveAlias deletes an alias.
func (c *Client) RemoveAlias(ctx context.Context, alias string) (string, error) {
	return c.mutate(ctx, http.MethodDelete, "/api/v1/admin/aliases/"+url.PathEscape(alias), nil)
}

// ListNamed lists the names of one entity kind ("profiles", "requestors",
// "publishers", "users").
func (c *Client) ListNamed(ctx context.Context, kind string) ([]string, error) {
	var out map[string][]string
	if err := c.get(ctx, "/api/v1/admin/"+kind, true, &out); err != nil {
		return nil, err
	}
	for _, names := range out {
		return names, nil
	}
	return nil, nil
}

// GetNamed fetches one entity by kind and name as raw JSON.
func (c *Client) GetNamed(ctx context.Context, kind, name string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.get(ctx, "/api/v1/admin/"+kind+"/"+url.PathEscape(name), true, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddNamed creates one entity of the given kind.
func (c *Client) AddNamed(ctx context.Context, kind string, spec any) (string, error) {
	return c.mutate(ctx, http.MethodPost, "/api/v1/admin/"+kind, spec)
}

// RemoveNamed deletes one entity by kind and name.
func (c *Client) RemoveNamed(ctx context.Context, kind, name string) (string, error) {
	return c.mutate(ctx, http.MethodDelete, "/api/v1/admin/"+kind+"/"+url.PathEscape(name), nil)
}

// AddProfileToCa associates a certificate profile with a CA.
func (c *Client) AddProfileToCa(ctx context.Context, caName, profile string) (string, error) {
	return c.mutate(ctx, http.MethodPost,
		"/api/v1/admin/cas/"+url.PathEscape(caName)+"/profiles/"+url.PathEscape(profile), nil)
}

// RemoveProfileFromCa removes a profile association.
func (c *Client) RemoveProfileFromCa(ctx context.Context, caName, profile string) (string, error) {
	return c.mutate(ctx, http.MethodDelete,
		"/api/v1/admin/cas/"+url.PathEscape(caName)+"/profiles/"+url.PathEscape(profile), nil)
}

// AddPublisherToCa associates a publisher with a CA.
func (c *Client) AddPublisherToCa(ctx context.Context, caName, publisher string) (string, error) {
	return c.mutate(ctx, http.MethodPost,
		"/api/v1/admin/cas/"+url.PathEscape(caName)+"/publishers/"+url.PathEscape(publisher), nil)
}

// RemovePublisherFromCa removes a publisher association.
func (c *Client) RemovePublisherFromCa(ctx context.Context, caName, publisher string) (string, error) {
	return c.mutate(ctx, http.MethodDelete,
		"/api/v1/admin/cas/"+url.PathEscape(caName)+"/publishers/"+url.PathEscape(publisher), nil)
}

// AddRequestorToCa associates a requestor with a CA under a permission set.
func (c *Client) AddRequestorToCa(ctx context.Context, caName, requestor string, ra bool, permissions, profiles []string) (string, error) {
	return c.mutate(ctx, http.MethodPost,
		"/api/v1/admin/cas/"+url.PathEscape(caName)+"/requestors",
		map[string]any{
			"requestor":   requestor,
			"ra":          ra,
			"permissions": permissions,
			"profiles":    profiles,
		})
}

// RemoveRequestorFromCa removes a requestor association.
func (c *Client) RemoveRequestorFromCa(ctx context.Context, caName, requestor string) (string, error) {
	return c.mutate(ctx, http.MethodDelete,
		"/api/v1/admin/cas/"+url.PathEscape(caName)+"/requestors/"+url.PathEscape(requestor), nil)
}

// PortProgress is the per-table row count report of an export or import.
type PortProgress struct {
	Message  string         `json:"message"`
	Progress map[string]int `json:"progress"`
}

// Export writes the server's configuration to an archive directory on the
// server host.
func (c *Client) Export(ctx context.Context, dir string) (*PortProgress, error) {
	var out PortProgress
	err := c.post(ctx, "/api/v1/admin/export", map[string]string{"dir": dir}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Import applies an archive directory on the server host.
func (c *Client) Import(ctx context.Context, dir string, strict bool) (*PortProgress, error) {
	var out PortProgress
	err := c.post(ctx, "/api/v1/admin/import",
		map[string]any{"dir": dir, "strict": strict}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ─── HTTP plumbing ───────────────────────────────────────────────────────────

func (c *Client) mutate(ctx context.Context, method, path string, payload any) (string, error) {
	var out MessageResponse
	if err := c.doJSON(ctx, method, path, payload, true, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) get(ctx context.Context, path string, authed bool, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, authed, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, payload, true, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, authed bool, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if authed {
		token, err := c.ensureToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var envelope struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
			return fmt.Errorf("server error %d: %s", resp.StatusCode, envelope.Error)
		}
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
