package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/l11223/kiro-ai-gateway/internal/models"
)

const defaultTimeout = 30 * time.Second

// Client talks to the gateway backend's management REST surface.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

// NewClient constructs a Client for the given base URL and management key.
func NewClient(baseURL, managementKey string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("remote: base URL is required")
	}
	u, errParse := url.Parse(baseURL)
	if errParse != nil {
		return nil, fmt.Errorf("remote: parse base URL: %w", errParse)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote: invalid base URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		key:     strings.TrimSpace(managementKey),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// doJSON performs one request and returns the response body. Non-2xx
// responses are reduced to descriptive errors carrying the backend's
// error text when present.
func (c *Client) doJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if c == nil || c.http == nil {
		return nil, fmt.Errorf("remote: client not initialized")
	}

	var body io.Reader
	if payload != nil {
		data, errMarshal := json.Marshal(payload)
		if errMarshal != nil {
			return nil, fmt.Errorf("remote: marshal request: %w", errMarshal)
		}
		body = bytes.NewReader(data)
	}

	req, errReq := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if errReq != nil {
		return nil, fmt.Errorf("remote: build request: %w", errReq)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, errDo := c.http.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("remote: %s %s: %w", method, path, errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	data, errRead := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if errRead != nil {
		return nil, fmt.Errorf("remote: read response: %w", errRead)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// errBody mirrors the backend's {"error": "..."} envelope.
		var errBody struct {
			Error string `json:"error"`
		}
		if errUnmarshal := json.Unmarshal(data, &errBody); errUnmarshal == nil && strings.TrimSpace(errBody.Error) != "" {
			return nil, fmt.Errorf("remote: %s %s: %s", method, path, errBody.Error)
		}
		return nil, fmt.Errorf("remote: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	return data, nil
}

// ListAccounts fetches all managed accounts in operator order.
func (c *Client) ListAccounts(ctx context.Context) ([]models.Account, error) {
	data, errDo := c.doJSON(ctx, http.MethodGet, "/v0/accounts", nil)
	if errDo != nil {
		return nil, errDo
	}
	var resp struct {
		Accounts []models.Account `json:"accounts"`
	}
	if errUnmarshal := json.Unmarshal(data, &resp); errUnmarshal != nil {
		return nil, fmt.Errorf("remote: decode accounts: %w", errUnmarshal)
	}
	return resp.Accounts, nil
}

// GetCurrentAccount fetches the active account, nil when none is selected.
func (c *Client) GetCurrentAccount(ctx context.Context) (*models.Account, error) {
	data, errDo := c.doJSON(ctx, http.MethodGet, "/v0/accounts/current", nil)
	if errDo != nil {
		return nil, errDo
	}
	var resp struct {
		Account *models.Account `json:"account"`
	}
	if errUnmarshal := json.Unmarshal(data, &resp); errUnmarshal != nil {
		return nil, fmt.Errorf("remote: decode current account: %w", errUnmarshal)
	}
	return resp.Account, nil
}

// AddAccount registers a new account from an email and refresh token.
func (c *Client) AddAccount(ctx context.Context, email, refreshToken string) error {
	payload := map[string]string{"email": email, "refresh_token": refreshToken}
	_, errDo := c.doJSON(ctx, http.MethodPost, "/v0/accounts", payload)
	return errDo
}

// DeleteAccount removes one account.
func (c *Client) DeleteAccount(ctx context.Context, id string) error {
	_, errDo := c.doJSON(ctx, http.MethodDelete, "/v0/accounts/"+url.PathEscape(id), nil)
	return errDo
}

// DeleteAccounts removes a batch of accounts.
func (c *Client) DeleteAccounts(ctx context.Context, ids []string) error {
	_, errDo := c.doJSON(ctx, http.MethodPost, "/v0/accounts/delete-batch", map[string][]string{"ids": ids})
	return errDo
}

// SwitchAccount makes the given account current.
func (c *Client) SwitchAccount(ctx context.Context, id string) error {
	_, errDo := c.doJSON(ctx, http.MethodPost, "/v0/accounts/"+url.PathEscape(id)+"/switch", nil)
	return errDo
}

// FetchAccountQuota refreshes one account's quota snapshot server-side.
func (c *Client) FetchAccountQuota(ctx context.Context, id string) error {
	_, errDo := c.doJSON(ctx, http.MethodPost, "/v0/accounts/"+url.PathEscape(id)+"/quota", nil)
	return errDo
}

// RefreshAllQuotas refreshes every account's quota and returns stats.
func (c *Client) RefreshAllQuotas(ctx context.Context) (models.RefreshStats, error) {
	data, errDo := c.doJSON(ctx, http.MethodPost, "/v0/quotas/refresh", nil)
	if errDo != nil {
		return models.RefreshStats{}, errDo
	}
	var stats models.RefreshStats
	if errUnmarshal := json.Unmarshal(data, &stats); errUnmarshal != nil {
		return models.RefreshStats{}, fmt.Errorf("remote: decode refresh stats: %w", errUnmarshal)
	}
	return stats, nil
}

// ReorderAccounts persists a new operator-controlled ordering.
func (c *Client) ReorderAccounts(ctx context.Context, ids []string) error {
	_, errDo := c.doJSON(ctx, http.MethodPost, "/v0/accounts/reorder", map[string][]string{"ids": ids})
	return errDo
}

// StartOAuthLogin begins an interactive OAuth flow on the backend.
func (c *Client) StartOAuthLogin(ctx context.Context) error {
	_, errDo := c.doJSON(ctx, http.MethodPost, "/v0/oauth/start", nil)
	return errDo
}

// CompleteOAuthLogin finalizes a pending OAuth flow.
func (c *Client) CompleteOAuthLogin(ctx context.Context) error {
	_, errDo := c.doJSON(ctx, http.MethodPost, "/v0/oauth/complete", nil)
	return errDo
}

// CancelOAuthLogin aborts a pending OAuth flow.
func (c *Client) CancelOAuthLogin(ctx context.Context) error {
	_, errDo := c.doJSON(ctx, http.MethodPost, "/v0/oauth/cancel", nil)
	return errDo
}

// ImportV1Accounts imports accounts from the legacy v1 layout.
func (c *Client) ImportV1Accounts(ctx context.Context) (models.ImportResult, error) {
	data, errDo := c.doJSON(ctx, http.MethodPost, "/v0/import/v1", nil)
	if errDo != nil {
		return models.ImportResult{}, errDo
	}
	var result models.ImportResult
	if errUnmarshal := json.Unmarshal(data, &result); errUnmarshal != nil {
		return models.ImportResult{}, fmt.Errorf("remote: decode import result: %w", errUnmarshal)
	}
	return result, nil
}

// ImportFromDB imports the account found in the editor's default database.
func (c *Client) ImportFromDB(ctx context.Context) (*models.Account, error) {
	return c.importAccount(ctx, "/v0/import/db", nil)
}

// ImportFromCustomDB imports the account found in a database at path.
func (c *Client) ImportFromCustomDB(ctx context.Context, path string) (*models.Account, error) {
	return c.importAccount(ctx, "/v0/import/custom-db", map[string]string{"path": path})
}

// SyncAccountFromDB re-reads the external database and returns the account
// it now holds, nil when nothing changed.
func (c *Client) SyncAccountFromDB(ctx context.Context) (*models.Account, error) {
	return c.importAccount(ctx, "/v0/import/sync", nil)
}

func (c *Client) importAccount(ctx context.Context, path string, payload any) (*models.Account, error) {
	data, errDo := c.doJSON(ctx, http.MethodPost, path, payload)
	if errDo != nil {
		return nil, errDo
	}
	var resp struct {
		Account *models.Account `json:"account"`
	}
	if errUnmarshal := json.Unmarshal(data, &resp); errUnmarshal != nil {
		return nil, fmt.Errorf("remote: decode import response: %w", errUnmarshal)
	}
	return resp.Account, nil
}

// ToggleProxyStatus enables or disables an account for proxy rotation.
func (c *Client) ToggleProxyStatus(ctx context.Context, id string, enable bool, reason string) error {
	payload := map[string]any{"enable": enable}
	if strings.TrimSpace(reason) != "" {
		payload["reason"] = reason
	}
	_, errDo := c.doJSON(ctx, http.MethodPost, "/v0/accounts/"+url.PathEscape(id)+"/proxy", payload)
	return errDo
}

// UpdateAccountLabel sets the operator label on one account.
func (c *Client) UpdateAccountLabel(ctx context.Context, id, label string) error {
	payload := map[string]string{"label": label}
	_, errDo := c.doJSON(ctx, http.MethodPatch, "/v0/accounts/"+url.PathEscape(id)+"/label", payload)
	return errDo
}

// WarmUpAllAccounts triggers model warmup for every eligible account.
func (c *Client) WarmUpAllAccounts(ctx context.Context) (string, error) {
	return c.warmUp(ctx, "/v0/warmup")
}

// WarmUpAccount triggers model warmup for one account.
func (c *Client) WarmUpAccount(ctx context.Context, id string) (string, error) {
	return c.warmUp(ctx, "/v0/accounts/"+url.PathEscape(id)+"/warmup")
}

func (c *Client) warmUp(ctx context.Context, path string) (string, error) {
	data, errDo := c.doJSON(ctx, http.MethodPost, path, nil)
	if errDo != nil {
		return "", errDo
	}
	var resp struct {
		Result string `json:"result"`
	}
	if errUnmarshal := json.Unmarshal(data, &resp); errUnmarshal != nil {
		return "", fmt.Errorf("remote: decode warmup result: %w", errUnmarshal)
	}
	return resp.Result, nil
}

// ExportAccounts returns email/refresh-token pairs for backup.
func (c *Client) ExportAccounts(ctx context.Context, ids []string) ([]models.ExportedAccount, error) {
	data, errDo := c.doJSON(ctx, http.MethodPost, "/v0/accounts/export", map[string][]string{"ids": ids})
	if errDo != nil {
		return nil, errDo
	}
	var resp struct {
		Accounts []models.ExportedAccount `json:"accounts"`
	}
	if errUnmarshal := json.Unmarshal(data, &resp); errUnmarshal != nil {
		return nil, fmt.Errorf("remote: decode export response: %w", errUnmarshal)
	}
	return resp.Accounts, nil
}

// Ensure Client implements Service.
var _ Service = (*Client)(nil)
