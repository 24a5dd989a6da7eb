// Package authclient consumes the external identity platform's HTTP API.
// Accounts, credentials, and sessions live on the platform; this service
// only resolves tokens to users and lists accounts for the admin view.
package authclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"manzil/pkg/domain"
)

// Client calls the identity platform over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents an identity platform error response. Its message
// is surfaced to the user verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient constructs an identity platform client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Me resolves an access token to the authoritative user record.
func (c *Client) Me(token string) (domain.User, error) {
	var user domain.User
	if err := c.doJSON(http.MethodGet, "/auth/me", token, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// ListUsers returns every platform account. Requires an admin token on
// the platform side.
func (c *Client) ListUsers(token string) ([]domain.User, error) {
	var resp struct {
		Items []domain.User `json:"items"`
		Count int           `json:"count"`
	}
	if err := c.doJSON(http.MethodGet, "/auth/admin/users", token, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) doJSON(method, path, token string, out any) error {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity platform unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
