// Package identity integrates the external identity and role service. The
// service is the single source of truth for roles; this package never
// re-derives them.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/docledger/document-registry-backend/interfaces"
)

// Client implements interfaces.IdentityProvider against a GoTrue-compatible
// identity REST API (the kind of service hosted identity platforms expose).
type Client struct {
	// BaseURL is the identity service's base URL.
	BaseURL string

	// APIKey is sent as the apikey header on every request.
	APIKey string

	// HTTPClient defaults to a client with a 15s timeout.
	HTTPClient *http.Client

	mu          sync.Mutex
	subscribers []authSubscription
	nextSubID   int
}

type authSubscription struct {
	id int
	cb func(*interfaces.User)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

type tokenResponse struct {
	AccessToken string   `json:"access_token"`
	User        userBody `json:"user"`
}

type userBody struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	AppMetadata map[string]any `json:"app_metadata"`
}

func (u userBody) toUser() *interfaces.User {
	role, _ := u.AppMetadata["role"].(string)
	return &interfaces.User{ID: u.ID, Email: u.Email, Role: role}
}

// SignIn authenticates with email and password and returns the session
// token and the user.
func (c *Client) SignIn(ctx context.Context, email, password string) (string, *interfaces.User, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/token?grant_type=password", c.BaseURL), bytes.NewReader(body))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAPIKey(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("could not reach identity service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		return "", nil, fmt.Errorf("%w: invalid credentials", interfaces.ErrNotAuthenticated)
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, unexpectedStatus("sign-in", resp)
	}

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", nil, fmt.Errorf("could not parse sign-in response: %w", err)
	}

	user := parsed.User.toUser()
	c.notify(user)
	return parsed.AccessToken, user, nil
}

// SignOut invalidates the session token.
func (c *Client) SignOut(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	c.setAPIKey(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("could not reach identity service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return unexpectedStatus("sign-out", resp)
	}

	c.notify(nil)
	return nil
}

// SessionUser resolves the user behind a session token.
func (c *Client) SessionUser(ctx context.Context, token string) (*interfaces.User, error) {
	if token == "" {
		return nil, interfaces.ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	c.setAPIKey(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach identity service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: session is invalid or expired", interfaces.ErrNotAuthenticated)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus("session lookup", resp)
	}

	var parsed userBody
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("could not parse user response: %w", err)
	}
	return parsed.toUser(), nil
}

// OnAuthChange registers for sign-in/sign-out notifications observed through
// this client. The returned function unsubscribes.
func (c *Client) OnAuthChange(cb func(*interfaces.User)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers = append(c.subscribers, authSubscription{id: id, cb: cb})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		for i, sub := range c.subscribers {
			if sub.id == id {
				c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
	}
}

// RoleOf returns the user's role string. Roles are opaque; only
// interfaces.RoleAdmin carries privileges.
func (c *Client) RoleOf(user *interfaces.User) string {
	if user == nil {
		return ""
	}
	return user.Role
}

func (c *Client) notify(user *interfaces.User) {
	c.mu.Lock()
	subs := make([]authSubscription, len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.cb(user)
	}
}

func (c *Client) setAPIKey(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("apikey", c.APIKey)
	}
}

func unexpectedStatus(op string, resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(body) == 0 {
		return fmt.Errorf("%s returned unexpected status %d", op, resp.StatusCode)
	}
	return fmt.Errorf("%s returned status %d: %s", op, resp.StatusCode, string(body))
}
