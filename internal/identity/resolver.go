package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrLookupFailed = errors.New("identity lookup failed")

// Resolver maps an authenticated token to the user id the identity provider knows it by.
type Resolver interface {
	ResolveUser(ctx context.Context, token string) (string, error)
}

// HTTPResolver asks the identity provider's REST API who owns a token.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

// NewHTTPResolver builds a resolver for baseURL. A nil client gets a 10s timeout client.
func NewHTTPResolver(baseURL string, client *http.Client) *HTTPResolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPResolver{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type meResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ResolveUser calls GET /users/me with the token.
func (r *HTTPResolver) ResolveUser(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/users/me", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: provider rejected token", ErrInvalidToken)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: provider returned %d", ErrLookupFailed, resp.StatusCode)
	}

	var body meResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrLookupFailed, err)
	}
	if strings.TrimSpace(body.Data.ID) == "" {
		return "", fmt.Errorf("%w: empty user id", ErrLookupFailed)
	}
	return body.Data.ID, nil
}

// Ping checks that the provider answers at all.
func (r *HTTPResolver) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("identity provider unhealthy: %d", resp.StatusCode)
	}
	return nil
}
