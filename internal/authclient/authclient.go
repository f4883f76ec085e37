// Package authclient calls the auth provider's session invalidation endpoint.
package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// ErrNotConfigured is returned when no revoke URL is set.
var ErrNotConfigured = errors.New("session revoke url not configured")

// RevokeResponse is the decoded body of a revoke call.
type RevokeResponse map[string]any

// Revoker invalidates a user's sessions with a bearer-authenticated POST.
type Revoker struct {
	url    string
	client *http.Client
}

// New returns a Revoker posting to url. A nil client uses a default with a timeout.
func New(url string, client *http.Client) *Revoker {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Revoker{url: strings.TrimSpace(url), client: client}
}

// Revoke posts to the endpoint with token as bearer credentials and returns
// the decoded response body.
func (r *Revoker) Revoke(ctx context.Context, token string) (RevokeResponse, error) {
	if r == nil || r.url == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("revoke session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("revoke session: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	out := RevokeResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode revoke response: %w", err)
	}
	return out, nil
}
