// Package client implements the session store over the HTTP session API,
// for POS terminals that do not talk to Postgres directly.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"horeca-pos/backend/internal/session/domain"
)

// StoreClient calls the session API. It satisfies the session store
// contract the co-browse feature binds to.
type StoreClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewStoreClient returns a client for the session API at baseURL
// (e.g. https://pos.example.com). token is sent as a Bearer token.
func NewStoreClient(baseURL, token string) *StoreClient {
	return &StoreClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Start starts a session for the tenant. The server derives tenant and
// operator from the token; the arguments are kept for the store contract.
func (c *StoreClient) Start(ctx context.Context, tenantID, operatorName string) (*domain.Session, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/sessions/start", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return nil, apiError("start session", resp)
	}
	var sess domain.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, fmt.Errorf("start session: decode: %w", err)
	}
	return &sess, nil
}

// End ends the session.
func (c *StoreClient) End(ctx context.Context, sessionID string) error {
	body, _ := json.Marshal(map[string]string{"sessionId": sessionID})
	resp, err := c.do(ctx, http.MethodPost, "/v1/sessions/end", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return apiError("end session", resp)
	}
	return nil
}

// Active returns the tenant's active session, or nil when there is none.
func (c *StoreClient) Active(ctx context.Context, tenantID string) (*domain.Session, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/sessions/active", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("active session", resp)
	}
	var sess domain.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, fmt.Errorf("active session: decode: %w", err)
	}
	return &sess, nil
}

func (c *StoreClient) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}

func apiError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: %s: %s", op, resp.Status, strings.TrimSpace(string(msg)))
}
