// Package client is a typed wrapper around the registration approval API,
// used by operator tooling and test harnesses.
package client

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
)

// Status values carried on the wire. These literals are part of the API
// contract and must match the server exactly.
const (
	StatusPendingApproval = "pending_approval"
	StatusApproved        = "approved"
	StatusRejected        = "rejected"
)

// Registration is the wire form of a registration record.
type Registration struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	UserType        string    `json:"user_type"`
	Status          string    `json:"status"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	Name            string    `json:"name,omitempty"`
	Department      string    `json:"department,omitempty"`
	Year            string    `json:"year,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// Credentials is the login material returned exactly once, at approval.
// Exactly one of PRN or EmployeeID is set.
type Credentials struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	PRN        string `json:"prn,omitempty"`
	EmployeeID string `json:"employee_id,omitempty"`
}

// SubmitInput describes a registration submission.
type SubmitInput struct {
	Email      string `json:"email"`
	UserType   string `json:"user_type"`
	Name       string `json:"name,omitempty"`
	Department string `json:"department,omitempty"`
	Year       string `json:"year,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Config controls client behavior. There is no process-wide state; each
// Client carries its own configuration and HTTP client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	AdminToken   string
	HTTPClient   *http.Client
}

// Client wraps the registration API with typed operations.
type Client struct {
	cfg  Config
	http *http.Client
}

// New constructs a client, applying defaults for timeout and backoff.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// CheckStatus returns the most recent registration for the email, or
// (nil, nil) when none exists. Absence is a normal outcome, not an error.
func (c *Client) CheckStatus(ctx context.Context, email string) (*Registration, error) {
	var resp struct {
		Success bool          `json:"success"`
		Data    *Registration `json:"data"`
	}
	query := url.Values{"email": {email}}
	if err := c.get(ctx, "/api/check-pending-registration", query, false, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListPending returns all registrations in the admin view, newest first.
func (c *Client) ListPending(ctx context.Context) ([]Registration, error) {
	var resp struct {
		Success       bool           `json:"success"`
		Registrations []Registration `json:"registrations"`
	}
	if err := c.get(ctx, "/api/admin/pending-registrations", nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Registrations, nil
}

// Approve approves a pending registration and returns the issued
// credentials. The credentials are returned exactly once; callers must
// persist them.
func (c *Client) Approve(ctx context.Context, registrationID string) (*Credentials, error) {
	body := map[string]string{
		"registrationId": registrationID,
		"action":         "approve",
	}
	var resp struct {
		Success     bool         `json:"success"`
		Message     string       `json:"message"`
		Credentials *Credentials `json:"credentials"`
	}
	if err := c.post(ctx, "/api/admin/approve-registration", body, true, &resp); err != nil {
		return nil, err
	}
	return resp.Credentials, nil
}

// Reject rejects a pending registration with the given reason.
func (c *Client) Reject(ctx context.Context, registrationID, reason string) error {
	body := map[string]string{
		"registrationId":  registrationID,
		"action":          "reject",
		"rejectionReason": reason,
	}
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	return c.post(ctx, "/api/admin/approve-registration", body, true, &resp)
}

// Submit sends a registration for admin review and returns the record id.
func (c *Client) Submit(ctx context.Context, input SubmitInput) (string, error) {
	var resp struct {
		Success               bool   `json:"success"`
		PendingRegistrationID string `json:"pending_registration_id"`
	}
	if err := c.post(ctx, "/api/auth/register", input, false, &resp); err != nil {
		return "", err
	}
	return resp.PendingRegistrationID, nil
}

// FindAndApprove looks the registration up by email, verifies it is still
// pending, and approves it. The pending check runs just before the approve
// call so a concurrent decision surfaces as an attributable failure
// (ErrNotPending here, or the server's INVALID_STATE if the race lands in
// between) rather than a generic error.
func (c *Client) FindAndApprove(ctx context.Context, email string) (*Credentials, error) {
	reg, err := c.CheckStatus(ctx, email)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRegistration, email)
	}
	if reg.Status != StatusPendingApproval {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPending, reg.Status)
	}
	return c.Approve(ctx, reg.ID)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, authed bool, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return &TransportError{Op: "GET " + path, Err: ctx.Err()}
			case <-time.After(time.Duration(attempt) * c.cfg.RetryBackoff):
			}
		}
		lastErr = c.do(ctx, http.MethodGet, path, query, nil, authed, out)
		if !IsTransport(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// post never retries: a decision request that timed out may still have been
// applied, and a blind retry would only trade a TransportError for a
// misleading INVALID_STATE.
func (c *Client) post(ctx context.Context, path string, body any, authed bool, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, authed, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, authed bool, out any) error {
	op := method + " " + path

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed && c.cfg.AdminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AdminToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(payload, out); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("malformed response: %w", err)}
		}
		return nil
	}

	// Non-2xx: a structured business failure keeps its code; anything else
	// is a transport problem.
	var envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Error.Code != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
		}
	}
	return &TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
}
