package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/acompana/portal/internal/identity"
	"github.com/acompana/portal/internal/log"
)

// Client talks to the remote authentication service. The service is the
// sole authority on credentials; the client performs a single
// request/response per verification with no retries.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	logger *log.Logger
}

// NewClient creates an authentication client for the given base URL.
func NewClient(baseURL string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With("component", "authapi"),
	}
}

// RejectedError means the service refused the credentials. The reason is
// a human-readable string meant to be shown to the user as-is.
type RejectedError struct {
	Reason string
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	return e.Reason
}

// IsRejected checks whether an error is a credential rejection, as
// opposed to a transport or service failure.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

type verifyPINRequest struct {
	PIN        string `json:"pin"`
	Name       string `json:"name"`
	LocalityID string `json:"localityId,omitempty"`
}

type verifyCredentialsRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	LocalityID string `json:"localityId,omitempty"`
}

// errorResponse is the service's rejection body.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// VerifyPIN asks the service to verify an elderly user's name and PIN.
// Returns the authenticated identity, a RejectedError when the service
// turns the credentials down, or a generic error on transport failure.
func (c *Client) VerifyPIN(ctx context.Context, pin, name, localityID string) (*identity.Identity, error) {
	req := verifyPINRequest{PIN: pin, Name: name, LocalityID: localityID}
	id, err := c.verify(ctx, "/api/v1/auth/verify-pin", req)
	if err != nil {
		c.logger.WithError(err).Debug("pin verification failed")
		return nil, err
	}
	return id, nil
}

// VerifyCredentials asks the service to verify a family member's or
// professional's username and password.
func (c *Client) VerifyCredentials(ctx context.Context, username, password, localityID string) (*identity.Identity, error) {
	req := verifyCredentialsRequest{Username: username, Password: password, LocalityID: localityID}
	id, err := c.verify(ctx, "/api/v1/auth/verify-credentials", req)
	if err != nil {
		c.logger.WithError(err).Debug("credential verification failed")
		return nil, err
	}
	return id, nil
}

func (c *Client) verify(ctx context.Context, path string, body any) (*identity.Identity, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, &RejectedError{Reason: rejectionReason(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("authentication service returned status %d", resp.StatusCode)
	}

	var id identity.Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	return &id, nil
}

// rejectionReason extracts the human-readable reason from a 4xx body,
// falling back to a generic message when the body is not usable.
func rejectionReason(body io.Reader) string {
	data, _ := io.ReadAll(body)

	var errResp errorResponse
	if err := json.Unmarshal(data, &errResp); err == nil {
		if errResp.Error != "" {
			return errResp.Error
		}
		if errResp.Message != "" {
			return errResp.Message
		}
	}
	return "verification rejected"
}
