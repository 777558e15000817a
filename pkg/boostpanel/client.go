package boostpanel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ClientInterface defines the main interface for interacting with the Boostpanel API
type ClientInterface interface {
	// Deposit operations
	GetDepositStatus(ctx context.Context, depositID string) (*DepositStatusResponse, error)
	MarkDepositFailed(ctx context.Context, depositID string) error
	CreateDeposit(ctx context.Context, req *CreateDepositRequest) (*CreateDepositResponse, error)

	// Virtual number operations
	ListNumberOfferings(ctx context.Context, service, country string) ([]NumberOffering, error)
	PurchaseNumber(ctx context.Context, req *PurchaseNumberRequest) (*PurchaseNumberResponse, error)
	GetActivationSMS(ctx context.Context, activationID string) (*ActivationSMSResponse, error)
}

// Client provides a high-level interface for interacting with the Boostpanel API
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new Boostpanel client with the given options
func NewClient(options ...ClientOption) *Client {
	config := DefaultConfig()

	for _, option := range options {
		option(config)
	}

	// Use provided HTTP client or create default one
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// GetDepositStatus retrieves the current status of a deposit
func (c *Client) GetDepositStatus(ctx context.Context, depositID string) (*DepositStatusResponse, error) {
	if depositID == "" {
		return nil, fmt.Errorf("deposit ID is required")
	}

	path := fmt.Sprintf("/api/deposit/status/%s/", depositID)

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit status: %w", err)
	}

	var result DepositStatusResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// MarkDepositFailed instructs the backend to force a deposit into the failed
// terminal state. Callers treat this as best-effort.
func (c *Client) MarkDepositFailed(ctx context.Context, depositID string) error {
	if depositID == "" {
		return fmt.Errorf("deposit ID is required")
	}

	path := fmt.Sprintf("/api/deposit/status/%s/", depositID)

	resp, err := c.doRequest(ctx, "POST", path, &MarkDepositFailedRequest{Status: "failed"})
	if err != nil {
		return fmt.Errorf("failed to mark deposit failed: %w", err)
	}

	if err := c.handleResponse(resp, nil); err != nil {
		return err
	}

	return nil
}

// CreateDeposit registers a new deposit and returns the payment processor
// authorization URL. The request carries an idempotency key so a retried
// create cannot double-charge.
func (c *Client) CreateDeposit(ctx context.Context, req *CreateDepositRequest) (*CreateDepositResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	headers := map[string]string{
		"X-Idempotency-Key": uuid.NewString(),
	}

	resp, err := c.doRequestWithHeaders(ctx, "POST", "/api/deposit/create/", req, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to create deposit: %w", err)
	}

	var result CreateDepositResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, err
	}

	if result.Error != "" {
		return nil, &Error{StatusCode: http.StatusBadRequest, Message: result.Error}
	}

	return &result, nil
}

// ListNumberOfferings retrieves the purchasable packages for a service and country
func (c *Client) ListNumberOfferings(ctx context.Context, service, country string) ([]NumberOffering, error) {
	if service == "" {
		return nil, fmt.Errorf("service is required")
	}
	if country == "" {
		return nil, fmt.Errorf("country is required")
	}

	query := url.Values{}
	query.Set("service", service)
	query.Set("country", country)
	path := "/api/virtualnumbers/services/?" + query.Encode()

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list number offerings: %w", err)
	}

	var result ListNumberOfferingsResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, err
	}

	if result.Error != "" {
		return nil, &Error{StatusCode: http.StatusBadRequest, Message: result.Error}
	}

	return result.Services, nil
}

// PurchaseNumber buys a virtual number for the given service and country
func (c *Client) PurchaseNumber(ctx context.Context, req *PurchaseNumberRequest) (*PurchaseNumberResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if req.Service == "" || req.Country == "" {
		return nil, fmt.Errorf("service and country are required")
	}

	resp, err := c.doRequest(ctx, "POST", "/api/virtualnumbers/purchase/", req)
	if err != nil {
		return nil, fmt.Errorf("failed to purchase number: %w", err)
	}

	var result PurchaseNumberResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, err
	}

	if result.Error != "" {
		return nil, &Error{StatusCode: http.StatusBadRequest, Message: result.Error}
	}

	return &result, nil
}

// GetActivationSMS retrieves the SMS for an activation, if one has arrived
func (c *Client) GetActivationSMS(ctx context.Context, activationID string) (*ActivationSMSResponse, error) {
	if activationID == "" {
		return nil, fmt.Errorf("activation ID is required")
	}

	path := fmt.Sprintf("/api/virtualnumbers/sms/%s/", activationID)

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get activation sms: %w", err)
	}

	var result ActivationSMSResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	return c.doRequestWithHeaders(ctx, method, path, body, nil)
}

func (c *Client) doRequestWithHeaders(ctx context.Context, method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	var bodyBytes []byte
	var requestBody io.Reader

	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		requestBody = bytes.NewBuffer(bodyBytes)
	}

	url := c.config.BaseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
			// Reset body reader for retry
			if bodyBytes != nil {
				requestBody = bytes.NewBuffer(bodyBytes)
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, requestBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		// Apply default headers
		for key, value := range c.config.DefaultHeaders {
			req.Header.Set(key, value)
		}

		// Apply custom headers
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		if c.config.UserAgent != "" {
			req.Header.Set("User-Agent", c.config.UserAgent)
		}

		// Attach the bearer token when a session is available
		if c.config.TokenProvider != nil {
			token, err := c.config.TokenProvider.AccessToken(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve access token: %w", err)
			}
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		// Check for server errors that might be retryable
		if resp.StatusCode >= 500 {
			log.Error().
				Int("status_code", resp.StatusCode).
				Str("path", path).
				Str("request_id", resp.Header.Get("X-Request-ID")).
				Msg("server error")

			resp.Body.Close()
			lastErr = &Error{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("server error: %d", resp.StatusCode),
			}
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.config.RetryAttempts, lastErr)
}

func (c *Client) handleResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errorResponse struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}

		// Try to parse error response
		message := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if json.Unmarshal(body, &errorResponse) == nil {
			switch {
			case errorResponse.Error != "":
				message = errorResponse.Error
			case errorResponse.Message != "":
				message = errorResponse.Message
			}
		}

		return &Error{
			StatusCode: resp.StatusCode,
			Message:    message,
			Body:       string(body),
			RequestID:  resp.Header.Get("X-Request-ID"),
		}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
