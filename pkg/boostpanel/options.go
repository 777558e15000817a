package boostpanel

import (
	"net/http"
	"time"
)

// ClientOption represents an option for configuring the Boostpanel client
type ClientOption func(*ClientConfig)

// ClientConfig holds the configuration for the Boostpanel client
type ClientConfig struct {
	BaseURL        string
	TokenProvider  TokenProvider
	Timeout        time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	DefaultHeaders map[string]string
	HTTPClient     *http.Client
	UserAgent      string
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:       "http://localhost:8000",
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    1 * time.Second,
		DefaultHeaders: map[string]string{
			"Content-Type": "application/json",
		},
		UserAgent: "boostpanel-go-sdk/1.0.0",
	}
}

// WithBaseURL sets the base URL for the Boostpanel API
func WithBaseURL(baseURL string) ClientOption {
	return func(c *ClientConfig) {
		c.BaseURL = baseURL
	}
}

// WithTokenProvider sets the source of the bearer access token
func WithTokenProvider(provider TokenProvider) ClientOption {
	return func(c *ClientConfig) {
		c.TokenProvider = provider
	}
}

// WithAccessToken sets a static bearer access token
func WithAccessToken(token string) ClientOption {
	return func(c *ClientConfig) {
		c.TokenProvider = StaticToken(token)
	}
}

// WithTimeout sets the request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithRetry sets the retry configuration
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.RetryAttempts = attempts
		c.RetryDelay = delay
	}
}

// WithHeader adds a default header to all requests
func WithHeader(key, value string) ClientOption {
	return func(c *ClientConfig) {
		if c.DefaultHeaders == nil {
			c.DefaultHeaders = make(map[string]string)
		}
		c.DefaultHeaders[key] = value
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *ClientConfig) {
		c.HTTPClient = httpClient
	}
}

// WithUserAgent sets a custom user agent
func WithUserAgent(userAgent string) ClientOption {
	return func(c *ClientConfig) {
		c.UserAgent = userAgent
	}
}
