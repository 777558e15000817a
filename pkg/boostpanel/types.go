// Package boostpanel provides a Go SDK for the Boostpanel marketplace API.
// This package has no internal dependencies.
package boostpanel

import "context"

// TokenProvider supplies the bearer access token for authenticated requests.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider wrapping a fixed token string.
type StaticToken string

// AccessToken implements TokenProvider
func (t StaticToken) AccessToken(ctx context.Context) (string, error) {
	return string(t), nil
}

// DepositStatusResponse is the body of GET /api/deposit/status/{id}/.
// Amount and Balance are present once the deposit is paid.
type DepositStatusResponse struct {
	Status  string `json:"status"`
	Amount  int64  `json:"amount,omitempty"`
	Balance int64  `json:"balance,omitempty"`
}

// MarkDepositFailedRequest is the body of POST /api/deposit/status/{id}/
type MarkDepositFailedRequest struct {
	Status string `json:"status"`
}

// CreateDepositRequest is the body of POST /api/deposit/create/
type CreateDepositRequest struct {
	Amount int64 `json:"amount"`
}

// CreateDepositResponse carries the payment processor redirect
type CreateDepositResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	Error            string `json:"error,omitempty"`
}

// PurchaseNumberRequest is the body of POST /api/virtualnumbers/purchase/
type PurchaseNumberRequest struct {
	Service  string `json:"service"`
	Country  string `json:"country"`
	Duration string `json:"duration,omitempty"`
}

// PurchaseNumberResponse identifies the purchased number and its activation
type PurchaseNumberResponse struct {
	PhoneNumber  string `json:"phone_number"`
	ActivationID string `json:"activation_id"`
	Error        string `json:"error,omitempty"`
}

// ActivationSMSResponse is the body of GET /api/virtualnumbers/sms/{id}/.
// SMS is null until a message arrives.
type ActivationSMSResponse struct {
	SMS *string `json:"sms"`
}

// NumberOffering is one purchasable package in a services listing
type NumberOffering struct {
	Name            string  `json:"name"`
	Duration        string  `json:"duration"`
	Available       int     `json:"available"`
	BasePrice       float64 `json:"base_price"`
	PriceWithProfit float64 `json:"price_with_profit"`
	Currency        string  `json:"currency"`
	SuccessRate     int     `json:"success_rate"`
}

// ListNumberOfferingsResponse is the body of GET /api/virtualnumbers/services/
type ListNumberOfferingsResponse struct {
	Services []NumberOffering `json:"services"`
	Error    string           `json:"error,omitempty"`
}
