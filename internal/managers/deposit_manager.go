package managers

import (
	"context"
	"fmt"

	"github.com/boostpanel/boostpanel/internal/domain"
	"github.com/boostpanel/boostpanel/pkg/boostpanel"
)

type depositManager struct {
	client boostpanel.ClientInterface
}

type DepositManagerDependencies struct {
	Client boostpanel.ClientInterface
}

func NewDepositManager(deps DepositManagerDependencies) domain.DepositManager {
	return &depositManager{
		client: deps.Client,
	}
}

// Create registers a deposit and returns the payment processor authorization
// URL. The deposit itself stays pending until the processor redirects the
// user back and the confirmation workflow resolves it.
func (m *depositManager) Create(ctx context.Context, amount int64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("deposit amount must be positive")
	}

	resp, err := m.client.CreateDeposit(ctx, &boostpanel.CreateDepositRequest{Amount: amount})
	if err != nil {
		return "", fmt.Errorf("failed to create deposit: %w", err)
	}

	if resp.AuthorizationURL == "" {
		return "", fmt.Errorf("backend returned no authorization URL")
	}

	return resp.AuthorizationURL, nil
}
