package cli

import (
	"context"
	"fmt"

	"github.com/boostpanel/boostpanel/internal/domain"
)

// consoleNavigator renders terminal outcome views on stdout. It is the CLI's
// stand-in for the web client's routing layer.
type consoleNavigator struct{}

func (consoleNavigator) Navigate(ctx context.Context, route domain.Route) error {
	switch route.Name {
	case domain.RouteDepositSuccess:
		fmt.Println()
		fmt.Println("Payment successful!")
		fmt.Printf("You've credited your wallet with %s.\n", route.Params["amount"])
		fmt.Printf("Current wallet balance: %s\n", route.Params["balance"])

	case domain.RouteDepositFailed:
		fmt.Println()
		fmt.Println("Payment failed.")
		fmt.Printf("Deposit %s could not be confirmed. If you were charged, contact support.\n", route.Params["deposit_id"])

	case domain.RouteDashboard:
		fmt.Println()
		fmt.Println("No deposit to confirm; nothing to do.")

	case domain.RouteDeposits:
		fmt.Println()
		fmt.Println("Returning to deposits.")

	default:
		fmt.Printf("\n-> %s\n", route.Name)
	}

	return nil
}
