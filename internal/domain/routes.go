package domain

import "context"

// RouteName identifies a terminal view the client can land on.
type RouteName string

const (
	RouteDashboard      RouteName = "dashboard"
	RouteDeposits       RouteName = "deposits"
	RouteDepositSuccess RouteName = "deposit/success"
	RouteDepositFailed  RouteName = "deposit/failed"
)

// Route is a navigation target with its query parameters.
type Route struct {
	Name   RouteName
	Params map[string]string
}

// Navigator routes the user to a view. Presentation is owned by the caller;
// workflows only decide where to go.
type Navigator interface {
	Navigate(ctx context.Context, route Route) error
}
