package cli

import (
	"fmt"

	"github.com/boostpanel/boostpanel/internal/auth"
	"github.com/boostpanel/boostpanel/internal/config"
	"github.com/boostpanel/boostpanel/pkg/boostpanel"

	"github.com/spf13/cobra"
)

// container wires the pieces every command needs.
type container struct {
	config  *config.Config
	session *auth.SessionStore
	client  *boostpanel.Client
}

func newContainer(cmd *cobra.Command) (*container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if apiURL, _ := cmd.Flags().GetString("api-url"); apiURL != "" {
		cfg.APIBaseURL = apiURL
	}

	session := auth.NewSessionStore()
	if cfg.AccessToken != "" {
		if err := session.SetToken(cfg.AccessToken); err != nil {
			return nil, fmt.Errorf("stored access token is unusable: %w", err)
		}
	}

	client := boostpanel.NewClient(
		boostpanel.WithBaseURL(cfg.APIBaseURL),
		boostpanel.WithTokenProvider(session),
	)

	return &container{
		config:  cfg,
		session: session,
		client:  client,
	}, nil
}

func (c *container) requireSession() error {
	if !c.session.Active() {
		return fmt.Errorf("no active session; run 'boostctl login' first")
	}
	return nil
}
