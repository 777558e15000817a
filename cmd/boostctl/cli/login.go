package cli

import (
	"fmt"

	"github.com/boostpanel/boostpanel/internal/config"

	"github.com/spf13/cobra"
)

func NewLoginCommand() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token for the marketplace API",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(cmd)
			if err != nil {
				return err
			}

			if err := c.session.SetToken(token); err != nil {
				return fmt.Errorf("invalid token: %w", err)
			}

			c.config.AccessToken = token
			if err := config.Save(c.config); err != nil {
				return err
			}

			if expiry, ok := c.session.ExpiresAt(); ok {
				fmt.Printf("Logged in. Session expires %s.\n", expiry.Format("2006-01-02 15:04:05"))
			} else {
				fmt.Println("Logged in.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Access token issued by the backend")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(cmd)
			if err != nil {
				return err
			}

			c.session.Clear()
			c.config.AccessToken = ""
			if err := config.Save(c.config); err != nil {
				return err
			}

			fmt.Println("Logged out.")
			return nil
		},
	}
}
