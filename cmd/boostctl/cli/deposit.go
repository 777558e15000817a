package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boostpanel/boostpanel/internal/domain"
	"github.com/boostpanel/boostpanel/internal/managers"
	"github.com/boostpanel/boostpanel/internal/wallet"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func NewDepositCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Create and confirm wallet deposits",
	}

	cmd.AddCommand(newDepositCreateCommand())
	cmd.AddCommand(newDepositWatchCommand())

	return cmd
}

func newDepositCreateCommand() *cobra.Command {
	var amount int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a deposit and print the payment authorization URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(cmd)
			if err != nil {
				return err
			}
			if err := c.requireSession(); err != nil {
				return err
			}

			manager := managers.NewDepositManager(managers.DepositManagerDependencies{
				Client: c.client,
			})

			authURL, err := manager.Create(cmd.Context(), amount)
			if err != nil {
				return err
			}

			fmt.Println("Deposit created. Complete the payment here:")
			fmt.Println()
			fmt.Printf("  %s\n", authURL)
			fmt.Println()
			fmt.Println("Then run 'boostctl deposit watch <deposit-id>' with the id from the callback.")
			return nil
		},
	}

	cmd.Flags().Int64Var(&amount, "amount", 0, "Deposit amount")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newDepositWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <deposit-id>",
		Short: "Poll a deposit until it is confirmed or times out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(cmd)
			if err != nil {
				return err
			}
			if err := c.requireSession(); err != nil {
				return err
			}

			depositID := args[0]

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			countdown := make(chan time.Duration, 1)

			manager := managers.NewDepositConfirmationManager(managers.DepositConfirmationManagerDependencies{
				Client:    c.client,
				Navigator: consoleNavigator{},
				Wallet:    wallet.NewStore(),
				OnCountdown: func(remaining time.Duration) {
					select {
					case countdown <- remaining:
					default:
					}
				},
			})

			fmt.Println("Payment pending. Waiting for the backend to confirm...")

			var outcome domain.DepositOutcome

			group, groupCtx := errgroup.WithContext(ctx)

			group.Go(func() error {
				defer close(countdown)

				var err error
				outcome, err = manager.Confirm(groupCtx, depositID)
				return err
			})

			group.Go(func() error {
				for remaining := range countdown {
					fmt.Printf("\rIf payment doesn't complete within %3.0fs it will be marked as failed.", remaining.Seconds())
				}
				fmt.Println()
				return nil
			})

			if err := group.Wait(); err != nil {
				return err
			}

			if outcome.State == domain.DepositOutcomeTimedOut {
				fmt.Println("The deposit was not confirmed in time and has been marked failed.")
			}

			return nil
		},
	}
}
