package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/boostpanel/boostpanel/internal/domain"
	"github.com/boostpanel/boostpanel/internal/managers"

	"github.com/spf13/cobra"
)

func NewNumbersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "numbers",
		Short: "Purchase virtual numbers and retrieve their SMS",
	}

	cmd.AddCommand(newNumbersSearchCommand())
	cmd.AddCommand(newNumbersPurchaseCommand())
	cmd.AddCommand(newNumbersWatchSMSCommand())

	return cmd
}

func newNumbersSearchCommand() *cobra.Command {
	var service, country string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "List purchasable packages for a service and country",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(cmd)
			if err != nil {
				return err
			}

			manager := managers.NewActivationManager(managers.ActivationManagerDependencies{
				Client: c.client,
			})

			offerings, err := manager.SearchOfferings(cmd.Context(), service, country)
			if err != nil {
				return err
			}

			if len(offerings) == 0 {
				fmt.Println("No packages available for this service & country right now.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PACKAGE\tDURATION\tPRICE\tSUCCESS\tAVAILABLE")
			for _, o := range offerings {
				fmt.Fprintf(w, "%s\t%s\t%.2f %s\t%d%%\t%d\n",
					o.Name, o.Duration, o.PriceWithProfit, o.Currency, o.SuccessRate, o.Available)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Service/platform id")
	cmd.Flags().StringVar(&country, "country", "", "Country code")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("country")

	return cmd
}

func newNumbersPurchaseCommand() *cobra.Command {
	var service, country, duration string

	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Buy a virtual number for SMS verification",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(cmd)
			if err != nil {
				return err
			}
			if err := c.requireSession(); err != nil {
				return err
			}

			manager := managers.NewActivationManager(managers.ActivationManagerDependencies{
				Client: c.client,
			})

			activation, err := manager.Purchase(cmd.Context(), domain.PurchaseParams{
				Service:  service,
				Country:  country,
				Duration: duration,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Purchased number: %s\n", activation.PhoneNumber)
			fmt.Printf("Activation id:    %s\n", activation.ActivationID)
			fmt.Println()
			fmt.Println("Run 'boostctl numbers watch-sms <activation-id>' to retrieve the SMS.")
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Service/platform id")
	cmd.Flags().StringVar(&country, "country", "", "Country code")
	cmd.Flags().StringVar(&duration, "duration", "", "Package duration")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("country")
	_ = cmd.MarkFlagRequired("duration")

	return cmd
}

func newNumbersWatchSMSCommand() *cobra.Command {
	var auto bool

	cmd := &cobra.Command{
		Use:   "watch-sms <activation-id>",
		Short: "Check an activation for its SMS, once or continuously",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(cmd)
			if err != nil {
				return err
			}
			if err := c.requireSession(); err != nil {
				return err
			}

			manager := managers.NewActivationManager(managers.ActivationManagerDependencies{
				Client: c.client,
			})

			if err := manager.Attach(domain.Activation{ActivationID: args[0]}); err != nil {
				return err
			}

			if !auto {
				sms, err := manager.CheckNow(cmd.Context())
				if err != nil {
					return err
				}
				if sms == "" {
					fmt.Println("Waiting for SMS... (re-run, or use --auto to keep checking)")
					return nil
				}
				fmt.Printf("Message received: %s\n", sms)
				return nil
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			events, err := manager.StartAuto(ctx)
			if err != nil {
				return err
			}

			fmt.Println("Auto checking for SMS. Press Ctrl-C to stop.")

			for event := range events {
				switch event.Type {
				case domain.ActivationEventSMSReceived:
					fmt.Printf("Message received: %s\n", event.SMS)
					return nil
				case domain.ActivationEventExpired:
					return fmt.Errorf("no SMS arrived before the activation expired; purchase a new number")
				case domain.ActivationEventFailed:
					return fmt.Errorf("could not check SMS: %w", event.Err)
				case domain.ActivationEventStopped:
					fmt.Println("\nStopped checking.")
					return nil
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&auto, "auto", false, "Keep checking every 2 seconds until the SMS arrives")

	return cmd
}
