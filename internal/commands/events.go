package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"spendwise/internal/amqp"
	"spendwise/internal/cli"
	"spendwise/internal/config"
)

func newEventsCommand() *cobra.Command {
	var queue string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print ledger change events from AMQP as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AMQPURL == "" {
				return errors.New("AMQP_URL is not set")
			}
			if queue == "" {
				queue = cfg.AMQPQueue
			}

			consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, queue)
			if err != nil {
				return err
			}
			defer consumer.Close()

			ctx, stop := cli.SignalContext(cmd.Context())
			defer stop()

			out := cmd.OutOrStdout()
			err = consumer.Consume(ctx, func(_ context.Context, ev *amqp.ChangeEvent) error {
				_, err := fmt.Fprintln(out, formatEvent(ev))
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&queue, "queue", "", "queue to consume (default $AMQP_QUEUE)")
	return cmd
}

// formatEvent renders one event per line, e.g.
// "2024-03-05T10:00:00Z  expense.created  #1  2024-03  4.50".
func formatEvent(ev *amqp.ChangeEvent) string {
	line := fmt.Sprintf("%s  %-16s #%d", ev.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"), ev.RoutingKey(), ev.ID)
	if ev.Month != "" {
		line += "  " + ev.Month
	}
	if ev.Amount != "" {
		line += "  " + ev.Amount
	}
	return line
}
