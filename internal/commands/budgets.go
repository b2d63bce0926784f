package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"spendwise/internal/cli"
	"spendwise/internal/core"
)

func newBudgetsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "budgets",
		Aliases: []string{"budget"},
		Short:   "List and set monthly budgets",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List budgets, newest month first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				api, err := opts.apiClient()
				if err != nil {
					return err
				}
				budgets, err := api.ListBudgets(cmd.Context())
				if err != nil {
					return err
				}
				renderBudgets(cmd.OutOrStdout(), budgets)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <YYYY-MM> <amount>",
			Short: "Create or replace the budget for a month",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := core.ValidateMonth(args[0]); err != nil {
					return fmt.Errorf("month %q: %w", args[0], err)
				}
				amt, err := core.ParseAmount(args[1])
				if err != nil {
					return err
				}
				api, err := opts.apiClient()
				if err != nil {
					return err
				}
				b, err := api.SaveBudget(cmd.Context(), core.BudgetInput{Amount: amt, Month: args[0]})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Budget for %s set to %s\n", b.Month, cli.FormatAmount(b.Amount.Decimal()))
				return nil
			},
		},
	)
	return cmd
}

func renderBudgets(w io.Writer, budgets []core.Budget) {
	if len(budgets) == 0 {
		fmt.Fprintln(w, cli.Muted("  No budgets set."))
		return
	}
	rows := make([][]string, 0, len(budgets))
	for _, b := range budgets {
		rows = append(rows, []string{b.Month, cli.FormatAmount(b.Amount.Decimal()), strconv.FormatInt(b.ID, 10)})
	}
	fmt.Fprint(w, cli.RenderTable(cli.Table{
		Headers: []string{"Month", "Amount", "ID"},
		Rows:    rows,
	}))
}
