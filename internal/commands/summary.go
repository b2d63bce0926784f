package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"spendwise/internal/cli"
	"spendwise/internal/core"
)

const barWidth = 24

func newSummaryCommand(opts *rootOptions) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Spending against budget for one month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if month != "" {
				if err := core.ValidateMonth(month); err != nil {
					return fmt.Errorf("month %q: %w", month, err)
				}
			}
			api, err := opts.apiClient()
			if err != nil {
				return err
			}
			sum, err := api.Summary(cmd.Context(), month)
			if err != nil {
				return err
			}
			renderSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "YYYY-MM (default current month)")
	return cmd
}

func renderSummary(w io.Writer, sum core.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.RenderTitle("SPENDING  "+sum.Month))
	fmt.Fprintln(w)

	fmt.Fprint(w, cli.RenderTable(cli.Table{
		Rows: [][]string{
			{"Spent", cli.FormatAmount(sum.TotalSpent.Decimal)},
			{"Budget", cli.FormatAmount(sum.BudgetAmount.Decimal)},
			{"Remaining", cli.FormatAmount(sum.BudgetRemaining.Decimal)},
			{"---"},
			{"Transactions", strconv.Itoa(sum.TransactionCount)},
		},
	}))

	if sum.BudgetAmount.IsPositive() {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Budget  %s\n", cli.RenderBudgetBar(sum.BudgetPercentage, barWidth))
	}

	if len(sum.CategoryTotals) == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, cli.Muted("  No expenses this month."))
		return
	}

	maxCat := decimal.Zero
	for _, ca := range sum.CategoryTotals {
		if ca.Amount.GreaterThan(maxCat) {
			maxCat = ca.Amount.Decimal
		}
	}
	rows := make([][]string, 0, len(sum.CategoryTotals))
	for _, ca := range sum.CategoryTotals {
		rows = append(rows, []string{
			ca.Category.String(),
			cli.FormatAmount(ca.Amount.Decimal),
			cli.RenderBar(ca.Amount.Decimal, maxCat, barWidth),
		})
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, cli.RenderTable(cli.Table{
		Title:   "By category",
		Headers: []string{"Category", "Spent", ""},
		Rows:    rows,
	}))
}
