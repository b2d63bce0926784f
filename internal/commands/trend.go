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

func newTrendCommand(opts *rootOptions) *cobra.Command {
	var (
		months int
		end    string
	)

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Monthly totals over recent months",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if end != "" {
				if err := core.ValidateMonth(end); err != nil {
					return fmt.Errorf("end %q: %w", end, err)
				}
			}
			if months < 0 {
				return fmt.Errorf("--months must not be negative")
			}
			api, err := opts.apiClient()
			if err != nil {
				return err
			}
			points, err := api.Trend(cmd.Context(), end, months)
			if err != nil {
				return err
			}
			renderTrend(cmd.OutOrStdout(), points)
			return nil
		},
	}

	cmd.Flags().IntVarP(&months, "months", "n", 6, "number of months")
	cmd.Flags().StringVar(&end, "end", "", "last month, YYYY-MM (default current month)")
	return cmd
}

func renderTrend(w io.Writer, points []core.TrendPoint) {
	if len(points) == 0 {
		fmt.Fprintln(w, cli.Muted("  No data."))
		return
	}

	maxTotal := decimal.Zero
	for _, p := range points {
		if p.Total.GreaterThan(maxTotal) {
			maxTotal = p.Total.Decimal
		}
	}
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{
			p.Month,
			cli.FormatAmount(p.Total.Decimal),
			strconv.Itoa(p.Count),
			cli.RenderBar(p.Total.Decimal, maxTotal, barWidth),
		})
	}
	fmt.Fprint(w, cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Last %d months", len(points)),
		Headers: []string{"Month", "Total", "Count", ""},
		Rows:    rows,
	}))
}
