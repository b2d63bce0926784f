package commands

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"spendwise/internal/cli"
	"spendwise/internal/client"
	"spendwise/internal/core"
)

func newExpensesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"expense", "exp"},
		Short:   "List, add and remove expenses",
	}
	cmd.AddCommand(
		newExpensesListCommand(opts),
		newExpensesAddCommand(opts),
		newExpensesRemoveCommand(opts),
	)
	return cmd
}

func newExpensesListCommand(opts *rootOptions) *cobra.Command {
	var q client.ExpenseQuery

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (q.StartDate == "") != (q.EndDate == "") {
				return fmt.Errorf("--from and --to must be given together")
			}
			api, err := opts.apiClient()
			if err != nil {
				return err
			}
			expenses, err := api.ListExpenses(cmd.Context(), q)
			if err != nil {
				return err
			}
			renderExpenses(cmd.OutOrStdout(), expenses)
			return nil
		},
	}

	cmd.Flags().StringVarP(&q.Category, "category", "c", "", "only this category")
	cmd.Flags().StringVar(&q.StartDate, "from", "", "first date, YYYY-MM-DD (needs --to)")
	cmd.Flags().StringVar(&q.EndDate, "to", "", "last date, YYYY-MM-DD (needs --from)")
	return cmd
}

func renderExpenses(w io.Writer, expenses []core.Expense) {
	if len(expenses) == 0 {
		fmt.Fprintln(w, cli.Muted("  No expenses found."))
		return
	}

	total := decimal.Zero
	rows := make([][]string, 0, len(expenses)+2)
	for _, e := range expenses {
		notes := ""
		if e.Notes != nil {
			notes = cli.Truncate(*e.Notes, 24)
		}
		total = total.Add(e.Amount.Decimal())
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.Date,
			cli.Truncate(e.Description, 32),
			e.Category.String(),
			cli.FormatAmount(e.Amount.Decimal()),
			notes,
		})
	}
	rows = append(rows, []string{"---"}, []string{"", "", "Total", "", cli.FormatAmount(total), ""})

	fmt.Fprint(w, cli.RenderTable(cli.Table{
		Headers: []string{"ID", "Date", "Description", "Category", "Amount", "Notes"},
		Rows:    rows,
	}))
}

func newExpensesAddCommand(opts *rootOptions) *cobra.Command {
	var (
		description string
		amount      string
		category    string
		date        string
		notes       string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amt, err := core.ParseAmount(amount)
			if err != nil {
				return err
			}
			cat, err := core.ParseCategory(category)
			if err != nil {
				return err
			}
			if date == "" {
				date = time.Now().Format(core.DateLayout)
			}
			in := core.ExpenseInput{
				Description: description,
				Amount:      amt,
				Category:    cat,
				Date:        date,
			}
			if cmd.Flags().Changed("notes") {
				in.Notes = &notes
			}

			api, err := opts.apiClient()
			if err != nil {
				return err
			}
			e, err := api.CreateExpense(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added expense #%d: %s %s (%s, %s)\n",
				e.ID, e.Description, cli.FormatAmount(e.Amount.Decimal()), e.Category, e.Date)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "what the money went on (required)")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "amount, e.g. 4.50 (required)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "one of food, transport, entertainment, utilities, shopping, healthcare, other (required)")
	cmd.Flags().StringVar(&date, "date", "", "YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newExpensesRemoveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete an expense",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id < 1 {
				return fmt.Errorf("invalid expense id %q", args[0])
			}
			api, err := opts.apiClient()
			if err != nil {
				return err
			}
			if err := api.DeleteExpense(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted expense #%d\n", id)
			return nil
		},
	}
}
