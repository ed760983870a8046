package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"budget/internal/core"
	"budget/internal/services"
)

// opener returns the budget service and a function releasing its store.
type opener func(ctx context.Context) (*services.BudgetService, func() error, error)

type app struct {
	open    opener
	budget  *services.BudgetService
	cleanup func() error
}

func newRootCmd(open opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:   "budgetctl",
		Short: "Administer saved budget months",
		Long: `budgetctl creates, copies, imports and exports household budget months
in the configured data backend (DATA_BACKEND, SQLITE_DB_PATH).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			budget, cleanup, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			a.budget, a.cleanup = budget, cleanup
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.cleanup == nil {
				return nil
			}
			return a.cleanup()
		},
	}

	root.AddCommand(
		a.listCmd(),
		a.createCmd(),
		a.showCmd(),
		a.copyCmd(),
		a.recomputeCmd(),
		a.deleteCmd(),
		a.importCmd(),
		a.exportCmd(),
	)
	return root
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved months with their grand savings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			months, err := a.budget.ListMonths(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tMONTH\tESTIMATED SAVINGS\tACTUAL SAVINGS")
			for _, m := range months {
				fmt.Fprintf(tw, "%s\t%s %d\t%s\t%s\n", m.Key, m.MonthName, m.Year,
					core.FormatPounds(m.GrandSavings.Estimated), core.FormatPounds(m.GrandSavings.Actual))
			}
			return tw.Flush()
		},
	}
}

func (a *app) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [YYYY-MM]",
		Short: "Start an empty month (default: the current month)",
		Example: `  budgetctl create 2025-01
  budgetctl create`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := now()
			year, month := t.Year(), int(t.Month())
			if len(args) == 1 {
				var err error
				if year, month, err = core.ParseMonthKey(args[0]); err != nil {
					return err
				}
			}
			session, err := a.budget.CreateMonth(cmd.Context(), year, month)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s with %d weeks\n", session.Key, len(session.Record.WeeklyBreakdown))
			return nil
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show YYYY-MM",
		Short: "Print a month's summary and weekly breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.budget.OpenMonth(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printSession(cmd.OutOrStdout(), session)
		},
	}
}

func (a *app) copyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy SOURCE TARGET",
		Short: "Start TARGET from SOURCE's plan",
		Long: `copy starts the TARGET month from the SOURCE month's income sources,
fixed costs, variable costs and pots. Actual amounts, paid flags and unplanned
expenses are not carried over.`,
		Example: "  budgetctl copy 2025-01 2025-02",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := core.ParseMonthKey(args[1])
			if err != nil {
				return err
			}
			session, err := a.budget.CopyFromMonth(cmd.Context(), args[0], year, month)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %s into %s\n", args[0], session.Key)
			return nil
		},
	}
}

func (a *app) recomputeCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "recompute YYYY-MM",
		Short: "Recompute a month's derived figures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.budget.Recompute(cmd.Context(), args[0], force)
			if err != nil {
				return err
			}
			return printSession(cmd.OutOrStdout(), session)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Regenerate payments-due text even where it was edited")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete YYYY-MM",
		Short: "Delete a saved month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.budget.DeleteMonth(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a saved month document (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			session, err := a.budget.ImportLegacy(cmd.Context(), data, overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", session.Key)
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the month when it already exists")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export YYYY-MM",
		Short: "Write a month as a saved month document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.budget.ExportLegacy(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			return os.WriteFile(output, data, 0o600)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func printSession(w io.Writer, s services.Session) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s %d\n\n", s.Record.MonthName, s.Record.Year)

	fmt.Fprintln(tw, "\tESTIMATED\tACTUAL\tDIFFERENCE")
	for _, row := range []struct {
		label string
		t     core.Totals
	}{
		{"Income", s.Summary.Income},
		{"Fixed costs", s.Summary.FixedCosts},
		{"Variable costs", s.Summary.VariableCosts},
		{"Unplanned expenses", s.Summary.Unplanned},
		{"Pots", s.Summary.Pots},
		{"Grand savings", s.Summary.GrandSavings},
	} {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.label,
			core.FormatPounds(row.t.Estimated), core.FormatPounds(row.t.Actual), core.FormatPounds(row.t.Difference()))
	}

	fmt.Fprintln(tw, "\nWEEK\tDATES\tESTIMATE\tACTUAL")
	for i, wk := range s.Record.WeeklyBreakdown {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", strconv.Itoa(i+1), wk.DateRange,
			core.FormatPounds(wk.Estimate), core.FormatPounds(wk.Actual))
	}
	return tw.Flush()
}

// now is swapped in tests.
var now = time.Now
