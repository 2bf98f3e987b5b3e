package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/relquery/relq/internal/dbexec"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*SQLOptions
	Database string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{SQLOptions: &SQLOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "run <plan-file>",
		Short: "Execute a join plan against a SQLite database",
		Long: `Actualize and render a join plan, then execute the statement sequence
against a SQLite database and print the result rows.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path (required)")
	cmd.Flags().BoolVar(&opts.Indicators, "indicators", false, "add per-table match indicator columns")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "cap the final result (0 = no cap)")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runRun(opts *RunOptions, planPath string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	stmts, _, err := compilePlan(opts.SQLOptions, planPath)
	if err != nil {
		return err
	}

	db, err := dbexec.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer db.Close()

	result, err := dbexec.RunStatements(cmd.Context(), db, stmts)
	if err != nil {
		// Executor failures are opaque pass-throughs from the engine.
		return WrapExitError(ExitFailure, "execute", err)
	}
	defer result.Rows.Close()
	out.Verbosef("run %s: executed %d staging statements", result.RunToken, result.Executed)

	cols, err := result.Rows.Columns()
	if err != nil {
		return WrapExitError(ExitFailure, "read result columns", err)
	}
	var lines []string
	lines = append(lines, strings.Join(cols, "\t"))
	var rowsOut []map[string]any
	for result.Rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := result.Rows.Scan(ptrs...); err != nil {
			return WrapExitError(ExitFailure, "scan row", err)
		}
		cells := make([]string, len(cols))
		rowMap := make(map[string]any, len(cols))
		for i, v := range values {
			cells[i] = fmt.Sprintf("%v", v)
			rowMap[cols[i]] = v
		}
		lines = append(lines, strings.Join(cells, "\t"))
		rowsOut = append(rowsOut, rowMap)
	}
	if err := result.Rows.Err(); err != nil {
		return WrapExitError(ExitFailure, "read rows", err)
	}
	return out.Emit(strings.Join(lines, "\n"), map[string]any{
		"run_token": result.RunToken,
		"columns":   cols,
		"rows":      rowsOut,
	})
}
