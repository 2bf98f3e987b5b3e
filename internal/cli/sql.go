package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/relquery/relq/internal/joinplan"
	"github.com/relquery/relq/internal/relop"
	"github.com/relquery/relq/internal/relsql"
)

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	*RootOptions
	Indicators  bool
	Limit       int
	Materialize string // stage the result into this table instead of selecting
	Temporary   bool
	ShowTree    bool
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <plan-file>",
		Short: "Render a join plan to SQL statements",
		Long: `Actualize a join plan into an operator tree and render it to SQL.

The output is an ordered statement sequence: any CREATE TABLE statements
for materialize boundaries first, then the final SELECT.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Indicators, "indicators", false, "add per-table match indicator columns")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "cap the final result (0 = no cap)")
	cmd.Flags().StringVar(&opts.Materialize, "materialize", "", "stage the result into this table")
	cmd.Flags().BoolVar(&opts.Temporary, "temporary", false, "make the staged table temporary")
	cmd.Flags().BoolVar(&opts.ShowTree, "tree", false, "print the operator tree instead of SQL")
	return cmd
}

func runSQL(opts *SQLOptions, planPath string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	stmts, tree, err := compilePlan(opts, planPath)
	if err != nil {
		return err
	}
	if opts.ShowTree {
		return out.Emit(strings.TrimRight(relop.Format(tree), "\n"), relop.Format(tree))
	}

	texts := make([]string, len(stmts))
	for i, s := range stmts {
		texts[i] = s.SQL + ";"
	}
	return out.Emit(strings.Join(texts, "\n\n"), stmts)
}

// compilePlan loads, actualizes and renders a plan file.
func compilePlan(opts *SQLOptions, planPath string) ([]relsql.Statement, relop.Node, error) {
	plan, err := joinplan.ReadFile(planPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "load plan", err)
	}
	tree, err := joinplan.Actualize(plan, joinplan.ActualizeOptions{
		AddIndicatorColumns: opts.Indicators,
	})
	if err != nil {
		return nil, nil, WrapExitError(ExitFailure, "actualize join plan", err)
	}
	if opts.Materialize != "" {
		tree, err = relop.Materialize(tree, opts.Materialize, true, opts.Temporary)
		if err != nil {
			return nil, nil, WrapExitError(ExitFailure, "materialize", err)
		}
	}
	stmts, err := relsql.Render(tree, opts.targetDialect(), relsql.RenderOptions{Limit: opts.Limit})
	if err != nil {
		return nil, nil, WrapExitError(ExitFailure, "render SQL", err)
	}
	return stmts, tree, nil
}
