package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relquery/relq/internal/descfile"
	"github.com/relquery/relq/internal/joinplan"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <descriptions-file> <plan-file>",
		Short: "Validate a (possibly hand-edited) join plan",
		Long: `Re-validate a persisted join plan against its table descriptions.

All violations are collected and reported in a single pass, so one round
of edits gets complete feedback.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, descPath, planPath string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	descs, err := descfile.Load(descPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load descriptions", err)
	}
	plan, err := joinplan.ReadFile(planPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load plan", err)
	}

	report := joinplan.Inspect(descs, plan)
	if !report.OK() {
		if emitErr := out.Emit(report.String(), report.Problems); emitErr != nil {
			return emitErr
		}
		return NewExitError(ExitFailure, fmt.Sprintf("join plan has %d problems", len(report.Problems)))
	}
	return out.Emit(
		fmt.Sprintf("join plan is valid (%d rows, %d tables)", len(plan.Rows), len(plan.Tables())),
		map[string]any{"rows": len(plan.Rows), "tables": plan.Tables()},
	)
}
