package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relquery/relq/internal/descfile"
	"github.com/relquery/relq/internal/joinplan"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Output           string // output plan path (.csv, .yaml)
	RejectCollisions bool
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <descriptions-file>",
		Short: "Build a join plan from table descriptions",
		Long: `Build a validated left-join plan from a YAML or CUE descriptions file.

The first table in the file is the primary; every later table must be
joinable by keys the primary already provides. The plan is written as a
flat table suitable for hand editing; re-check edited plans with
"relq check".`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "plan.csv", "output plan file (.csv, .yaml)")
	cmd.Flags().BoolVar(&opts.RejectCollisions, "reject-collisions", false,
		"fail on result-name collisions instead of demoting later columns")
	return cmd
}

func runPlan(opts *PlanOptions, descPath string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	descs, err := descfile.Load(descPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load descriptions", err)
	}
	out.Verbosef("loaded %d table descriptions from %s", len(descs), descPath)

	buildOpts := joinplan.BuildOptions{}
	if opts.RejectCollisions {
		buildOpts.Collisions = joinplan.CollisionReject
	}
	result, err := joinplan.Build(descs, buildOpts)
	if err != nil {
		return WrapExitError(ExitFailure, "build join plan", err)
	}
	for _, d := range result.Demotions {
		out.Verbosef("demoted %s.%s: result name %q claimed by %s",
			d.TableName, d.SourceColumn, d.ResultColumn, d.ClaimedBy)
	}

	if err := result.Plan.WriteFile(opts.Output); err != nil {
		return WrapExitError(ExitCommandError, "write plan", err)
	}
	return out.Emit(
		fmt.Sprintf("wrote %d plan rows (%d demoted) to %s", len(result.Plan.Rows), len(result.Demotions), opts.Output),
		map[string]any{"rows": len(result.Plan.Rows), "demoted": len(result.Demotions), "output": opts.Output},
	)
}
