package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/relquery/relq/internal/dbexec"
	"github.com/relquery/relq/internal/descfile"
)

// DescribeOptions holds flags for the describe command.
type DescribeOptions struct {
	*RootOptions
	Database string
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DescribeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "describe <table> [table...]",
		Short: "Introspect live tables into a descriptions file",
		Long: `Introspect one or more tables of a SQLite database and print the
resulting table descriptions as YAML, ready for "relq plan". Inferred
keys come from primary-key columns and usually need hand renaming to
shared abstract key names.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path (required)")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runDescribe(opts *DescribeOptions, tables []string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	db, err := dbexec.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer db.Close()

	file := descfile.File{}
	for _, table := range tables {
		desc, err := db.Describe(cmd.Context(), table)
		if err != nil {
			return WrapExitError(ExitCommandError, "describe table", err)
		}
		file.Tables = append(file.Tables, desc)
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return WrapExitError(ExitFailure, "marshal descriptions", err)
	}
	return out.Emit(strings.TrimRight(string(data), "\n"), file)
}
