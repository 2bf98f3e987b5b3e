package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relquery/relq/internal/dialect"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Dialect string // target SQL dialect name
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the relq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "relq",
		Short: "relq - relational pipelines to SQL",
		Long: `relq builds validated left-join plans from table descriptions and
compiles relational pipelines to dialect-correct SQL, catching column
and key errors before any database is touched.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, ok := dialect.ByName(opts.Dialect); !ok {
				return fmt.Errorf("unknown dialect %q", opts.Dialect)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Dialect, "dialect", "sqlite", "target SQL dialect (sqlite|postgres|mysql)")

	// Add subcommands
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewSQLCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewDescribeCommand(opts))

	return cmd
}

// targetDialect resolves the global dialect flag.
func (o *RootOptions) targetDialect() dialect.Options {
	d, _ := dialect.ByName(o.Dialect)
	return d
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
