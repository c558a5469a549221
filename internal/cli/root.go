// Package cli implements the custseg command line.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/custseg/internal/adapters/export"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Format     string // "json" | "yaml" | "text"; empty means the configured export_format

	// LogOutput receives log records. Defaults to the command's stderr.
	LogOutput io.Writer
}

// NewRootCommand creates the root command for the custseg CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "custseg",
		Short: "custseg - customer segmentation",
		Long: `Segment active customers into behavioral clusters with k-means and report
top spenders, frequent shoppers and best selling products.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Format == "" {
				return nil
			}
			if _, err := export.ParseFormat(opts.Format); err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid format %q", opts.Format), err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file (overrides CUSTSEG_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", "", "output format (json|yaml|text)")

	cmd.AddCommand(NewSegmentCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}
