package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Print the next version without changing anything",
	Long: `Print the version the next release would get, e.g. for use in CI scripts.

Nothing is written, committed or tagged.

Examples:
  verbump next
  verbump next --prerelease rc`,
	Args: cobra.NoArgs,
	RunE: runNext,
}

func init() {
	rootCmd.AddCommand(nextCmd)
}

func runNext(cmd *cobra.Command, args []string) error {
	cfg, opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	opts.DryRun = true

	releaser, err := newReleaser(cfg, opts, io.Discard)
	if err != nil {
		return err
	}

	result, _, err := releaser.Plan(cmd.Context(), opts)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Decision.Next)
	return nil
}
