package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nulljosh/claimcheck/internal/output"
	"github.com/nulljosh/claimcheck/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return output.Write(cmd.OutOrStdout(), output.FormatJSON, version.Get())
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("json", false, "print version as JSON")
}
