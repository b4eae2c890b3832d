package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information - can be set during build with ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information for careercoach",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "careercoach version %s\n", Version)
		fmt.Fprintf(out, "Git commit: %s\n", GitCommit)
		fmt.Fprintf(out, "Build date: %s\n", BuildDate)
	},
}
