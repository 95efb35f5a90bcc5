package cmd

import (
	"runtime"

	"github.com/spf13/cobra"
)

// versionCmd prints build details for bug reports.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the cpkwatch build details.",
	Long: `Display the release version, commit, build time, Go runtime and platform.

Include this output when reporting a problem with a cpkwatch binary.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("cpkwatch %s\n", version)
		cmd.Printf("  Commit:   %s\n", commit)
		cmd.Printf("  Built:    %s\n", date)
		cmd.Printf("  Runtime:  %s\n", runtime.Version())
		cmd.Printf("  Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
