package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build metadata, overridden with -ldflags "-X" by the release build.
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// buildCommit prefers the linker-set commit and falls back to the VCS
// revision the Go toolchain stamps into module builds.
func buildCommit() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		built := BuildDate
		if built == "" {
			built = "unknown"
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "classbook %s (%s/%s, %s)\n", Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
		fmt.Fprintf(out, "  commit: %s\n", buildCommit())
		fmt.Fprintf(out, "  built:  %s\n", built)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
