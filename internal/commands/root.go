package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/costguardian/costguardian/internal/config"
	"github.com/costguardian/costguardian/internal/logging"
)

var (
	verbose bool
	profile string
	region  string
	version string
	commit  string
	date    string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "costguardian",
	Short: "Idle AWS resource lifecycle engine",
	Long: `costguardian discovers idle AWS resources and walks them through a staged
lifecycle: IdleWarning, Quarantine (stopped and backed up), Deleted. Every
deletion is preceded by a backup and recorded as a savings event in the
ledger. The report command aggregates those events into the dashboard
document published to S3.

Resources tagged CostGuardian=Ignore are never touched.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)
		loaded, err := config.Load(".")
		if err != nil {
			slog.Warn("Failed to load config file", "error", err)
		} else {
			cfg = loaded
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with injected build info.
func Execute(v, c, d string) error {
	version = v
	commit = c
	date = d
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "AWS profile name")
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "AWS region")
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
