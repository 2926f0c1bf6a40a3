package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	awsx "github.com/costguardian/costguardian/internal/aws"
	"github.com/costguardian/costguardian/internal/executor"
	"github.com/costguardian/costguardian/internal/inventory"
	"github.com/costguardian/costguardian/internal/ledger"
	"github.com/costguardian/costguardian/internal/lifecycle"
	"github.com/costguardian/costguardian/internal/notifier"
)

var detectFlags struct {
	dryRun             bool
	lookbackDays       int
	concurrency        int
	gracePeriod        string
	checksBeforeAction int
	skipQuarantine     bool
	disable            []string
	timeout            time.Duration
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run one detection and lifecycle pass",
	Long: `Scan the account for idle resources, evaluate each against the ledger,
and apply the resulting lifecycle transitions: warn, quarantine with
backup, or delete. Detection is idempotent per evaluation interval, so
the external scheduler may safely re-run it.`,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().BoolVar(&detectFlags.dryRun, "dry-run", false, "Log planned transitions without touching anything")
	detectCmd.Flags().IntVar(&detectFlags.lookbackDays, "lookback-days", 0, "Utilization lookback window (days)")
	detectCmd.Flags().IntVar(&detectFlags.concurrency, "concurrency", 0, "Concurrent resource evaluations")
	detectCmd.Flags().StringVar(&detectFlags.gracePeriod, "grace-period", "", "Minimum quarantine hold before deletion (e.g. 72h)")
	detectCmd.Flags().IntVar(&detectFlags.checksBeforeAction, "checks-before-action", 0, "Consecutive idle checks before warning")
	detectCmd.Flags().BoolVar(&detectFlags.skipQuarantine, "skip-quarantine", false, "Delete directly from IdleWarning")
	detectCmd.Flags().StringSliceVar(&detectFlags.disable, "disable", nil, "Resource types to exclude (e.g. ec2,vpc)")
	detectCmd.Flags().DurationVar(&detectFlags.timeout, "timeout", 15*time.Minute, "Run timeout")
}

func runDetect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	timeout := detectFlags.timeout
	if d := cfg.TimeoutDuration(); d > 0 && !cmd.Flags().Changed("timeout") {
		timeout = d
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	applyDetectOverrides(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := awsx.NewClient(ctx, resolveProfile(), resolveRegion())
	if err != nil {
		return enhanceError("initialize AWS client", err)
	}

	scanCfg := inventory.ScanConfig{
		Region:          client.Region(),
		LookbackDays:    cfg.LookbackDays,
		ProtectTagKey:   cfg.ProtectTagKey,
		ProtectTagValue: cfg.ProtectTagValue,
	}
	scanners := inventory.BuildScanners(client, cfg)
	slog.Info("Starting detection run",
		"region", client.Region(), "types", len(scanners), "dry_run", detectFlags.dryRun)

	results := inventory.Run(ctx, scanners, scanCfg, cfg.Concurrency)

	store := ledger.New(client.DynamoDB(), cfg.LedgerTable)
	actions := executor.New(client.EC2(), client.RDS(), client.ELB(), client.S3(), cfg.ReportBucket)
	alerts := notifier.New(client.SNS(), cfg.AlertTopic, cfg.ProtectTagKey, cfg.ProtectTagValue)
	metrics := awsx.NewOpsRecorder(client.CloudWatch())

	engine := lifecycle.NewEngine(cfg, store, actions, alerts, metrics, detectFlags.dryRun)
	sum := engine.Run(ctx, results, time.Now().UTC())

	slog.Info("Detection run complete",
		"scanned", sum.Scanned,
		"idle", sum.Idle,
		"warned", sum.Warned,
		"quarantined", sum.Quarantined,
		"deleted", sum.Deleted,
		"reactivated", sum.Reactivated,
		"vanished", sum.Vanished,
		"failed", sum.Failed,
		"monthly_savings", sum.MonthlySavings)

	return ctx.Err()
}

// applyDetectOverrides layers explicitly set flags over the config file.
func applyDetectOverrides(cmd *cobra.Command) {
	if detectFlags.lookbackDays > 0 {
		cfg.LookbackDays = detectFlags.lookbackDays
	}
	if detectFlags.concurrency > 0 {
		cfg.Concurrency = detectFlags.concurrency
	}
	if detectFlags.gracePeriod != "" {
		cfg.Lifecycle.GracePeriod = detectFlags.gracePeriod
	}
	if detectFlags.checksBeforeAction > 0 {
		cfg.Lifecycle.ChecksBeforeAction = detectFlags.checksBeforeAction
	}
	if cmd.Flags().Changed("skip-quarantine") {
		cfg.Lifecycle.SkipQuarantine = detectFlags.skipQuarantine
	}
	if len(detectFlags.disable) > 0 {
		cfg.Disabled = append(cfg.Disabled, detectFlags.disable...)
	}
}
