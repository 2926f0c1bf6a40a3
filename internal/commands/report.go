package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	awsx "github.com/costguardian/costguardian/internal/aws"
	"github.com/costguardian/costguardian/internal/ledger"
	"github.com/costguardian/costguardian/internal/savings"
)

var reportFlags struct {
	timeout time.Duration
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate savings and publish the dashboard report",
	Long: `Read every savings event from the ledger, rebuild the dashboard report
from scratch, and publish it to the report bucket. At a month boundary the
closed month is archived as JSON and CSV alongside the live document.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().DurationVar(&reportFlags.timeout, "timeout", 5*time.Minute, "Run timeout")
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if reportFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, reportFlags.timeout)
		defer cancel()
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := awsx.NewClient(ctx, resolveProfile(), resolveRegion())
	if err != nil {
		return enhanceError("initialize AWS client", err)
	}

	store := ledger.New(client.DynamoDB(), cfg.LedgerTable)
	events, err := store.SavingsEvents(ctx)
	if err != nil {
		return enhanceError("read savings events", err)
	}

	now := time.Now().UTC()
	report := savings.Build(events, now)

	publisher := savings.NewPublisher(client.S3(), cfg.ReportBucket)
	if err := publisher.Publish(ctx, report); err != nil {
		return enhanceError("publish report", err)
	}
	if err := publisher.ArchiveClosedMonth(ctx, events, now); err != nil {
		// The live document is already out; the archive retries next run.
		slog.Warn("Month archive failed", "error", err)
	}

	metrics := awsx.NewOpsRecorder(client.CloudWatch())
	metrics.Record(ctx, "CumulativeSavings", report.Cumulative)
	metrics.Record(ctx, "ReportedDeletions", float64(len(events)))

	slog.Info("Report published",
		"events", len(events),
		"current_month_savings", report.CurrentMonth.TotalSavings,
		"cumulative_savings", report.Cumulative)
	return nil
}
