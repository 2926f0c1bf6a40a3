package inventory

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	awsx "github.com/costguardian/costguardian/internal/aws"
	"github.com/costguardian/costguardian/internal/config"
	"github.com/costguardian/costguardian/internal/resource"
)

// Scanner is the interface each resource-type scanner implements. Scan is
// read-only against the provider: it enumerates candidates and collects
// their utilization signals, skipping protected resources.
type Scanner interface {
	Scan(ctx context.Context, cfg ScanConfig) (*ScanResult, error)
	Type() resource.Type
}

// ScanConfig holds parameters that control scanning behavior.
type ScanConfig struct {
	Region          string
	LookbackDays    int
	ProtectTagKey   string
	ProtectTagValue string
}

// ScanResult holds one scanner's output. Skipped lists resource IDs seen
// but not evaluated this run, either protected by tag or with unreadable
// signals; the lifecycle engine must not infer anything about them, in
// particular not that they vanished.
type ScanResult struct {
	Candidates []resource.Candidate
	Skipped    []string
}

// TypeResult pairs a scanner's output with its enumeration error, if any.
type TypeResult struct {
	Result *ScanResult
	Err    error
}

// BuildScanners creates one scanner per enabled resource type.
func BuildScanners(client *awsx.Client, cfg config.Config) []Scanner {
	ec2Client := client.EC2()
	metrics := awsx.NewMetricsFetcher(client.CloudWatch())
	region := client.Region()

	all := []Scanner{
		NewComputeScanner(ec2Client, metrics, region),
		NewDatabaseScanner(client.RDS(), metrics, region),
		NewNATGatewayScanner(ec2Client, metrics, region),
		NewLoadBalancerScanner(client.ELB(), metrics, region),
		NewVolumeScanner(ec2Client, region),
		NewAddressScanner(ec2Client, region),
		NewBucketScanner(client.S3(), region),
		NewNetworkScanner(ec2Client, region),
	}

	scanners := make([]Scanner, 0, len(all))
	for _, s := range all {
		if cfg.TypeEnabled(s.Type()) {
			scanners = append(scanners, s)
		}
	}
	return scanners
}

// Run executes the given scanners with bounded concurrency and returns the
// per-type results. A scanner whose enumeration call fails yields a
// TypeResult with Err set; the other scanners still run.
func Run(ctx context.Context, scanners []Scanner, cfg ScanConfig, concurrency int) map[resource.Type]TypeResult {
	if concurrency <= 0 {
		concurrency = config.DefaultConcurrency
	}

	var mu sync.Mutex
	results := make(map[resource.Type]TypeResult, len(scanners))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, scanner := range scanners {
		scanner := scanner
		g.Go(func() error {
			slog.Debug("Running scanner", "type", scanner.Type())
			sr, err := scanner.Scan(ctx, cfg)
			if err != nil {
				slog.Warn("Scanner failed", "type", scanner.Type(), "error", err)
			}

			mu.Lock()
			results[scanner.Type()] = TypeResult{Result: sr, Err: err}
			mu.Unlock()
			return nil
		})
	}

	// Scanner errors are carried in the results, never returned.
	_ = g.Wait()
	return results
}
