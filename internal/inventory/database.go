package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	awsx "github.com/costguardian/costguardian/internal/aws"
	"github.com/costguardian/costguardian/internal/pricing"
	"github.com/costguardian/costguardian/internal/resource"
)

// DatabaseAPI is the minimal interface for RDS instance enumeration.
type DatabaseAPI interface {
	DescribeDBInstances(ctx context.Context, input *rds.DescribeDBInstancesInput, opts ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

// DatabaseScanner enumerates RDS instances with connection and IOPS signals.
type DatabaseScanner struct {
	client  DatabaseAPI
	metrics *awsx.MetricsFetcher
	region  string
}

// NewDatabaseScanner creates a scanner for RDS instances.
func NewDatabaseScanner(client DatabaseAPI, metrics *awsx.MetricsFetcher, region string) *DatabaseScanner {
	return &DatabaseScanner{client: client, metrics: metrics, region: region}
}

// Type returns the resource type this scanner handles.
func (s *DatabaseScanner) Type() resource.Type {
	return resource.TypeDatabaseInstance
}

// Scan enumerates available and stopped DB instances. Instances in
// transitional states (creating, deleting, backing-up) are ignored.
func (s *DatabaseScanner) Scan(ctx context.Context, cfg ScanConfig) (*ScanResult, error) {
	instances, err := s.listDBInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("list RDS instances: %w", err)
	}

	result := &ScanResult{}
	var available []rdstypes.DBInstance

	for _, inst := range instances {
		tags := rdsTagsToMap(inst.TagList)
		if cfg.protected(tags) {
			result.Skipped = append(result.Skipped, deref(inst.DBInstanceIdentifier))
			continue
		}

		switch deref(inst.DBInstanceStatus) {
		case "stopped":
			result.Candidates = append(result.Candidates, s.candidate(inst, tags, resource.Signals{Stopped: true}))
		case "available":
			available = append(available, inst)
		}
	}

	if len(available) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(available))
	for _, inst := range available {
		ids = append(ids, deref(inst.DBInstanceIdentifier))
	}

	connMap, err := s.metrics.FetchSum(ctx, "AWS/RDS", "DatabaseConnections", "DBInstanceIdentifier", ids, cfg.LookbackDays)
	if err != nil {
		slog.Warn("Failed to fetch RDS connection metrics", "region", s.region, "error", err)
		result.Skipped = append(result.Skipped, ids...)
		return result, nil
	}

	readIOPS, err := s.metrics.FetchSum(ctx, "AWS/RDS", "ReadIOPS", "DBInstanceIdentifier", ids, cfg.LookbackDays)
	if err != nil {
		slog.Warn("Failed to fetch RDS read IOPS", "region", s.region, "error", err)
		readIOPS = map[string]float64{}
	}
	writeIOPS, err := s.metrics.FetchSum(ctx, "AWS/RDS", "WriteIOPS", "DBInstanceIdentifier", ids, cfg.LookbackDays)
	if err != nil {
		slog.Warn("Failed to fetch RDS write IOPS", "region", s.region, "error", err)
		writeIOPS = map[string]float64{}
	}

	for _, inst := range available {
		id := deref(inst.DBInstanceIdentifier)
		conns, ok := connMap[id]
		if !ok {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		tags := rdsTagsToMap(inst.TagList)
		sig := resource.Signals{
			Connections: conns,
			IOPSTotal:   readIOPS[id] + writeIOPS[id],
		}
		result.Candidates = append(result.Candidates, s.candidate(inst, tags, sig))
	}

	return result, nil
}

func (s *DatabaseScanner) candidate(inst rdstypes.DBInstance, tags map[string]string, sig resource.Signals) resource.Candidate {
	class := deref(inst.DBInstanceClass)
	multiAZ := inst.MultiAZ != nil && *inst.MultiAZ
	return resource.Candidate{
		Type:        resource.TypeDatabaseInstance,
		ID:          deref(inst.DBInstanceIdentifier),
		Name:        deref(inst.DBInstanceIdentifier),
		SizeLabel:   class,
		Region:      s.region,
		Tags:        tags,
		Signals:     sig,
		MonthlyCost: pricing.MonthlyRDSCost(class, s.region, multiAZ),
	}
}

func (s *DatabaseScanner) listDBInstances(ctx context.Context) ([]rdstypes.DBInstance, error) {
	var instances []rdstypes.DBInstance
	paginator := rds.NewDescribeDBInstancesPaginator(s.client, &rds.DescribeDBInstancesInput{})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		instances = append(instances, page.DBInstances...)
	}
	return instances, nil
}
