package inventory

import (
	"context"
	"fmt"
	"log/slog"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	awsx "github.com/costguardian/costguardian/internal/aws"
	"github.com/costguardian/costguardian/internal/pricing"
	"github.com/costguardian/costguardian/internal/resource"
)

// ComputeAPI is the minimal interface for EC2 instance enumeration.
type ComputeAPI interface {
	DescribeInstances(ctx context.Context, input *ec2.DescribeInstancesInput, opts ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// ComputeScanner enumerates EC2 instances with their trailing CPU signal.
type ComputeScanner struct {
	client  ComputeAPI
	metrics *awsx.MetricsFetcher
	region  string
}

// NewComputeScanner creates a scanner for EC2 instances.
func NewComputeScanner(client ComputeAPI, metrics *awsx.MetricsFetcher, region string) *ComputeScanner {
	return &ComputeScanner{client: client, metrics: metrics, region: region}
}

// Type returns the resource type this scanner handles.
func (s *ComputeScanner) Type() resource.Type {
	return resource.TypeComputeInstance
}

// Scan enumerates running and stopped instances. Stopped instances carry
// the Stopped signal; running ones carry mean CPU over the lookback window.
// Instances whose CPU metric cannot be read are skipped, not failed.
func (s *ComputeScanner) Scan(ctx context.Context, cfg ScanConfig) (*ScanResult, error) {
	instances, err := s.listInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("list EC2 instances: %w", err)
	}

	result := &ScanResult{}
	var running []ec2types.Instance

	for _, inst := range instances {
		tags := ec2TagsToMap(inst.Tags)
		if cfg.protected(tags) {
			result.Skipped = append(result.Skipped, deref(inst.InstanceId))
			continue
		}
		if inst.State == nil {
			continue
		}

		switch inst.State.Name {
		case ec2types.InstanceStateNameStopped:
			// Already stopped: idle by definition, no metric needed.
			result.Candidates = append(result.Candidates, s.candidate(inst, tags, resource.Signals{Stopped: true}))
		case ec2types.InstanceStateNameRunning:
			running = append(running, inst)
		}
	}

	if len(running) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(running))
	for _, inst := range running {
		ids = append(ids, deref(inst.InstanceId))
	}

	cpuMap, err := s.metrics.FetchAverage(ctx, "AWS/EC2", "CPUUtilization", "InstanceId", ids, cfg.LookbackDays)
	if err != nil {
		// Metric failure is per-resource, not fatal: the enumeration
		// succeeded, so the scan succeeds with these IDs skipped.
		slog.Warn("Failed to fetch EC2 CPU metrics", "region", s.region, "error", err)
		result.Skipped = append(result.Skipped, ids...)
		return result, nil
	}

	for _, inst := range running {
		id := deref(inst.InstanceId)
		avgCPU, ok := cpuMap[id]
		if !ok {
			// No datapoints over the window; do not guess.
			result.Skipped = append(result.Skipped, id)
			continue
		}
		tags := ec2TagsToMap(inst.Tags)
		result.Candidates = append(result.Candidates, s.candidate(inst, tags, resource.Signals{CPUAveragePct: avgCPU}))
	}

	return result, nil
}

func (s *ComputeScanner) candidate(inst ec2types.Instance, tags map[string]string, sig resource.Signals) resource.Candidate {
	instanceType := string(inst.InstanceType)
	return resource.Candidate{
		Type:        resource.TypeComputeInstance,
		ID:          deref(inst.InstanceId),
		Name:        nameFromTags(tags),
		SizeLabel:   instanceType,
		Region:      s.region,
		Tags:        tags,
		Signals:     sig,
		MonthlyCost: pricing.MonthlyEC2Cost(instanceType, s.region),
	}
}

func (s *ComputeScanner) listInstances(ctx context.Context) ([]ec2types.Instance, error) {
	var instances []ec2types.Instance
	paginator := ec2.NewDescribeInstancesPaginator(s.client, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   awssdk.String("instance-state-name"),
				Values: []string{"running", "stopped"},
			},
		},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, res := range page.Reservations {
			instances = append(instances, res.Instances...)
		}
	}
	return instances, nil
}
