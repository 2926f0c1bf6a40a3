package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	awsx "github.com/costguardian/costguardian/internal/aws"
	"github.com/costguardian/costguardian/internal/pricing"
	"github.com/costguardian/costguardian/internal/resource"
)

// LoadBalancerAPI is the minimal interface for ELBv2 enumeration.
type LoadBalancerAPI interface {
	DescribeLoadBalancers(ctx context.Context, input *elbv2.DescribeLoadBalancersInput, opts ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error)
	DescribeTargetGroups(ctx context.Context, input *elbv2.DescribeTargetGroupsInput, opts ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error)
	DescribeTargetHealth(ctx context.Context, input *elbv2.DescribeTargetHealthInput, opts ...func(*elbv2.Options)) (*elbv2.DescribeTargetHealthOutput, error)
	DescribeTags(ctx context.Context, input *elbv2.DescribeTagsInput, opts ...func(*elbv2.Options)) (*elbv2.DescribeTagsOutput, error)
}

// LoadBalancerScanner enumerates ALBs and NLBs with traffic and
// healthy-target signals.
type LoadBalancerScanner struct {
	client  LoadBalancerAPI
	metrics *awsx.MetricsFetcher
	region  string
}

// NewLoadBalancerScanner creates a scanner for load balancers.
func NewLoadBalancerScanner(client LoadBalancerAPI, metrics *awsx.MetricsFetcher, region string) *LoadBalancerScanner {
	return &LoadBalancerScanner{client: client, metrics: metrics, region: region}
}

// Type returns the resource type this scanner handles.
func (s *LoadBalancerScanner) Type() resource.Type {
	return resource.TypeLoadBalancer
}

// Scan enumerates active load balancers. Per-balancer failures (tags,
// target health, metrics) skip that balancer and continue.
func (s *LoadBalancerScanner) Scan(ctx context.Context, cfg ScanConfig) (*ScanResult, error) {
	lbs, err := s.listLoadBalancers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list load balancers: %w", err)
	}

	result := &ScanResult{}

	for _, lb := range lbs {
		arn := deref(lb.LoadBalancerArn)
		name := deref(lb.LoadBalancerName)

		tags, err := s.lbTags(ctx, arn)
		if err != nil {
			slog.Warn("Failed to fetch load balancer tags", "lb", name, "error", err)
			result.Skipped = append(result.Skipped, name)
			continue
		}
		if cfg.protected(tags) {
			result.Skipped = append(result.Skipped, name)
			continue
		}

		healthy, err := s.healthyTargets(ctx, arn)
		if err != nil {
			slog.Warn("Failed to fetch target health", "lb", name, "error", err)
			result.Skipped = append(result.Skipped, name)
			continue
		}

		sig, err := s.trafficSignals(ctx, lb, cfg.LookbackDays)
		if err != nil {
			slog.Warn("Failed to fetch load balancer metrics", "lb", name, "error", err)
			result.Skipped = append(result.Skipped, name)
			continue
		}
		sig.HealthyTargets = healthy

		result.Candidates = append(result.Candidates, resource.Candidate{
			Type:        resource.TypeLoadBalancer,
			ID:          name,
			Name:        name,
			SizeLabel:   strings.ToUpper(string(lb.Type)),
			Region:      s.region,
			Tags:        tags,
			Signals:     sig,
			MonthlyCost: pricing.MonthlyLoadBalancerCost(string(lb.Type), s.region),
		})
	}

	return result, nil
}

// trafficSignals fetches request count for ALBs and processed bytes for NLBs.
// CloudWatch dimensions use the ARN suffix ("app/name/id"), not the name.
func (s *LoadBalancerScanner) trafficSignals(ctx context.Context, lb elbtypes.LoadBalancer, lookbackDays int) (resource.Signals, error) {
	dim := arnSuffix(deref(lb.LoadBalancerArn))

	if lb.Type == elbtypes.LoadBalancerTypeEnumNetwork {
		bytes, err := s.metrics.FetchSum(ctx, "AWS/NetworkELB", "ProcessedBytes", "LoadBalancer", []string{dim}, lookbackDays)
		if err != nil {
			return resource.Signals{}, err
		}
		return resource.Signals{BytesIn: bytes[dim]}, nil
	}

	requests, err := s.metrics.FetchSum(ctx, "AWS/ApplicationELB", "RequestCount", "LoadBalancer", []string{dim}, lookbackDays)
	if err != nil {
		return resource.Signals{}, err
	}
	return resource.Signals{RequestCount: requests[dim]}, nil
}

func (s *LoadBalancerScanner) healthyTargets(ctx context.Context, arn string) (int, error) {
	tgs, err := s.client.DescribeTargetGroups(ctx, &elbv2.DescribeTargetGroupsInput{
		LoadBalancerArn: awssdk.String(arn),
	})
	if err != nil {
		return 0, err
	}

	healthy := 0
	for _, tg := range tgs.TargetGroups {
		health, err := s.client.DescribeTargetHealth(ctx, &elbv2.DescribeTargetHealthInput{
			TargetGroupArn: tg.TargetGroupArn,
		})
		if err != nil {
			return 0, err
		}
		for _, desc := range health.TargetHealthDescriptions {
			if desc.TargetHealth != nil && desc.TargetHealth.State == elbtypes.TargetHealthStateEnumHealthy {
				healthy++
			}
		}
	}
	return healthy, nil
}

func (s *LoadBalancerScanner) lbTags(ctx context.Context, arn string) (map[string]string, error) {
	out, err := s.client.DescribeTags(ctx, &elbv2.DescribeTagsInput{
		ResourceArns: []string{arn},
	})
	if err != nil {
		return nil, err
	}

	m := make(map[string]string)
	for _, desc := range out.TagDescriptions {
		for _, t := range desc.Tags {
			m[deref(t.Key)] = deref(t.Value)
		}
	}
	return m, nil
}

func (s *LoadBalancerScanner) listLoadBalancers(ctx context.Context) ([]elbtypes.LoadBalancer, error) {
	var lbs []elbtypes.LoadBalancer
	paginator := elbv2.NewDescribeLoadBalancersPaginator(s.client, &elbv2.DescribeLoadBalancersInput{})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, lb := range page.LoadBalancers {
			if lb.State != nil && lb.State.Code == elbtypes.LoadBalancerStateEnumActive {
				lbs = append(lbs, lb)
			}
		}
	}
	return lbs, nil
}

// arnSuffix returns the CloudWatch dimension form of a load balancer ARN:
// everything after "loadbalancer/".
func arnSuffix(arn string) string {
	const marker = ":loadbalancer/"
	if i := strings.Index(arn, marker); i >= 0 {
		return arn[i+len(marker):]
	}
	return arn
}
