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

// NATGatewayAPI is the minimal interface for NAT Gateway enumeration.
type NATGatewayAPI interface {
	DescribeNatGateways(ctx context.Context, input *ec2.DescribeNatGatewaysInput, opts ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error)
}

// NATGatewayScanner enumerates NAT Gateways with their byte-traffic signal.
type NATGatewayScanner struct {
	client  NATGatewayAPI
	metrics *awsx.MetricsFetcher
	region  string
}

// NewNATGatewayScanner creates a scanner for NAT Gateways.
func NewNATGatewayScanner(client NATGatewayAPI, metrics *awsx.MetricsFetcher, region string) *NATGatewayScanner {
	return &NATGatewayScanner{client: client, metrics: metrics, region: region}
}

// Type returns the resource type this scanner handles.
func (s *NATGatewayScanner) Type() resource.Type {
	return resource.TypeNATGateway
}

// Scan enumerates available NAT Gateways with bytes in/out over the window.
func (s *NATGatewayScanner) Scan(ctx context.Context, cfg ScanConfig) (*ScanResult, error) {
	gateways, err := s.listNATGateways(ctx)
	if err != nil {
		return nil, fmt.Errorf("list NAT Gateways: %w", err)
	}

	result := &ScanResult{}
	var eligible []ec2types.NatGateway
	var ids []string

	for _, gw := range gateways {
		tags := ec2TagsToMap(gw.Tags)
		if cfg.protected(tags) {
			result.Skipped = append(result.Skipped, deref(gw.NatGatewayId))
			continue
		}
		eligible = append(eligible, gw)
		ids = append(ids, deref(gw.NatGatewayId))
	}

	if len(ids) == 0 {
		return result, nil
	}

	bytesOut, err := s.metrics.FetchSum(ctx, "AWS/NATGateway", "BytesOutToDestination", "NatGatewayId", ids, cfg.LookbackDays)
	if err != nil {
		slog.Warn("Failed to fetch NAT Gateway metrics", "region", s.region, "error", err)
		result.Skipped = append(result.Skipped, ids...)
		return result, nil
	}
	bytesIn, err := s.metrics.FetchSum(ctx, "AWS/NATGateway", "BytesInFromDestination", "NatGatewayId", ids, cfg.LookbackDays)
	if err != nil {
		slog.Warn("Failed to fetch NAT Gateway inbound metrics", "region", s.region, "error", err)
		bytesIn = map[string]float64{}
	}

	for _, gw := range eligible {
		id := deref(gw.NatGatewayId)
		tags := ec2TagsToMap(gw.Tags)
		// A gateway with no datapoints at all genuinely moved zero bytes.
		result.Candidates = append(result.Candidates, resource.Candidate{
			Type:      resource.TypeNATGateway,
			ID:        id,
			Name:      nameFromTags(tags),
			SizeLabel: resource.TypeNATGateway.ServiceCode(),
			Region:    s.region,
			Tags:      tags,
			Signals: resource.Signals{
				BytesOut: bytesOut[id],
				BytesIn:  bytesIn[id],
			},
			MonthlyCost: pricing.MonthlyNATGatewayCost(s.region),
		})
	}

	return result, nil
}

func (s *NATGatewayScanner) listNATGateways(ctx context.Context) ([]ec2types.NatGateway, error) {
	var gateways []ec2types.NatGateway
	paginator := ec2.NewDescribeNatGatewaysPaginator(s.client, &ec2.DescribeNatGatewaysInput{
		Filter: []ec2types.Filter{
			{Name: awssdk.String("state"), Values: []string{"available"}},
		},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		gateways = append(gateways, page.NatGateways...)
	}
	return gateways, nil
}
