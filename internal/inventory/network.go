package inventory

import (
	"context"
	"fmt"
	"log/slog"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/costguardian/costguardian/internal/resource"
)

// NetworkAPI is the minimal interface for VPC enumeration.
type NetworkAPI interface {
	DescribeVpcs(ctx context.Context, input *ec2.DescribeVpcsInput, opts ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
	DescribeNetworkInterfaces(ctx context.Context, input *ec2.DescribeNetworkInterfacesInput, opts ...func(*ec2.Options)) (*ec2.DescribeNetworkInterfacesOutput, error)
}

// NetworkScanner enumerates non-default VPCs with their attachment count.
// A VPC with zero network interfaces hosts nothing.
type NetworkScanner struct {
	client NetworkAPI
	region string
}

// NewNetworkScanner creates a scanner for VPCs.
func NewNetworkScanner(client NetworkAPI, region string) *NetworkScanner {
	return &NetworkScanner{client: client, region: region}
}

// Type returns the resource type this scanner handles.
func (s *NetworkScanner) Type() resource.Type {
	return resource.TypeNetworkContainer
}

// Scan enumerates non-default VPCs. The default VPC is never a candidate.
func (s *NetworkScanner) Scan(ctx context.Context, cfg ScanConfig) (*ScanResult, error) {
	vpcs, err := s.listVpcs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list VPCs: %w", err)
	}

	result := &ScanResult{}
	for _, vpc := range vpcs {
		if vpc.IsDefault != nil && *vpc.IsDefault {
			continue
		}
		tags := ec2TagsToMap(vpc.Tags)
		if cfg.protected(tags) {
			result.Skipped = append(result.Skipped, deref(vpc.VpcId))
			continue
		}

		id := deref(vpc.VpcId)
		attachments, err := s.interfaceCount(ctx, id)
		if err != nil {
			slog.Warn("Failed to count VPC network interfaces", "vpc", id, "error", err)
			result.Skipped = append(result.Skipped, id)
			continue
		}

		result.Candidates = append(result.Candidates, resource.Candidate{
			Type:      resource.TypeNetworkContainer,
			ID:        id,
			Name:      nameFromTags(tags),
			SizeLabel: resource.TypeNetworkContainer.ServiceCode(),
			Region:    s.region,
			Tags:      tags,
			Signals: resource.Signals{
				AttachmentCount: attachments,
				// AgeDays is filled in by the lifecycle engine from the
				// ledger's first observation; the provider does not expose
				// a VPC creation time.
			},
			MonthlyCost: 0,
		})
	}

	return result, nil
}

func (s *NetworkScanner) interfaceCount(ctx context.Context, vpcID string) (int, error) {
	count := 0
	paginator := ec2.NewDescribeNetworkInterfacesPaginator(s.client, &ec2.DescribeNetworkInterfacesInput{
		Filters: []ec2types.Filter{
			{Name: awssdk.String("vpc-id"), Values: []string{vpcID}},
		},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		count += len(page.NetworkInterfaces)
	}
	return count, nil
}

func (s *NetworkScanner) listVpcs(ctx context.Context) ([]ec2types.Vpc, error) {
	var vpcs []ec2types.Vpc
	paginator := ec2.NewDescribeVpcsPaginator(s.client, &ec2.DescribeVpcsInput{})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		vpcs = append(vpcs, page.Vpcs...)
	}
	return vpcs, nil
}
