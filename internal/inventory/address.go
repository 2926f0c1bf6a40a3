package inventory

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/costguardian/costguardian/internal/pricing"
	"github.com/costguardian/costguardian/internal/resource"
)

// AddressAPI is the minimal interface for Elastic IP enumeration.
type AddressAPI interface {
	DescribeAddresses(ctx context.Context, input *ec2.DescribeAddressesInput, opts ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error)
}

// AddressScanner enumerates Elastic IPs with their association state.
type AddressScanner struct {
	client AddressAPI
	region string
}

// NewAddressScanner creates a scanner for Elastic IPs.
func NewAddressScanner(client AddressAPI, region string) *AddressScanner {
	return &AddressScanner{client: client, region: region}
}

// Type returns the resource type this scanner handles.
func (s *AddressScanner) Type() resource.Type {
	return resource.TypeElasticIP
}

// Scan enumerates all allocated Elastic IPs.
func (s *AddressScanner) Scan(ctx context.Context, cfg ScanConfig) (*ScanResult, error) {
	out, err := s.client.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
	if err != nil {
		return nil, fmt.Errorf("describe addresses: %w", err)
	}

	result := &ScanResult{}
	for _, addr := range out.Addresses {
		tags := ec2TagsToMap(addr.Tags)
		if cfg.protected(tags) {
			result.Skipped = append(result.Skipped, deref(addr.AllocationId))
			continue
		}

		result.Candidates = append(result.Candidates, resource.Candidate{
			Type:      resource.TypeElasticIP,
			ID:        deref(addr.AllocationId),
			Name:      deref(addr.PublicIp),
			SizeLabel: resource.TypeElasticIP.ServiceCode(),
			Region:    s.region,
			Tags:      tags,
			Signals: resource.Signals{
				Attached: addr.AssociationId != nil,
			},
			MonthlyCost: pricing.MonthlyEIPCost(s.region),
		})
	}

	return result, nil
}
