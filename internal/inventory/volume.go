package inventory

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/costguardian/costguardian/internal/pricing"
	"github.com/costguardian/costguardian/internal/resource"
)

// VolumeAPI is the minimal interface for EBS volume enumeration.
type VolumeAPI interface {
	DescribeVolumes(ctx context.Context, input *ec2.DescribeVolumesInput, opts ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
}

// VolumeScanner enumerates EBS volumes with their attachment state.
type VolumeScanner struct {
	client VolumeAPI
	region string
}

// NewVolumeScanner creates a scanner for EBS volumes.
func NewVolumeScanner(client VolumeAPI, region string) *VolumeScanner {
	return &VolumeScanner{client: client, region: region}
}

// Type returns the resource type this scanner handles.
func (s *VolumeScanner) Type() resource.Type {
	return resource.TypeBlockVolume
}

// Scan enumerates all volumes. Attached volumes are candidates too, so a
// volume that gets attached after entering the lifecycle reactivates.
func (s *VolumeScanner) Scan(ctx context.Context, cfg ScanConfig) (*ScanResult, error) {
	volumes, err := s.listVolumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list EBS volumes: %w", err)
	}

	result := &ScanResult{}
	for _, vol := range volumes {
		tags := ec2TagsToMap(vol.Tags)
		if cfg.protected(tags) {
			result.Skipped = append(result.Skipped, deref(vol.VolumeId))
			continue
		}

		// Volumes mid-create or mid-delete carry no usable signal.
		if vol.State != ec2types.VolumeStateAvailable && vol.State != ec2types.VolumeStateInUse {
			continue
		}

		volumeType := string(vol.VolumeType)
		sizeGiB := int(derefInt32(vol.Size))

		result.Candidates = append(result.Candidates, resource.Candidate{
			Type:      resource.TypeBlockVolume,
			ID:        deref(vol.VolumeId),
			Name:      nameFromTags(tags),
			SizeLabel: volumeType,
			Region:    s.region,
			Tags:      tags,
			Signals: resource.Signals{
				Attached: len(vol.Attachments) > 0,
			},
			MonthlyCost: pricing.MonthlyEBSCost(volumeType, sizeGiB, s.region),
		})
	}

	return result, nil
}

func (s *VolumeScanner) listVolumes(ctx context.Context) ([]ec2types.Volume, error) {
	var volumes []ec2types.Volume
	paginator := ec2.NewDescribeVolumesPaginator(s.client, &ec2.DescribeVolumesInput{})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		volumes = append(volumes, page.Volumes...)
	}
	return volumes, nil
}
