package executor

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/costguardian/costguardian/internal/resource"
)

// addressStrategy handles Elastic IPs. The candidate ID is the allocation
// id.
type addressStrategy struct {
	client   EC2API
	archiver *Archiver
}

func (s *addressStrategy) Backup(ctx context.Context, c resource.Candidate) (string, error) {
	return s.archiver.Save(ctx, c)
}

func (s *addressStrategy) Quarantine(ctx context.Context, c resource.Candidate) error {
	return nil
}

func (s *addressStrategy) Delete(ctx context.Context, c resource.Candidate) error {
	_, err := s.client.ReleaseAddress(ctx, &ec2.ReleaseAddressInput{
		AllocationId: aws.String(c.ID),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("release address %s: %w", c.ID, err)
	}
	return nil
}
