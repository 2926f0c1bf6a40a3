package executor

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/costguardian/costguardian/internal/resource"
)

// networkStrategy handles VPCs. Only VPCs with zero network interfaces
// ever reach deletion, so dependent-object failures indicate fresh
// attachment and keep the resource in its stage.
type networkStrategy struct {
	client   EC2API
	archiver *Archiver
}

func (s *networkStrategy) Backup(ctx context.Context, c resource.Candidate) (string, error) {
	return s.archiver.Save(ctx, c)
}

func (s *networkStrategy) Quarantine(ctx context.Context, c resource.Candidate) error {
	return nil
}

func (s *networkStrategy) Delete(ctx context.Context, c resource.Candidate) error {
	_, err := s.client.DeleteVpc(ctx, &ec2.DeleteVpcInput{
		VpcId: aws.String(c.ID),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete VPC %s: %w", c.ID, err)
	}
	return nil
}
