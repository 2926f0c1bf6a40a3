package executor

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/costguardian/costguardian/internal/resource"
)

// natGatewayStrategy handles NAT gateways. The associated Elastic IP is
// released by the elastic-ip lifecycle on its next pass, not here.
type natGatewayStrategy struct {
	client   EC2API
	archiver *Archiver
}

func (s *natGatewayStrategy) Backup(ctx context.Context, c resource.Candidate) (string, error) {
	return s.archiver.Save(ctx, c)
}

func (s *natGatewayStrategy) Quarantine(ctx context.Context, c resource.Candidate) error {
	return nil
}

func (s *natGatewayStrategy) Delete(ctx context.Context, c resource.Candidate) error {
	_, err := s.client.DeleteNatGateway(ctx, &ec2.DeleteNatGatewayInput{
		NatGatewayId: aws.String(c.ID),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete NAT gateway %s: %w", c.ID, err)
	}
	return nil
}
