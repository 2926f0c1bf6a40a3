package executor

import (
	"context"
	"fmt"

	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"

	"github.com/costguardian/costguardian/internal/resource"
)

// loadBalancerStrategy handles ALBs and NLBs. The candidate ID is the
// load balancer name; deletion resolves the ARN first.
type loadBalancerStrategy struct {
	client   ELBAPI
	archiver *Archiver
}

func (s *loadBalancerStrategy) Backup(ctx context.Context, c resource.Candidate) (string, error) {
	return s.archiver.Save(ctx, c)
}

func (s *loadBalancerStrategy) Quarantine(ctx context.Context, c resource.Candidate) error {
	return nil
}

func (s *loadBalancerStrategy) Delete(ctx context.Context, c resource.Candidate) error {
	out, err := s.client.DescribeLoadBalancers(ctx, &elbv2.DescribeLoadBalancersInput{
		Names: []string{c.ID},
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("resolve load balancer %s: %w", c.ID, err)
	}
	if len(out.LoadBalancers) == 0 {
		return nil
	}

	_, err = s.client.DeleteLoadBalancer(ctx, &elbv2.DeleteLoadBalancerInput{
		LoadBalancerArn: out.LoadBalancers[0].LoadBalancerArn,
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete load balancer %s: %w", c.ID, err)
	}
	return nil
}
