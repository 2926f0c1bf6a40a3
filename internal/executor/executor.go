// Package executor performs the provider side effects of lifecycle
// transitions: config backups, quarantine stops, and deletions. Every
// delete treats a provider NotFound as success so replayed runs stay
// safe. Nothing here decides transitions; the lifecycle engine does.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/costguardian/costguardian/internal/resource"
)

// Strategy is the per-type action set. Backup is invoked when a resource
// enters IdleWarning and again as the final backup before the hold stage;
// Quarantine when entering the hold stage; Delete at the terminal
// transition.
type Strategy interface {
	// Backup preserves enough state to recreate the resource and returns
	// a reference to the preserved artifact.
	Backup(ctx context.Context, c resource.Candidate) (string, error)
	// Quarantine deactivates the resource without destroying it. Types
	// with no stoppable form hold in the ledger only and return nil.
	Quarantine(ctx context.Context, c resource.Candidate) error
	// Delete removes the resource. NotFound is success.
	Delete(ctx context.Context, c resource.Candidate) error
}

// EC2API is the minimal EC2 surface the executor needs.
type EC2API interface {
	StopInstances(ctx context.Context, input *ec2.StopInstancesInput, opts ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	TerminateInstances(ctx context.Context, input *ec2.TerminateInstancesInput, opts ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	CreateImage(ctx context.Context, input *ec2.CreateImageInput, opts ...func(*ec2.Options)) (*ec2.CreateImageOutput, error)
	CreateSnapshot(ctx context.Context, input *ec2.CreateSnapshotInput, opts ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error)
	DeleteVolume(ctx context.Context, input *ec2.DeleteVolumeInput, opts ...func(*ec2.Options)) (*ec2.DeleteVolumeOutput, error)
	ReleaseAddress(ctx context.Context, input *ec2.ReleaseAddressInput, opts ...func(*ec2.Options)) (*ec2.ReleaseAddressOutput, error)
	DeleteNatGateway(ctx context.Context, input *ec2.DeleteNatGatewayInput, opts ...func(*ec2.Options)) (*ec2.DeleteNatGatewayOutput, error)
	DeleteVpc(ctx context.Context, input *ec2.DeleteVpcInput, opts ...func(*ec2.Options)) (*ec2.DeleteVpcOutput, error)
}

// RDSAPI is the minimal RDS surface the executor needs.
type RDSAPI interface {
	CreateDBSnapshot(ctx context.Context, input *rds.CreateDBSnapshotInput, opts ...func(*rds.Options)) (*rds.CreateDBSnapshotOutput, error)
	StopDBInstance(ctx context.Context, input *rds.StopDBInstanceInput, opts ...func(*rds.Options)) (*rds.StopDBInstanceOutput, error)
	DeleteDBInstance(ctx context.Context, input *rds.DeleteDBInstanceInput, opts ...func(*rds.Options)) (*rds.DeleteDBInstanceOutput, error)
}

// ELBAPI is the minimal ELBv2 surface the executor needs.
type ELBAPI interface {
	DescribeLoadBalancers(ctx context.Context, input *elasticloadbalancingv2.DescribeLoadBalancersInput, opts ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeLoadBalancersOutput, error)
	DeleteLoadBalancer(ctx context.Context, input *elasticloadbalancingv2.DeleteLoadBalancerInput, opts ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DeleteLoadBalancerOutput, error)
}

// S3API is the minimal S3 surface the executor needs: config archives
// plus empty-bucket deletion.
type S3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, input *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteBucket(ctx context.Context, input *s3.DeleteBucketInput, opts ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
}

// Executor dispatches lifecycle actions to the per-type strategy.
type Executor struct {
	strategies map[resource.Type]Strategy
}

// New wires a strategy for every managed type. Config backups land in
// the given bucket under backups/<service>/<id>.json.
func New(ec2c EC2API, rdsc RDSAPI, elbc ELBAPI, s3c S3API, backupBucket string) *Executor {
	archiver := NewArchiver(s3c, backupBucket)
	return &Executor{strategies: map[resource.Type]Strategy{
		resource.TypeComputeInstance:   &computeStrategy{client: ec2c, archiver: archiver},
		resource.TypeDatabaseInstance:  &databaseStrategy{client: rdsc, archiver: archiver},
		resource.TypeBlockVolume:       &volumeStrategy{client: ec2c, archiver: archiver},
		resource.TypeNATGateway:        &natGatewayStrategy{client: ec2c, archiver: archiver},
		resource.TypeLoadBalancer:      &loadBalancerStrategy{client: elbc, archiver: archiver},
		resource.TypeElasticIP:         &addressStrategy{client: ec2c, archiver: archiver},
		resource.TypeObjectStoreBucket: &bucketStrategy{client: s3c, archiver: archiver},
		resource.TypeNetworkContainer:  &networkStrategy{client: ec2c, archiver: archiver},
	}}
}

func (e *Executor) strategy(t resource.Type) (Strategy, error) {
	s, ok := e.strategies[t]
	if !ok {
		return nil, fmt.Errorf("no executor strategy for resource type %q", t)
	}
	return s, nil
}

// Backup runs the type's backup action.
func (e *Executor) Backup(ctx context.Context, c resource.Candidate) (string, error) {
	s, err := e.strategy(c.Type)
	if err != nil {
		return "", err
	}
	return s.Backup(ctx, c)
}

// Quarantine runs the type's quarantine action.
func (e *Executor) Quarantine(ctx context.Context, c resource.Candidate) error {
	s, err := e.strategy(c.Type)
	if err != nil {
		return err
	}
	return s.Quarantine(ctx, c)
}

// Delete runs the type's delete action.
func (e *Executor) Delete(ctx context.Context, c resource.Candidate) error {
	s, err := e.strategy(c.Type)
	if err != nil {
		return err
	}
	return s.Delete(ctx, c)
}

// isNotFound reports whether an API error means the resource no longer
// exists. Deletes treat these as success.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.ErrorCode()
	return strings.Contains(code, "NotFound") || code == "NoSuchBucket"
}

// hasErrorCode reports whether an API error carries the given code.
func hasErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}
