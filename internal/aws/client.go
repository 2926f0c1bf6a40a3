package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Client wraps the AWS SDK configuration for creating service clients.
type Client struct {
	cfg aws.Config
}

// NewClient creates a new AWS client using the specified profile and region.
// If profile is empty, the default credential chain is used.
// If region is empty, the default region from config/env is used.
func NewClient(ctx context.Context, profile, region string) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Client{cfg: cfg}, nil
}

// Config returns the underlying AWS config.
func (c *Client) Config() aws.Config {
	return c.cfg
}

// Region returns the resolved region.
func (c *Client) Region() string {
	return c.cfg.Region
}

// EC2 returns an EC2 service client.
func (c *Client) EC2() *ec2.Client {
	return ec2.NewFromConfig(c.cfg)
}

// RDS returns an RDS service client.
func (c *Client) RDS() *rds.Client {
	return rds.NewFromConfig(c.cfg)
}

// ELB returns an ELBv2 service client.
func (c *Client) ELB() *elasticloadbalancingv2.Client {
	return elasticloadbalancingv2.NewFromConfig(c.cfg)
}

// CloudWatch returns a CloudWatch service client.
func (c *Client) CloudWatch() *cloudwatch.Client {
	return cloudwatch.NewFromConfig(c.cfg)
}

// DynamoDB returns a DynamoDB service client.
func (c *Client) DynamoDB() *dynamodb.Client {
	return dynamodb.NewFromConfig(c.cfg)
}

// S3 returns an S3 service client.
func (c *Client) S3() *s3.Client {
	return s3.NewFromConfig(c.cfg)
}

// SNS returns an SNS service client.
func (c *Client) SNS() *sns.Client {
	return sns.NewFromConfig(c.cfg)
}
