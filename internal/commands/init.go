package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initFlags struct {
	force bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate sample config and IAM policy",
	Long:  `Creates a sample .costguardian.yaml config file and the IAM policy JSON covering the engine's read and mutate actions.`,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "Overwrite existing files")
}

func runInit(_ *cobra.Command, _ []string) error {
	configPath := ".costguardian.yaml"
	policyPath := "costguardian-policy.json"

	if err := writeIfNotExists(configPath, sampleConfig, initFlags.force); err != nil {
		return err
	}
	if err := writeIfNotExists(policyPath, sampleIAMPolicy, initFlags.force); err != nil {
		return err
	}

	fmt.Printf("Created %s and %s\n", configPath, policyPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit .costguardian.yaml: set ledger_table, report_bucket, alert_topic_arn")
	fmt.Println("  2. Apply costguardian-policy.json to the role running the engine")
	fmt.Println("  3. Run: costguardian detect --dry-run")
	return nil
}

func writeIfNotExists(path, content string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("Skipping %s (already exists, use --force to overwrite)\n", path)
			return nil
		}
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return os.WriteFile(path, []byte(content), 0o644)
}

const sampleConfig = `# costguardian configuration

# AWS profile and region (or set AWS_PROFILE / AWS_REGION)
# profile: default
# region: us-east-1

# DynamoDB table holding lifecycle state (required)
ledger_table: costguardian-resources

# S3 bucket for the dashboard report and pre-deletion backups (required)
report_bucket: costguardian-reports

# SNS topic for lifecycle alerts (optional)
# alert_topic_arn: arn:aws:sns:us-east-1:123456789012:costguardian-alerts

# Resources carrying this tag are never evaluated
protect_tag_key: CostGuardian
protect_tag_value: Ignore

lifecycle:
  # Consecutive idle observations before a resource leaves Active
  checks_before_action: 3
  # Minimum hold in Quarantine before deletion
  grace_period: 72h
  # Detection cadence; a stage advances at most once per interval
  evaluation_interval: 24h
  # Delete directly from IdleWarning, skipping the quarantine hold
  skip_quarantine: false

thresholds:
  cpu_idle_pct: 5.0
  db_iops_floor: 100
  natgw_idle_bytes: 1048576
  lb_min_healthy_targets: 1
  lb_idle_requests: 10
  lb_idle_bytes: 1000000
  vpc_min_age_days: 7

# Resource types to exclude from scanning
# disabled:
#   - vpc
#   - s3_bucket

# Utilization lookback window (days)
lookback_days: 1

# Concurrent resource evaluations
concurrency: 4

# Run timeout
timeout: 15m
`

const sampleIAMPolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Sid": "CostGuardianDiscover",
      "Effect": "Allow",
      "Action": [
        "ec2:DescribeInstances",
        "ec2:DescribeVolumes",
        "ec2:DescribeAddresses",
        "ec2:DescribeNatGateways",
        "ec2:DescribeNetworkInterfaces",
        "ec2:DescribeVpcs",
        "elasticloadbalancing:DescribeLoadBalancers",
        "elasticloadbalancing:DescribeTargetGroups",
        "elasticloadbalancing:DescribeTargetHealth",
        "elasticloadbalancing:DescribeTags",
        "rds:DescribeDBInstances",
        "s3:ListAllMyBuckets",
        "s3:ListBucket",
        "s3:GetBucketTagging",
        "cloudwatch:GetMetricData",
        "cloudwatch:PutMetricData"
      ],
      "Resource": "*"
    },
    {
      "Sid": "CostGuardianLifecycle",
      "Effect": "Allow",
      "Action": [
        "ec2:StopInstances",
        "ec2:TerminateInstances",
        "ec2:CreateImage",
        "ec2:CreateSnapshot",
        "ec2:DeleteVolume",
        "ec2:ReleaseAddress",
        "ec2:DeleteNatGateway",
        "ec2:DeleteVpc",
        "rds:CreateDBSnapshot",
        "rds:StopDBInstance",
        "rds:DeleteDBInstance",
        "elasticloadbalancing:DeleteLoadBalancer",
        "s3:DeleteBucket",
        "sns:Publish"
      ],
      "Resource": "*"
    },
    {
      "Sid": "CostGuardianLedger",
      "Effect": "Allow",
      "Action": [
        "dynamodb:PutItem",
        "dynamodb:Query"
      ],
      "Resource": [
        "arn:aws:dynamodb:*:*:table/costguardian-resources",
        "arn:aws:dynamodb:*:*:table/costguardian-resources/index/*"
      ]
    },
    {
      "Sid": "CostGuardianReports",
      "Effect": "Allow",
      "Action": [
        "s3:PutObject",
        "s3:GetObject"
      ],
      "Resource": "arn:aws:s3:::costguardian-reports/*"
    }
  ]
}
`
