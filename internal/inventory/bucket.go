package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/costguardian/costguardian/internal/resource"
)

// BucketAPI is the minimal interface for S3 bucket enumeration.
type BucketAPI interface {
	ListBuckets(ctx context.Context, input *s3.ListBucketsInput, opts ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetBucketTagging(ctx context.Context, input *s3.GetBucketTaggingInput, opts ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error)
}

// BucketScanner enumerates S3 buckets with their object-count signal.
// Only emptiness matters for the lifecycle, so one keyed page suffices.
type BucketScanner struct {
	client BucketAPI
	region string
}

// NewBucketScanner creates a scanner for S3 buckets.
func NewBucketScanner(client BucketAPI, region string) *BucketScanner {
	return &BucketScanner{client: client, region: region}
}

// Type returns the resource type this scanner handles.
func (s *BucketScanner) Type() resource.Type {
	return resource.TypeObjectStoreBucket
}

// Scan enumerates all buckets. Per-bucket tagging or listing failures skip
// that bucket and continue.
func (s *BucketScanner) Scan(ctx context.Context, cfg ScanConfig) (*ScanResult, error) {
	out, err := s.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	result := &ScanResult{}
	for _, bucket := range out.Buckets {
		name := deref(bucket.Name)

		tags, err := s.bucketTags(ctx, name)
		if err != nil {
			slog.Warn("Failed to fetch bucket tags", "bucket", name, "error", err)
			result.Skipped = append(result.Skipped, name)
			continue
		}
		if cfg.protected(tags) {
			result.Skipped = append(result.Skipped, name)
			continue
		}

		objects, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  awssdk.String(name),
			MaxKeys: awssdk.Int32(1),
		})
		if err != nil {
			slog.Warn("Failed to list bucket objects", "bucket", name, "error", err)
			result.Skipped = append(result.Skipped, name)
			continue
		}

		result.Candidates = append(result.Candidates, resource.Candidate{
			Type:      resource.TypeObjectStoreBucket,
			ID:        name,
			Name:      name,
			SizeLabel: resource.TypeObjectStoreBucket.ServiceCode(),
			Region:    s.region,
			Tags:      tags,
			Signals: resource.Signals{
				ObjectCount: int64(derefInt32(objects.KeyCount)),
			},
			// Empty buckets cost nothing directly; deleting them reduces
			// blast radius, not spend.
			MonthlyCost: 0,
		})
	}

	return result, nil
}

// bucketTags fetches the bucket tag set. A bucket with no tag set at all is
// not an error.
func (s *BucketScanner) bucketTags(ctx context.Context, name string) (map[string]string, error) {
	out, err := s.client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: awssdk.String(name)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchTagSet" {
			return nil, nil
		}
		return nil, err
	}
	return s3TagsToMap(out.TagSet), nil
}
