package executor

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/costguardian/costguardian/internal/resource"
)

// bucketStrategy handles S3 buckets. Only empty buckets are classified
// idle, so deletion never force-empties; a BucketNotEmpty failure keeps
// the bucket in its stage.
type bucketStrategy struct {
	client   S3API
	archiver *Archiver
}

func (s *bucketStrategy) Backup(ctx context.Context, c resource.Candidate) (string, error) {
	return s.archiver.Save(ctx, c)
}

func (s *bucketStrategy) Quarantine(ctx context.Context, c resource.Candidate) error {
	return nil
}

func (s *bucketStrategy) Delete(ctx context.Context, c resource.Candidate) error {
	_, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(c.ID),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete bucket %s: %w", c.ID, err)
	}
	return nil
}
