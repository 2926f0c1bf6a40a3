package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/costguardian/costguardian/internal/resource"
)

// Archiver writes pre-deletion config snapshots to S3. The key is
// deterministic per resource so verification never depends on ledger
// state.
type Archiver struct {
	client S3API
	bucket string
}

// NewArchiver creates an archiver writing to the given bucket.
func NewArchiver(client S3API, bucket string) *Archiver {
	return &Archiver{client: client, bucket: bucket}
}

// archiveKey is backups/<service>/<id>.json, e.g. backups/ec2/i-0abc.json.
func archiveKey(c resource.Candidate) string {
	return fmt.Sprintf("backups/%s/%s.json", strings.ToLower(c.Type.ServiceCode()), c.ID)
}

// Save writes the candidate's config JSON and returns its S3 reference.
func (a *Archiver) Save(ctx context.Context, c resource.Candidate) (string, error) {
	body, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal config backup for %s: %w", c.ID, err)
	}

	key := archiveKey(c)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("write config backup for %s: %w", c.ID, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

// Exists reports whether the candidate's config backup is present.
func (a *Archiver) Exists(ctx context.Context, c resource.Candidate) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(archiveKey(c)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("check config backup for %s: %w", c.ID, err)
	}
	return true, nil
}
