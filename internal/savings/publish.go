package savings

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/costguardian/costguardian/internal/resource"
)

const (
	reportKey     = "dashboard/data.json"
	archivePrefix = "dashboard/reports/"
)

// S3API is the minimal interface for publishing report documents.
type S3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, input *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Publisher writes the dashboard report and month archives to S3.
type Publisher struct {
	client S3API
	bucket string
}

// NewPublisher creates a publisher for the given bucket.
func NewPublisher(client S3API, bucket string) *Publisher {
	return &Publisher{client: client, bucket: bucket}
}

// Publish replaces dashboard/data.json. The dashboard polls this object,
// so caching is disabled on it.
func (p *Publisher) Publish(ctx context.Context, report Report) error {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(reportKey),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String("no-cache, no-store, must-revalidate"),
	})
	if err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	slog.Info("Published dashboard report", "bucket", p.bucket, "key", reportKey)
	return nil
}

// ArchiveClosedMonth writes the previous calendar month's report to
// dashboard/reports/<YYYY-MM>.json and .csv, once. A month with no
// deletions is not archived.
func (p *Publisher) ArchiveClosedMonth(ctx context.Context, events []resource.SavingsEvent, now time.Time) error {
	base := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	closed := base.AddDate(0, -1, 0)

	report := BuildMonth(events, closed)
	if report.TotalResources == 0 {
		return nil
	}

	jsonKey := archivePrefix + report.Month + ".json"
	exists, err := p.exists(ctx, jsonKey)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal month archive %s: %w", report.Month, err)
	}
	if err := p.put(ctx, jsonKey, body, "application/json"); err != nil {
		return err
	}
	if err := p.put(ctx, archivePrefix+report.Month+".csv", monthCSV(report), "text/csv"); err != nil {
		return err
	}

	slog.Info("Archived closed month", "month", report.Month, "resources", report.TotalResources)
	return nil
}

func (p *Publisher) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (p *Publisher) exists(ctx context.Context, key string) (bool, error) {
	_, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && strings.Contains(apiErr.ErrorCode(), "NotFound") {
			return false, nil
		}
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	return true, nil
}

func monthCSV(report MonthReport) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	_ = w.Write([]string{"date", "resource_id", "resource_type", "instance_type", "monthly_savings"})
	for _, d := range report.Details {
		_ = w.Write([]string{
			d.Date,
			d.ResourceID,
			d.ResourceType,
			d.InstanceType,
			strconv.FormatFloat(d.MonthlySavings, 'f', 2, 64),
		})
	}
	w.Flush()
	return buf.Bytes()
}
