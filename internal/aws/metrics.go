package aws

import (
	"context"
	"log/slog"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// opsNamespace is the CloudWatch namespace for the engine's own metrics.
const opsNamespace = "CostGuardian"

// MetricsAPI is the minimal interface for publishing operational metrics.
type MetricsAPI interface {
	PutMetricData(ctx context.Context, input *cloudwatch.PutMetricDataInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// OpsRecorder publishes per-run counters to CloudWatch. Failures are
// logged and swallowed; metrics never fail a run.
type OpsRecorder struct {
	client MetricsAPI
}

// NewOpsRecorder creates a recorder using the given CloudWatch client.
func NewOpsRecorder(client MetricsAPI) *OpsRecorder {
	return &OpsRecorder{client: client}
}

// Record publishes one counter value under the CostGuardian namespace.
func (r *OpsRecorder) Record(ctx context.Context, name string, value float64) {
	if r == nil || r.client == nil {
		return
	}

	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: awssdk.String(opsNamespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: awssdk.String(name),
				Value:      awssdk.Float64(value),
				Unit:       cwtypes.StandardUnitCount,
				Timestamp:  awssdk.Time(time.Now().UTC()),
			},
		},
	})
	if err != nil {
		slog.Warn("Failed to publish ops metric", "metric", name, "error", err)
	}
}
