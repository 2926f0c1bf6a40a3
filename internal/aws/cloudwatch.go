package aws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	// maxMetricDataQueries is the maximum number of metric queries per GetMetricData call.
	maxMetricDataQueries = 500
	// metricPeriodSeconds is the aggregation period for CloudWatch metrics (1 hour).
	metricPeriodSeconds = 3600
)

// CloudWatchAPI is the minimal interface for CloudWatch metric reads.
type CloudWatchAPI interface {
	GetMetricData(ctx context.Context, input *cloudwatch.GetMetricDataInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
}

// MetricsFetcher retrieves CloudWatch utilization metrics in batches.
type MetricsFetcher struct {
	client CloudWatchAPI
}

// NewMetricsFetcher creates a fetcher using the given CloudWatch client.
func NewMetricsFetcher(client CloudWatchAPI) *MetricsFetcher {
	return &MetricsFetcher{client: client}
}

// FetchAverage retrieves the average value of a metric for a set of resource
// IDs over a trailing lookback window. Returns a map of resource ID to value;
// IDs with no datapoints are absent from the map.
func (f *MetricsFetcher) FetchAverage(ctx context.Context, namespace, metricName, dimensionName string, ids []string, lookbackDays int) (map[string]float64, error) {
	return f.fetchMetric(ctx, namespace, metricName, dimensionName, ids, lookbackDays, "Average")
}

// FetchSum retrieves the sum of a metric for a set of resource IDs over a
// trailing lookback window.
func (f *MetricsFetcher) FetchSum(ctx context.Context, namespace, metricName, dimensionName string, ids []string, lookbackDays int) (map[string]float64, error) {
	return f.fetchMetric(ctx, namespace, metricName, dimensionName, ids, lookbackDays, "Sum")
}

func (f *MetricsFetcher) fetchMetric(ctx context.Context, namespace, metricName, dimensionName string, ids []string, lookbackDays int, stat string) (map[string]float64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	startTime := now.Add(-time.Duration(lookbackDays) * 24 * time.Hour)

	results := make(map[string]float64, len(ids))

	for start := 0; start < len(ids); start += maxMetricDataQueries {
		end := min(start+maxMetricDataQueries, len(ids))
		batch := ids[start:end]
		slog.Debug("Fetching CloudWatch metrics", "metric", metricName, "count", len(batch))

		queries := make([]cwtypes.MetricDataQuery, 0, len(batch))
		for i, id := range batch {
			queries = append(queries, cwtypes.MetricDataQuery{
				Id: awssdk.String(fmt.Sprintf("m%d", i)),
				MetricStat: &cwtypes.MetricStat{
					Metric: &cwtypes.Metric{
						Namespace:  awssdk.String(namespace),
						MetricName: awssdk.String(metricName),
						Dimensions: []cwtypes.Dimension{
							{Name: awssdk.String(dimensionName), Value: awssdk.String(id)},
						},
					},
					Period: awssdk.Int32(metricPeriodSeconds),
					Stat:   awssdk.String(stat),
				},
			})
		}

		out, err := f.client.GetMetricData(ctx, &cloudwatch.GetMetricDataInput{
			MetricDataQueries: queries,
			StartTime:         awssdk.Time(startTime),
			EndTime:           awssdk.Time(now),
		})
		if err != nil {
			return nil, fmt.Errorf("get metric data (%s/%s): %w", namespace, metricName, err)
		}

		for _, res := range out.MetricDataResults {
			if res.Id == nil || len(res.Values) == 0 {
				continue
			}
			// Map the query ID back to the resource ID in this batch.
			var idx int
			if _, err := fmt.Sscanf(*res.Id, "m%d", &idx); err != nil || idx >= len(batch) {
				continue
			}

			var total float64
			for _, v := range res.Values {
				total += v
			}
			if stat == "Average" {
				results[batch[idx]] = total / float64(len(res.Values))
			} else {
				results[batch[idx]] = total
			}
		}
	}

	return results, nil
}
