package aws

import (
	"context"
	"fmt"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type mockCloudWatchClient struct {
	getMetricDataFn func(ctx context.Context, input *cloudwatch.GetMetricDataInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
}

func (m *mockCloudWatchClient) GetMetricData(ctx context.Context, input *cloudwatch.GetMetricDataInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error) {
	return m.getMetricDataFn(ctx, input, opts...)
}

func TestFetchAverageMapsQueryIDs(t *testing.T) {
	fetcher := NewMetricsFetcher(&mockCloudWatchClient{
		getMetricDataFn: func(_ context.Context, input *cloudwatch.GetMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error) {
			var results []cwtypes.MetricDataResult
			for i, q := range input.MetricDataQueries {
				id := *q.MetricStat.Metric.Dimensions[0].Value
				if id == "i-0nodata" {
					continue
				}
				results = append(results, cwtypes.MetricDataResult{
					Id:     awssdk.String(fmt.Sprintf("m%d", i)),
					Values: []float64{10, 20, 30},
				})
			}
			return &cloudwatch.GetMetricDataOutput{MetricDataResults: results}, nil
		},
	})

	got, err := fetcher.FetchAverage(context.Background(), "AWS/EC2", "CPUUtilization", "InstanceId",
		[]string{"i-0first", "i-0nodata", "i-0second"}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(got), got)
	}
	if got["i-0first"] != 20 {
		t.Fatalf("expected average 20, got %v", got["i-0first"])
	}
	if _, ok := got["i-0nodata"]; ok {
		t.Fatalf("IDs without datapoints must be absent, got %v", got)
	}
}

func TestFetchSumAggregates(t *testing.T) {
	fetcher := NewMetricsFetcher(&mockCloudWatchClient{
		getMetricDataFn: func(_ context.Context, input *cloudwatch.GetMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error) {
			return &cloudwatch.GetMetricDataOutput{MetricDataResults: []cwtypes.MetricDataResult{
				{Id: awssdk.String("m0"), Values: []float64{100, 250}},
			}}, nil
		},
	})

	got, err := fetcher.FetchSum(context.Background(), "AWS/NATGateway", "BytesOutToDestination", "NatGatewayId",
		[]string{"nat-0quiet"}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["nat-0quiet"] != 350 {
		t.Fatalf("expected sum 350, got %v", got["nat-0quiet"])
	}
}

func TestFetchMetricNoIDs(t *testing.T) {
	fetcher := NewMetricsFetcher(&mockCloudWatchClient{
		getMetricDataFn: func(_ context.Context, _ *cloudwatch.GetMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error) {
			t.Fatalf("no call expected for an empty ID set")
			return nil, nil
		},
	})

	got, err := fetcher.FetchAverage(context.Background(), "AWS/EC2", "CPUUtilization", "InstanceId", nil, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil map, got %v", got)
	}
}
