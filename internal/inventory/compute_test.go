package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	awsx "github.com/costguardian/costguardian/internal/aws"
	"github.com/costguardian/costguardian/internal/resource"
)

type mockComputeClient struct {
	reservations []ec2types.Reservation
	err          error
}

func (m *mockComputeClient) DescribeInstances(_ context.Context, _ *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &ec2.DescribeInstancesOutput{Reservations: m.reservations}, nil
}

type mockCloudWatchClient struct {
	getMetricDataFn func(ctx context.Context, input *cloudwatch.GetMetricDataInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
}

func (m *mockCloudWatchClient) GetMetricData(ctx context.Context, input *cloudwatch.GetMetricDataInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error) {
	return m.getMetricDataFn(ctx, input, opts...)
}

func newMockMetricsFetcher(values map[string]float64) *awsx.MetricsFetcher {
	return awsx.NewMetricsFetcher(&mockCloudWatchClient{
		getMetricDataFn: func(_ context.Context, input *cloudwatch.GetMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error) {
			var results []cwtypes.MetricDataResult
			for i, q := range input.MetricDataQueries {
				if q.MetricStat == nil || len(q.MetricStat.Metric.Dimensions) == 0 {
					continue
				}
				id := *q.MetricStat.Metric.Dimensions[0].Value
				if val, ok := values[id]; ok {
					results = append(results, cwtypes.MetricDataResult{
						Id:     awssdk.String(fmt.Sprintf("m%d", i)),
						Values: []float64{val},
					})
				}
			}
			return &cloudwatch.GetMetricDataOutput{MetricDataResults: results}, nil
		},
	})
}

func failingMetricsFetcher() *awsx.MetricsFetcher {
	return awsx.NewMetricsFetcher(&mockCloudWatchClient{
		getMetricDataFn: func(_ context.Context, _ *cloudwatch.GetMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error) {
			return nil, errors.New("throttled")
		},
	})
}

func instance(id string, state ec2types.InstanceStateName, tags ...ec2types.Tag) ec2types.Instance {
	return ec2types.Instance{
		InstanceId:   awssdk.String(id),
		InstanceType: ec2types.InstanceTypeT3Large,
		State:        &ec2types.InstanceState{Name: state},
		Tags:         tags,
	}
}

func TestComputeScannerCollectsCPUSignal(t *testing.T) {
	mock := &mockComputeClient{reservations: []ec2types.Reservation{
		{Instances: []ec2types.Instance{
			instance("i-0idle", ec2types.InstanceStateNameRunning,
				ec2types.Tag{Key: awssdk.String("Name"), Value: awssdk.String("idle-web")}),
		}},
	}}

	scanner := NewComputeScanner(mock, newMockMetricsFetcher(map[string]float64{"i-0idle": 2.3}), "us-east-1")
	result, err := scanner.Scan(context.Background(), ScanConfig{LookbackDays: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(result.Candidates))
	}
	c := result.Candidates[0]
	if c.Signals.CPUAveragePct != 2.3 {
		t.Fatalf("expected CPU 2.3, got %v", c.Signals.CPUAveragePct)
	}
	if c.Name != "idle-web" || c.SizeLabel != "t3.large" {
		t.Fatalf("unexpected candidate %+v", c)
	}
	if c.MonthlyCost <= 0 {
		t.Fatalf("expected a priced candidate, got %v", c.MonthlyCost)
	}
}

func TestComputeScannerStoppedInstanceNeedsNoMetric(t *testing.T) {
	mock := &mockComputeClient{reservations: []ec2types.Reservation{
		{Instances: []ec2types.Instance{instance("i-0stopped", ec2types.InstanceStateNameStopped)}},
	}}

	scanner := NewComputeScanner(mock, failingMetricsFetcher(), "us-east-1")
	result, err := scanner.Scan(context.Background(), ScanConfig{LookbackDays: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Candidates) != 1 || !result.Candidates[0].Signals.Stopped {
		t.Fatalf("expected a stopped candidate, got %+v", result.Candidates)
	}
}

func TestComputeScannerProtectedTagExempts(t *testing.T) {
	mock := &mockComputeClient{reservations: []ec2types.Reservation{
		{Instances: []ec2types.Instance{
			instance("i-0protected", ec2types.InstanceStateNameRunning,
				ec2types.Tag{Key: awssdk.String("CostGuardian"), Value: awssdk.String("Ignore")}),
			instance("i-0plain", ec2types.InstanceStateNameRunning),
		}},
	}}

	cfg := ScanConfig{LookbackDays: 1, ProtectTagKey: "CostGuardian", ProtectTagValue: "Ignore"}
	scanner := NewComputeScanner(mock, newMockMetricsFetcher(map[string]float64{"i-0plain": 1.0}), "us-east-1")
	result, err := scanner.Scan(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Candidates) != 1 || result.Candidates[0].ID != "i-0plain" {
		t.Fatalf("protected instance must not be a candidate: %+v", result.Candidates)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "i-0protected" {
		t.Fatalf("protected instance must be reported as skipped: %v", result.Skipped)
	}
}

func TestComputeScannerMetricOutageSkipsRunning(t *testing.T) {
	mock := &mockComputeClient{reservations: []ec2types.Reservation{
		{Instances: []ec2types.Instance{instance("i-0blind", ec2types.InstanceStateNameRunning)}},
	}}

	scanner := NewComputeScanner(mock, failingMetricsFetcher(), "us-east-1")
	result, err := scanner.Scan(context.Background(), ScanConfig{LookbackDays: 1})
	if err != nil {
		t.Fatalf("metric outage must not fail the scan: %v", err)
	}
	if len(result.Candidates) != 0 {
		t.Fatalf("expected no candidates, got %+v", result.Candidates)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "i-0blind" {
		t.Fatalf("unreadable instances must be skipped: %v", result.Skipped)
	}
}

func TestComputeScannerEnumerationFailureFails(t *testing.T) {
	mock := &mockComputeClient{err: errors.New("access denied")}
	scanner := NewComputeScanner(mock, failingMetricsFetcher(), "us-east-1")

	if _, err := scanner.Scan(context.Background(), ScanConfig{LookbackDays: 1}); err == nil {
		t.Fatalf("enumeration failure must fail the scan")
	}
}

func TestRunCarriesScannerErrors(t *testing.T) {
	good := &mockComputeClient{reservations: nil}
	scanner := NewComputeScanner(good, failingMetricsFetcher(), "us-east-1")

	results := Run(context.Background(), []Scanner{scanner}, ScanConfig{LookbackDays: 1}, 2)
	tr, ok := results[resource.TypeComputeInstance]
	if !ok {
		t.Fatalf("expected a result for compute-instance")
	}
	if tr.Err != nil {
		t.Fatalf("empty account scans cleanly, got %v", tr.Err)
	}

	bad := &mockComputeClient{err: errors.New("throttled")}
	results = Run(context.Background(), []Scanner{NewComputeScanner(bad, failingMetricsFetcher(), "us-east-1")}, ScanConfig{LookbackDays: 1}, 2)
	if results[resource.TypeComputeInstance].Err == nil {
		t.Fatalf("scanner failure must be carried in the result")
	}
}
