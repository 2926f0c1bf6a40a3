package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/costguardian/costguardian/internal/resource"
)

type mockDynamo struct {
	puts    []*dynamodb.PutItemInput
	queryFn func(input *dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
}

func (m *mockDynamo) PutItem(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.puts = append(m.puts, input)
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamo) Query(_ context.Context, input *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.queryFn != nil {
		return m.queryFn(input)
	}
	return &dynamodb.QueryOutput{}, nil
}

func mustMarshal(t *testing.T, rec resource.Record) map[string]ddbtypes.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(toItem(rec))
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return av
}

func sampleRecord(id string, stage resource.Stage, observed time.Time) resource.Record {
	return resource.Record{
		ResourceID:   id,
		ObservedAt:   observed,
		Type:         resource.TypeComputeInstance,
		Stage:        stage,
		IdleCount:    2,
		Signals:      resource.Signals{CPUAveragePct: 1.5},
		Name:         "test",
		SizeLabel:    "t3.large",
		MonthlyCost:  60,
		FirstSeenAt:  observed.Add(-48 * time.Hour),
		TransitionAt: observed,
	}
}

func TestPutWritesCompositeKeys(t *testing.T) {
	mock := &mockDynamo{}
	store := New(mock, "costguardian-resources")

	observed := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	rec := sampleRecord("i-0put", resource.StageQuarantine, observed)
	rec.QuarantinedAt = observed

	if err := store.Put(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.puts) != 1 {
		t.Fatalf("expected one put, got %d", len(mock.puts))
	}

	item := mock.puts[0].Item
	if got := item["ResourceId"].(*ddbtypes.AttributeValueMemberS).Value; got != "i-0put" {
		t.Fatalf("unexpected partition key %q", got)
	}
	if _, ok := item["Timestamp"].(*ddbtypes.AttributeValueMemberN); !ok {
		t.Fatalf("sort key must be numeric")
	}
	if got := item["TypeStage"].(*ddbtypes.AttributeValueMemberS).Value; got != "compute-instance#quarantine" {
		t.Fatalf("unexpected index key %q", got)
	}
}

func TestLatestRoundTrip(t *testing.T) {
	observed := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	want := sampleRecord("i-0latest", resource.StageIdleWarning, observed)

	mock := &mockDynamo{queryFn: func(input *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		if input.ScanIndexForward == nil || *input.ScanIndexForward {
			t.Fatalf("latest must query newest-first")
		}
		return &dynamodb.QueryOutput{Items: []map[string]ddbtypes.AttributeValue{mustMarshal(t, want)}}, nil
	}}
	store := New(mock, "costguardian-resources")

	got, err := store.Latest(context.Background(), "i-0latest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatalf("expected a record")
	}
	if got.Stage != want.Stage || got.IdleCount != want.IdleCount || !got.ObservedAt.Equal(observed) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.FirstSeenAt.Equal(want.FirstSeenAt) {
		t.Fatalf("first seen must survive the round trip, got %v", got.FirstSeenAt)
	}
}

func TestLatestUnknownResource(t *testing.T) {
	store := New(&mockDynamo{}, "costguardian-resources")

	got, err := store.Latest(context.Background(), "i-0missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for an unobserved resource, got %+v", got)
	}
}

func TestInStageKeepsNewestPerResource(t *testing.T) {
	base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	older := sampleRecord("i-0dup", resource.StageQuarantine, base)
	newer := sampleRecord("i-0dup", resource.StageQuarantine, base.Add(24*time.Hour))
	newer.IdleCount = 5

	mock := &mockDynamo{queryFn: func(input *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		if input.IndexName == nil || *input.IndexName != StageIndex {
			t.Fatalf("stage listing must use the GSI")
		}
		return &dynamodb.QueryOutput{Items: []map[string]ddbtypes.AttributeValue{
			mustMarshal(t, older),
			mustMarshal(t, newer),
		}}, nil
	}}
	store := New(mock, "costguardian-resources")

	recs, err := store.InStage(context.Background(), resource.TypeComputeInstance, resource.StageQuarantine)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one deduped record, got %d", len(recs))
	}
	if recs[0].IdleCount != 5 {
		t.Fatalf("expected the newest row to win, got %+v", recs[0])
	}
}

func TestSavingsEventsSkipVanished(t *testing.T) {
	deleted := time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC)

	engineDeleted := sampleRecord("i-0claimed", resource.StageDeleted, deleted)
	engineDeleted.DeletedAt = deleted
	vanished := sampleRecord("i-0vanished", resource.StageDeleted, deleted)
	vanished.DeletedAt = deleted
	vanished.Vanished = true

	mock := &mockDynamo{queryFn: func(input *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		ts := input.ExpressionAttributeValues[":ts"].(*ddbtypes.AttributeValueMemberS).Value
		if ts != "compute-instance#deleted" {
			return &dynamodb.QueryOutput{}, nil
		}
		return &dynamodb.QueryOutput{Items: []map[string]ddbtypes.AttributeValue{
			mustMarshal(t, engineDeleted),
			mustMarshal(t, vanished),
		}}, nil
	}}
	store := New(mock, "costguardian-resources")

	events, err := store.SavingsEvents(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one savings event, got %d", len(events))
	}
	if events[0].ResourceID != "i-0claimed" || events[0].MonthlySavings != 60 {
		t.Fatalf("unexpected event %+v", events[0])
	}
	if !events[0].DeletedAt.Equal(deleted) {
		t.Fatalf("unexpected deletion time %v", events[0].DeletedAt)
	}
}
