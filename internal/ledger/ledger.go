// Package ledger persists resource lifecycle state in DynamoDB. Every
// observation is one immutable row keyed by (ResourceId, Timestamp); the
// latest row for a resource is its current state. Rows are also indexed
// by type and stage so stage-wide queries avoid table scans.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/costguardian/costguardian/internal/resource"
)

// StageIndex is the GSI projecting rows by TypeStage so a whole stage can
// be listed without scanning the table.
const StageIndex = "type-stage-index"

// DynamoDBAPI is the minimal interface the store needs.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Ledger is the persistence surface the lifecycle engine and the savings
// aggregator depend on.
type Ledger interface {
	// Latest returns the most recent row for a resource, or nil when the
	// resource has never been observed.
	Latest(ctx context.Context, resourceID string) (*resource.Record, error)
	// Put appends one observation row.
	Put(ctx context.Context, rec resource.Record) error
	// InStage returns the most recent row per resource among rows written
	// in the given type and stage. Callers must confirm against Latest
	// before treating a resource as currently in that stage.
	InStage(ctx context.Context, t resource.Type, stage resource.Stage) ([]resource.Record, error)
	// SavingsEvents returns the terminal deletion row of every resource
	// that reached the Deleted stage, across all types.
	SavingsEvents(ctx context.Context) ([]resource.SavingsEvent, error)
}

// Store is the DynamoDB-backed Ledger.
type Store struct {
	client DynamoDBAPI
	table  string
}

// New creates a store writing to the given table.
func New(client DynamoDBAPI, table string) *Store {
	return &Store{client: client, table: table}
}

// item is the DynamoDB row shape. Timestamps are unix seconds so range
// queries and the GSI sort key stay numeric.
type item struct {
	ResourceID    string           `dynamodbav:"ResourceId"`
	Timestamp     int64            `dynamodbav:"Timestamp"`
	TypeStage     string           `dynamodbav:"TypeStage"`
	ResourceType  string           `dynamodbav:"ResourceType"`
	Stage         string           `dynamodbav:"Stage"`
	IdleCount     int              `dynamodbav:"IdleCount"`
	Signals       resource.Signals `dynamodbav:"Signals"`
	Name          string           `dynamodbav:"Name,omitempty"`
	SizeLabel     string           `dynamodbav:"SizeLabel,omitempty"`
	MonthlyCost   float64          `dynamodbav:"MonthlyCost"`
	BackupRef     string           `dynamodbav:"BackupRef,omitempty"`
	FirstSeenAt   int64            `dynamodbav:"FirstSeenAt"`
	TransitionAt  int64            `dynamodbav:"TransitionAt"`
	QuarantinedAt int64            `dynamodbav:"QuarantinedAt,omitempty"`
	DeletedAt     int64            `dynamodbav:"DeletedAt,omitempty"`
	Vanished      bool             `dynamodbav:"Vanished,omitempty"`
	Reason        string           `dynamodbav:"Reason,omitempty"`
}

func typeStage(t resource.Type, stage resource.Stage) string {
	return string(t) + "#" + string(stage)
}

func toItem(rec resource.Record) item {
	it := item{
		ResourceID:   rec.ResourceID,
		Timestamp:    rec.ObservedAt.Unix(),
		TypeStage:    typeStage(rec.Type, rec.Stage),
		ResourceType: string(rec.Type),
		Stage:        string(rec.Stage),
		IdleCount:    rec.IdleCount,
		Signals:      rec.Signals,
		Name:         rec.Name,
		SizeLabel:    rec.SizeLabel,
		MonthlyCost:  rec.MonthlyCost,
		BackupRef:    rec.BackupRef,
		FirstSeenAt:  rec.FirstSeenAt.Unix(),
		TransitionAt: rec.TransitionAt.Unix(),
		Vanished:     rec.Vanished,
		Reason:       rec.Reason,
	}
	if !rec.QuarantinedAt.IsZero() {
		it.QuarantinedAt = rec.QuarantinedAt.Unix()
	}
	if !rec.DeletedAt.IsZero() {
		it.DeletedAt = rec.DeletedAt.Unix()
	}
	return it
}

func fromItem(it item) resource.Record {
	rec := resource.Record{
		ResourceID:   it.ResourceID,
		ObservedAt:   time.Unix(it.Timestamp, 0).UTC(),
		Type:         resource.Type(it.ResourceType),
		Stage:        resource.Stage(it.Stage),
		IdleCount:    it.IdleCount,
		Signals:      it.Signals,
		Name:         it.Name,
		SizeLabel:    it.SizeLabel,
		MonthlyCost:  it.MonthlyCost,
		BackupRef:    it.BackupRef,
		FirstSeenAt:  time.Unix(it.FirstSeenAt, 0).UTC(),
		TransitionAt: time.Unix(it.TransitionAt, 0).UTC(),
		Vanished:     it.Vanished,
		Reason:       it.Reason,
	}
	if it.QuarantinedAt != 0 {
		rec.QuarantinedAt = time.Unix(it.QuarantinedAt, 0).UTC()
	}
	if it.DeletedAt != 0 {
		rec.DeletedAt = time.Unix(it.DeletedAt, 0).UTC()
	}
	return rec
}

// Put appends one observation row. Rows are never updated in place.
func (s *Store) Put(ctx context.Context, rec resource.Record) error {
	av, err := attributevalue.MarshalMap(toItem(rec))
	if err != nil {
		return fmt.Errorf("marshal ledger row for %s: %w", rec.ResourceID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put ledger row for %s: %w", rec.ResourceID, err)
	}
	return nil
}

// Latest returns the most recent row for a resource, or nil when the
// resource has never been observed.
func (s *Store) Latest(ctx context.Context, resourceID string) (*resource.Record, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("ResourceId = :id"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":id": &ddbtypes.AttributeValueMemberS{Value: resourceID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query ledger for %s: %w", resourceID, err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Items[0], &it); err != nil {
		return nil, fmt.Errorf("unmarshal ledger row for %s: %w", resourceID, err)
	}
	rec := fromItem(it)
	return &rec, nil
}

// InStage returns the most recent row per resource among rows written in
// the given type and stage.
func (s *Store) InStage(ctx context.Context, t resource.Type, stage resource.Stage) ([]resource.Record, error) {
	latest := make(map[string]resource.Record)

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(StageIndex),
		KeyConditionExpression: aws.String("TypeStage = :ts"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":ts": &ddbtypes.AttributeValueMemberS{Value: typeStage(t, stage)},
		},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s/%s rows: %w", t, stage, err)
		}
		for _, raw := range page.Items {
			var it item
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				slog.Warn("Skipping malformed ledger row", "type", t, "stage", stage, "error", err)
				continue
			}
			if prev, ok := latest[it.ResourceID]; !ok || it.Timestamp > prev.ObservedAt.Unix() {
				latest[it.ResourceID] = fromItem(it)
			}
		}
	}

	records := make([]resource.Record, 0, len(latest))
	for _, rec := range latest {
		records = append(records, rec)
	}
	return records, nil
}

// SavingsEvents returns the terminal deletion row of every resource that
// reached the Deleted stage. A resource is deleted at most once, so one
// row per resource exists; duplicates from replayed runs keep the earliest.
func (s *Store) SavingsEvents(ctx context.Context) ([]resource.SavingsEvent, error) {
	var events []resource.SavingsEvent
	seen := make(map[string]int)

	for _, t := range resource.AllTypes() {
		records, err := s.InStage(ctx, t, resource.StageDeleted)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			// Out-of-band removals are finalized without a savings claim.
			if rec.Vanished {
				continue
			}
			ev := resource.SavingsEvent{
				ResourceID:     rec.ResourceID,
				Type:           rec.Type,
				SizeLabel:      rec.SizeLabel,
				MonthlySavings: rec.MonthlyCost,
				DeletedAt:      rec.DeletedAt,
			}
			if idx, ok := seen[rec.ResourceID]; ok {
				if ev.DeletedAt.Before(events[idx].DeletedAt) {
					events[idx] = ev
				}
				continue
			}
			seen[rec.ResourceID] = len(events)
			events = append(events, ev)
		}
	}
	return events, nil
}
