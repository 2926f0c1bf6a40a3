// Package notifier emits lifecycle alerts to an SNS topic. Alerts are
// advisory: a publish failure is logged and swallowed, never blocking a
// transition.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/costguardian/costguardian/internal/resource"
)

// SNSAPI is the minimal interface for publishing alerts.
type SNSAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput, opts ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier publishes transition alerts. A nil Notifier and a Notifier
// with an empty topic are both no-ops, so callers never branch.
type Notifier struct {
	client       SNSAPI
	topic        string
	protectKey   string
	protectValue string
}

// New creates a notifier for the given topic ARN. An empty ARN disables
// publishing. The protection pair is quoted in alert bodies as the
// exemption instruction.
func New(client SNSAPI, topicARN, protectKey, protectValue string) *Notifier {
	return &Notifier{client: client, topic: topicARN, protectKey: protectKey, protectValue: protectValue}
}

// Transition announces a stage change for one resource.
func (n *Notifier) Transition(ctx context.Context, rec resource.Record, from resource.Stage) {
	subject := fmt.Sprintf("[CostGuardian] %s: %s -> %s", rec.ResourceID, from, rec.Stage)
	body := fmt.Sprintf(
		"Resource:        %s\nName:            %s\nType:            %s\nTransition:      %s -> %s\nReason:          %s\nMonthly savings: $%.2f\nWhen:            %s\n\nTag the resource %s=%s to exempt it from lifecycle management.",
		rec.ResourceID, rec.Name, rec.Type, from, rec.Stage, rec.Reason,
		rec.MonthlyCost, rec.TransitionAt.UTC().Format(time.RFC3339),
		n.protectKey, n.protectValue,
	)
	n.publish(ctx, subject, body)
}

// ActionFailed announces an executor failure that kept a resource in its
// stage.
func (n *Notifier) ActionFailed(ctx context.Context, rec resource.Record, action string, cause error) {
	subject := fmt.Sprintf("[CostGuardian] %s failed for %s", action, rec.ResourceID)
	body := fmt.Sprintf(
		"Resource: %s\nType:     %s\nStage:    %s\nAction:   %s\nError:    %v\n\nThe resource stays in its current stage and will be retried next run.",
		rec.ResourceID, rec.Type, rec.Stage, action, cause,
	)
	n.publish(ctx, subject, body)
}

func (n *Notifier) publish(ctx context.Context, subject, body string) {
	if n == nil || n.topic == "" {
		return
	}

	// SNS caps subjects at 100 characters.
	if len(subject) > 100 {
		subject = subject[:97] + "..."
	}

	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topic),
		Subject:  aws.String(subject),
		Message:  aws.String(body),
	})
	if err != nil {
		slog.Warn("Failed to publish alert", "subject", subject, "error", err)
	}
}
