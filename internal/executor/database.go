package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/costguardian/costguardian/internal/resource"
)

// databaseStrategy handles RDS instances. Backup takes a DB snapshot, so
// deletion skips the final snapshot.
type databaseStrategy struct {
	client   RDSAPI
	archiver *Archiver
}

func (s *databaseStrategy) Backup(ctx context.Context, c resource.Candidate) (string, error) {
	if _, err := s.archiver.Save(ctx, c); err != nil {
		return "", err
	}

	snapshotID := fmt.Sprintf("costguardian-%s-%d", c.ID, time.Now().Unix())
	_, err := s.client.CreateDBSnapshot(ctx, &rds.CreateDBSnapshotInput{
		DBInstanceIdentifier: aws.String(c.ID),
		DBSnapshotIdentifier: aws.String(snapshotID),
	})
	if err != nil {
		return "", fmt.Errorf("create DB snapshot for %s: %w", c.ID, err)
	}
	slog.Info("Created pre-quarantine DB snapshot", "instance", c.ID, "snapshot", snapshotID)
	return snapshotID, nil
}

func (s *databaseStrategy) Quarantine(ctx context.Context, c resource.Candidate) error {
	_, err := s.client.StopDBInstance(ctx, &rds.StopDBInstanceInput{
		DBInstanceIdentifier: aws.String(c.ID),
	})
	if err != nil {
		// Already stopped counts as quarantined.
		if isNotFound(err) || hasErrorCode(err, "InvalidDBInstanceState") {
			return nil
		}
		return fmt.Errorf("stop DB instance %s: %w", c.ID, err)
	}
	return nil
}

func (s *databaseStrategy) Delete(ctx context.Context, c resource.Candidate) error {
	_, err := s.client.DeleteDBInstance(ctx, &rds.DeleteDBInstanceInput{
		DBInstanceIdentifier: aws.String(c.ID),
		// Backup already produced a snapshot.
		SkipFinalSnapshot:      aws.Bool(true),
		DeleteAutomatedBackups: aws.Bool(false),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete DB instance %s: %w", c.ID, err)
	}
	return nil
}
