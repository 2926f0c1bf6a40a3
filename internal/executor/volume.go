package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/costguardian/costguardian/internal/resource"
)

// volumeStrategy handles EBS volumes. There is no stoppable form, so
// quarantine is a ledger-only hold; backup snapshots the volume.
type volumeStrategy struct {
	client   EC2API
	archiver *Archiver
}

func (s *volumeStrategy) Backup(ctx context.Context, c resource.Candidate) (string, error) {
	if _, err := s.archiver.Save(ctx, c); err != nil {
		return "", err
	}

	out, err := s.client.CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
		VolumeId:    aws.String(c.ID),
		Description: aws.String("costguardian pre-deletion snapshot"),
	})
	if err != nil {
		return "", fmt.Errorf("snapshot volume %s: %w", c.ID, err)
	}
	snapshotID := aws.ToString(out.SnapshotId)
	slog.Info("Created pre-deletion volume snapshot", "volume", c.ID, "snapshot", snapshotID)
	return snapshotID, nil
}

func (s *volumeStrategy) Quarantine(ctx context.Context, c resource.Candidate) error {
	return nil
}

func (s *volumeStrategy) Delete(ctx context.Context, c resource.Candidate) error {
	_, err := s.client.DeleteVolume(ctx, &ec2.DeleteVolumeInput{
		VolumeId: aws.String(c.ID),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete volume %s: %w", c.ID, err)
	}
	return nil
}
