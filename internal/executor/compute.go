package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/costguardian/costguardian/internal/resource"
)

// computeStrategy handles EC2 instances. Backup produces both the config
// archive and an AMI; termination is refused unless the config archive
// exists.
type computeStrategy struct {
	client   EC2API
	archiver *Archiver
}

func (s *computeStrategy) Backup(ctx context.Context, c resource.Candidate) (string, error) {
	if _, err := s.archiver.Save(ctx, c); err != nil {
		return "", err
	}

	out, err := s.client.CreateImage(ctx, &ec2.CreateImageInput{
		InstanceId: aws.String(c.ID),
		Name:       aws.String(fmt.Sprintf("costguardian-%s-%d", c.ID, time.Now().Unix())),
		NoReboot:   aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("create image for %s: %w", c.ID, err)
	}
	imageID := aws.ToString(out.ImageId)
	slog.Info("Created pre-quarantine AMI", "instance", c.ID, "image", imageID)
	return imageID, nil
}

func (s *computeStrategy) Quarantine(ctx context.Context, c resource.Candidate) error {
	_, err := s.client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{c.ID},
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("stop instance %s: %w", c.ID, err)
	}
	return nil
}

func (s *computeStrategy) Delete(ctx context.Context, c resource.Candidate) error {
	ok, err := s.archiver.Exists(ctx, c)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("refusing to terminate %s: no config backup found", c.ID)
	}

	_, err = s.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{c.ID},
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("terminate instance %s: %w", c.ID, err)
	}
	return nil
}
