package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	appconfig "schedshare/core/config"
	"schedshare/core/logger"
	"schedshare/modules/sync/dto"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Archiver stores the summary of a finished sync run for later inspection.
type Archiver interface {
	ArchiveRun(ctx context.Context, userID uuid.UUID, summary dto.SyncSummary, finishedAt time.Time) error
}

type s3Archiver struct {
	client *s3.Client
	bucket string
}

type archivedRun struct {
	UserID     uuid.UUID       `json:"user_id"`
	FinishedAt time.Time       `json:"finished_at"`
	Summary    dto.SyncSummary `json:"summary"`
}

// NewS3Archiver builds the S3-backed run archiver, or nil when no archive
// bucket is configured.
func NewS3Archiver(cfg appconfig.SyncConfig) Archiver {
	if cfg.ArchiveBucket == "" {
		return nil
	}

	awsCfg := aws.Config{
		Region:      cfg.ArchiveRegion,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
	}

	logger.Info("S3 run archiver initialized", "bucket", cfg.ArchiveBucket, "region", cfg.ArchiveRegion)
	return &s3Archiver{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.ArchiveBucket,
	}
}

func (a *s3Archiver) ArchiveRun(ctx context.Context, userID uuid.UUID, summary dto.SyncSummary, finishedAt time.Time) error {
	body, err := json.Marshal(archivedRun{
		UserID:     userID,
		FinishedAt: finishedAt,
		Summary:    summary,
	})
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}

	key := fmt.Sprintf("sync-runs/%s/%s.json", userID, finishedAt.Format("20060102T150405Z"))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive run summary: %w", err)
	}
	return nil
}
