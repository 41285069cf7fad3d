// Package storage archives raw transcript payloads to S3. Archiving is
// optional: a nil *S3 is a valid no-op receiver for callers.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// FolderTranscripts is the S3 prefix for archived transcript payloads.
const FolderTranscripts = "transcripts"

// S3Config holds S3 client configuration.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ArchiveBucket   string
}

// S3 uploads transcript payloads to the archive bucket.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using static credentials when provided, falling
// back to the default credential chain.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	} else {
		logger.Warn("S3 client using default credential chain")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client)
	logger.Info("S3 transcript archive enabled", zap.String("region", cfg.Region), zap.String("bucket", cfg.ArchiveBucket))
	return &S3{client: client, uploader: uploader, cfg: cfg, logger: logger}, nil
}

// TranscriptKey returns the object key for a bot's raw transcript payload.
func TranscriptKey(botID string) string {
	return path.Join(FolderTranscripts, botID, fmt.Sprintf("%d.txt", time.Now().Unix()))
}

// ArchiveTranscript uploads the raw transcript body and returns the object
// key. A nil receiver skips archiving and returns "".
func (s *S3) ArchiveTranscript(ctx context.Context, botID, body string) (string, error) {
	if s == nil || body == "" {
		return "", nil
	}
	key := TranscriptKey(botID)
	contentType := "text/plain; charset=utf-8"
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &s.cfg.ArchiveBucket,
		Key:         &key,
		Body:        strings.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("archive transcript: %w", err)
	}
	s.logger.Debug("transcript archived", zap.String("bot_id", botID), zap.String("key", key))
	return key, nil
}
