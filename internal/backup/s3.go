// Package backup uploads the SQLite database to S3-compatible storage after
// a run and prunes old copies.
package backup

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/portwatch/internal/config"
)

// Service uploads database backups to a bucket. Custom endpoints cover
// R2/MinIO-style S3-compatible stores.
type Service struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      config.BackupConfig
	dbPath   string
	log      zerolog.Logger
}

// New creates a backup service from config
func New(ctx context.Context, cfg config.BackupConfig, dbPath string, log zerolog.Logger) (*Service, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Service{
		client:   client,
		uploader: manager.NewUploader(client),
		cfg:      cfg,
		dbPath:   dbPath,
		log:      log.With().Str("service", "backup").Logger(),
	}, nil
}

// Upload copies the database file to the bucket under a timestamped key and
// prunes backups beyond the retention count.
func (s *Service) Upload(ctx context.Context) error {
	f, err := os.Open(s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database for backup: %w", err)
	}
	defer f.Close()

	key := fmt.Sprintf("%s/portwatch-%s.db", s.cfg.Prefix, time.Now().UTC().Format("20060102-150405"))

	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}

	s.log.Info().Str("bucket", s.cfg.Bucket).Str("key", key).Msg("Backup uploaded")

	if err := s.prune(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to prune old backups")
	}

	return nil
}

// prune deletes the oldest backups beyond the retention count. Keys embed a
// sortable timestamp, so lexicographic order is chronological.
func (s *Service) prune(ctx context.Context) error {
	if s.cfg.Keep <= 0 {
		return nil
	}

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(s.cfg.Prefix + "/"),
	})
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		if obj.Key != nil {
			keys = append(keys, *obj.Key)
		}
	}
	if len(keys) <= s.cfg.Keep {
		return nil
	}

	sort.Strings(keys)
	for _, key := range keys[:len(keys)-s.cfg.Keep] {
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.cfg.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			return fmt.Errorf("failed to delete old backup %s: %w", key, err)
		}
		s.log.Debug().Str("key", key).Msg("Pruned old backup")
	}

	return nil
}
