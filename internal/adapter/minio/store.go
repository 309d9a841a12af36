// Package minio uploads run artifacts to an S3-compatible bucket.
package minio

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"sync"

	"github.com/couchcryptid/weather-eda/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store puts files into a single bucket, creating it on first use.
type Store struct {
	client *minio.Client
	bucket string
	logger *slog.Logger

	bucketOnce sync.Once
	bucketErr  error
}

// New creates a Store from the MinIO settings in cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Store{client: client, bucket: cfg.MinioBucket, logger: logger}, nil
}

// Upload copies the file at path to key.
func (s *Store) Upload(ctx context.Context, key, path string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	info, err := s.client.FPutObject(ctx, s.bucket, key, path, minio.PutObjectOptions{
		ContentType: contentType(path),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	s.logger.Debug("artifact uploaded", "bucket", s.bucket, "key", key, "size", info.Size)
	return nil
}

// CheckReadiness reports whether the bucket endpoint is reachable.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("minio not reachable: %w", err)
	}
	return nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	s.bucketOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketErr = fmt.Errorf("check bucket %s: %w", s.bucket, err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.bucketErr = fmt.Errorf("create bucket %s: %w", s.bucket, err)
			return
		}
		s.logger.Info("bucket created", "bucket", s.bucket)
	})
	return s.bucketErr
}

func contentType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
