package minio

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"claim-evaluator/internal/config"
)

// New connects to MinIO and makes sure the configured bucket exists.
func New(ctx context.Context, cfg config.StorageConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client failed: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(checkCtx, cfg.MinIOBucket)
	if err != nil {
		return nil, fmt.Errorf("check minio bucket failed: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(checkCtx, cfg.MinIOBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create minio bucket %s failed: %w", cfg.MinIOBucket, err)
		}
	}
	return client, nil
}
