package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

const objectPrefix = "documents/"

type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(client *minio.Client, bucket string) *MinIOStore {
	return &MinIOStore{client: client, bucket: bucket}
}

func (s *MinIOStore) Name() string { return "minio" }

func (s *MinIOStore) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectPrefix+key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s failed: %w", key, err)
	}
	return nil
}

func (s *MinIOStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectPrefix+key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s failed: %w", key, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat object %s failed: %w", key, err)
	}
	return obj, nil
}

func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectPrefix+key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s failed: %w", key, err)
	}
	return nil
}
