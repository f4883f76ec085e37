package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/eventhub/apiserver/config"
)

// MinioClient stores images in a MinIO (or any S3 compatible) bucket.
type MinioClient struct {
	client *minio.Client
	bucket string
}

func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	switch {
	case strings.TrimSpace(cfg.Endpoint) == "":
		return nil, errors.New("minio endpoint is required")
	case strings.TrimSpace(cfg.AccessKey) == "", strings.TrimSpace(cfg.SecretKey) == "":
		return nil, errors.New("minio access key and secret key are required")
	case strings.TrimSpace(cfg.Bucket) == "":
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioClient{client: client, bucket: cfg.Bucket}, nil
}

func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil || exists {
		return err
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

func (m *MinioClient) Put(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
		UserMetadata: opts.Metadata,
	})
	return err
}

// Open stats the object before returning it so a missing key surfaces here
// rather than on the first read.
func (m *MinioClient) Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, minioErr(key, err)
	}
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, ObjectInfo{}, minioErr(key, err)
	}
	return obj, ObjectInfo{
		ContentType:  stat.ContentType,
		CacheControl: stat.Metadata.Get("Cache-Control"),
		Size:         stat.Size,
	}, nil
}

func (m *MinioClient) Delete(ctx context.Context, key string) error {
	return minioErr(key, m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}))
}

func (m *MinioClient) Bucket() string {
	return m.bucket
}

func minioErr(key string, err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return err
}
