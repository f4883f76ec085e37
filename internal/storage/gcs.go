package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/eventhub/apiserver/config"
)

// Images are small; a single upload chunk avoids resumable sessions.
const gcsChunkSize = MaxImageSize

// GCSClient stores images in a Google Cloud Storage bucket.
type GCSClient struct {
	client    *storage.Client
	bucket    string
	projectID string
}

func NewGCSClient(ctx context.Context, cfg config.GCSConfig) (*GCSClient, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSClient{client: client, bucket: cfg.Bucket, projectID: cfg.ProjectID}, nil
}

func (g *GCSClient) EnsureBucket(ctx context.Context) error {
	bucket := g.client.Bucket(g.bucket)
	_, err := bucket.Attrs(ctx)
	if err == nil || !errors.Is(err, storage.ErrBucketNotExist) {
		return err
	}
	if strings.TrimSpace(g.projectID) == "" {
		return errors.New("gcs project id is required to create bucket")
	}
	return bucket.Create(ctx, g.projectID, nil)
}

func (g *GCSClient) Put(ctx context.Context, key string, r io.Reader, _ int64, opts PutOptions) error {
	writer := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	writer.ChunkSize = gcsChunkSize
	writer.ContentType = opts.ContentType
	writer.CacheControl = opts.CacheControl
	writer.Metadata = opts.Metadata
	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

func (g *GCSClient) Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	reader, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, ObjectInfo{}, gcsErr(key, err)
	}
	return reader, ObjectInfo{
		ContentType:  reader.Attrs.ContentType,
		CacheControl: reader.Attrs.CacheControl,
		Size:         reader.Attrs.Size,
	}, nil
}

func (g *GCSClient) Delete(ctx context.Context, key string) error {
	return gcsErr(key, g.client.Bucket(g.bucket).Object(key).Delete(ctx))
}

func (g *GCSClient) Bucket() string {
	return g.bucket
}

// Close releases the SDK client.
func (g *GCSClient) Close() error {
	return g.client.Close()
}

func gcsErr(key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return err
}
