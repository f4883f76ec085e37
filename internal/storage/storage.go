package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// MaxImageSize bounds profile photo and banner uploads.
const MaxImageSize = 10 << 20

// Image keys are never rewritten, so clients may cache them forever.
const imageCacheControl = "public, max-age=31536000, immutable"

const (
	prefixUsers  = "users/"
	prefixEvents = "events/"
)

var (
	// ErrUnsupportedContentType is returned for uploads that are not a known image type.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrTooLarge is returned for uploads over MaxImageSize.
	ErrTooLarge = errors.New("image too large")

	// ErrObjectNotFound is returned when a key does not name a stored image.
	ErrObjectNotFound = errors.New("object not found")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// PutOptions are the object attributes written with an upload.
type PutOptions struct {
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	ContentType  string
	CacheControl string
	Size         int64
}

// ObjectStorage is the bucket interface shared by the MinIO and GCS clients.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) error
	// Open returns ErrObjectNotFound for a missing key.
	Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage holds profile photos and event banners on an ObjectStorage backend.
type Storage struct {
	backend ObjectStorage
}

func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// PutProfilePhoto stores a user's photo and returns its object key.
func (s *Storage) PutProfilePhoto(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (string, error) {
	return s.putImage(ctx, prefixUsers+userID+"/photo", map[string]string{"user-id": userID}, r, size, contentType)
}

// PutEventBanner stores an event banner and returns its object key.
func (s *Storage) PutEventBanner(ctx context.Context, eventID string, r io.Reader, size int64, contentType string) (string, error) {
	return s.putImage(ctx, prefixEvents+eventID+"/banner", map[string]string{"event-id": eventID}, r, size, contentType)
}

// OpenImage streams a stored photo or banner. Keys outside the image
// prefixes are reported as missing.
func (s *Storage) OpenImage(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if !IsImageKey(key) {
		return nil, ObjectInfo{}, fmt.Errorf("%w: %q", ErrObjectNotFound, key)
	}
	return s.backend.Open(ctx, key)
}

// DeleteImage removes a stored photo or banner. A missing object is not an error.
func (s *Storage) DeleteImage(ctx context.Context, key string) error {
	if !IsImageKey(key) {
		return nil
	}
	err := s.backend.Delete(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		return nil
	}
	return err
}

func (s *Storage) putImage(ctx context.Context, prefix string, metadata map[string]string, r io.Reader, size int64, contentType string) (string, error) {
	key, ct, err := imageKey(prefix, contentType)
	if err != nil {
		return "", err
	}
	if size > MaxImageSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, size, MaxImageSize)
	}
	opts := PutOptions{ContentType: ct, CacheControl: imageCacheControl, Metadata: metadata}
	if err := s.backend.Put(ctx, key, r, size, opts); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

// ImageKey returns a fresh object key under prefix. Each upload gets its own
// key so cached URLs of the previous image stay valid.
func ImageKey(prefix, contentType string) (string, error) {
	key, _, err := imageKey(prefix, contentType)
	return key, err
}

func imageKey(prefix, contentType string) (string, string, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	ext, ok := imageExtensions[ct]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
	return fmt.Sprintf("%s-%s%s", prefix, uuid.NewString(), ext), ct, nil
}

// IsImageKey reports whether key is shaped like a key this package issues.
func IsImageKey(key string) bool {
	if strings.Contains(key, "..") {
		return false
	}
	return strings.HasPrefix(key, prefixUsers) || strings.HasPrefix(key, prefixEvents)
}
