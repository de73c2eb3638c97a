// Package minio stores report photos in an S3-compatible bucket.
package minio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// photoPrefix is the key prefix every uploaded photo lives under.
const photoPrefix = "reports"

// publicReadPolicy lets browsers fetch photos by URL without credentials.
const publicReadPolicy = `{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Allow",
    "Principal": {"AWS": ["*"]},
    "Action": ["s3:GetObject"],
    "Resource": ["arn:aws:s3:::%s/%s/*"]
  }]
}`

// PhotoStore uploads report photos and returns their public URLs.
type PhotoStore struct {
	mc     *minio.Client
	bucket string
	clock  clockwork.Clock
	newID  func() string
	logger *slog.Logger
}

// NewPhotoStore creates a client for the given endpoint. No request is made
// until EnsureBucket or Upload.
func NewPhotoStore(endpoint, access, secret string, useTLS bool, bucket string, logger *slog.Logger) (*PhotoStore, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &PhotoStore{
		mc:     mc,
		bucket: bucket,
		clock:  clockwork.NewRealClock(),
		newID:  func() string { return uuid.NewString() },
		logger: logger,
	}, nil
}

// EnsureBucket creates the bucket if missing and makes the photo prefix
// publicly readable.
func (s *PhotoStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
		s.logger.Info("created photo bucket", "bucket", s.bucket)
	}
	if err := s.mc.SetBucketPolicy(ctx, s.bucket, fmt.Sprintf(publicReadPolicy, s.bucket, photoPrefix)); err != nil {
		return fmt.Errorf("set bucket policy %s: %w", s.bucket, err)
	}
	return nil
}

// Upload stores body under a dated, random object name and returns its URL.
// ext includes the leading dot.
func (s *PhotoStore) Upload(ctx context.Context, ext, contentType string, size int64, body io.Reader) (string, error) {
	object := BuildObjectPath(s.clock.Now(), s.newID()+ext)
	info, err := s.mc.PutObject(ctx, s.bucket, object, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", object, err)
	}
	s.logger.Debug("photo stored", "object", object, "size", info.Size)
	return objectURL(s.mc.EndpointURL(), s.bucket, object), nil
}

// BuildObjectPath returns reports/YYYY/MM/DD/<file> using the UTC date of t.
func BuildObjectPath(t time.Time, file string) string {
	t = t.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s", photoPrefix, t.Year(), t.Month(), t.Day(), file)
}

func objectURL(endpoint *url.URL, bucket, object string) string {
	u := *endpoint
	u.Path = "/" + bucket + "/" + object
	return u.String()
}
