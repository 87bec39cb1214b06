package evidence

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"offScreenAPI/internal/logger"
)

type GCSStore struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string, log *logger.Logger, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("missing EVIDENCE_BUCKET")
	}
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{
		log:    log.With("service", "EvidenceStore", "bucket", bucket),
		client: client,
		bucket: bucket,
	}, nil
}

func (s *GCSStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	s.log.Debug("stored evidence", "key", key, "bytes", len(data))
	return fmt.Sprintf("gs://%s/%s", s.bucket, key), nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
