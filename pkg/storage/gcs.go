package storage

import (
	"context"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorage writes uploads to a Google Cloud Storage bucket.
type GCSStorage struct {
	client *gcs.Client
	bucket string
}

// NewGCSStorage prefers explicit credentials JSON and falls back to application default credentials.
func NewGCSStorage(ctx context.Context, bucket, credentialsJSON string) (*GCSStorage, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	var (
		client *gcs.Client
		err    error
	)
	if strings.TrimSpace(credentialsJSON) != "" {
		client, err = gcs.NewClient(ctx, option.WithCredentialsJSON([]byte(credentialsJSON)))
	} else {
		client, err = gcs.NewClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

// Put uploads the object and returns its public URL.
func (s *GCSStorage) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	wc := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("write gcs object: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("close gcs object: %w", err)
	}
	return PublicObjectURL(s.bucket, key), nil
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// PublicObjectURL builds the public HTTPS URL of an object.
func PublicObjectURL(bucket, key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, strings.TrimLeft(key, "/"))
}
