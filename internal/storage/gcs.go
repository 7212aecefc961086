package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"

	gcs "cloud.google.com/go/storage"
)

type GCSStore struct {
	client *gcs.Client
	bucket string
	prefix string
}

func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("storage: gcs bucket is required")
	}
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSStore{client: c, bucket: bucket, prefix: prefix}, nil
}

func (s *GCSStore) Close() error { return s.client.Close() }

func (s *GCSStore) Read(ctx context.Context, name string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Write uploads in a single request; GCS only makes the new generation visible
// once the writer is closed successfully.
func (s *GCSStore) Write(ctx context.Context, name string, contentType string, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *GCSStore) Type() string { return "gcs" }

func (s *GCSStore) objectName(name string) string {
	if s.prefix != "" {
		return path.Join(s.prefix, name)
	}
	return name
}
