package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore persists artifacts into an S3-compatible bucket.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// MinioOptions configures the object storage connection.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// NewMinioStore connects to the object store and ensures the bucket exists.
func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("storage: minio endpoint is required")
	}
	if opts.Bucket == "" {
		return nil, errors.New("storage: minio bucket is required")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: create bucket: %w", err)
		}
	}

	publicURL := strings.TrimRight(opts.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, opts.Endpoint, opts.Bucket)
	}

	return &MinioStore{client: client, bucket: opts.Bucket, publicURL: publicURL}, nil
}

// Put uploads the bytes under key and returns the public URL.
func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.bucket, cleanKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("storage: put object: %w", err)
	}
	return s.publicURL + "/" + cleanKey, nil
}

var _ BlobStore = (*MinioStore)(nil)
