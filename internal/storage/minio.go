package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jobfinder/apiserver/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient stores uploads in a MinIO (or other S3-compatible) bucket
// whose objects are readable anonymously.
type MinioClient struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinioClient constructs a MinIO client from config.
func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("minio access key and secret key are required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &MinioClient{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: minioBaseURL(cfg),
	}, nil
}

func minioBaseURL(cfg config.MinioConfig) string {
	if base := strings.TrimSpace(cfg.PublicURL); base != "" {
		return strings.TrimRight(base, "/")
	}
	scheme := "http://"
	if cfg.UseSSL {
		scheme = "https://"
	}
	return scheme + strings.TrimRight(cfg.Endpoint, "/")
}

// EnsureBucket creates the bucket when missing and opens its objects to
// anonymous reads so profile images and resumes load from their URL.
func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", m.bucket, err)
		}
	}
	if err := m.client.SetBucketPolicy(ctx, m.bucket, publicReadPolicy(m.bucket)); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}
	return nil
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}

// Put uploads an object and returns its path-style URL.
func (m *MinioClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: immutableCacheControl,
	})
	if err != nil {
		return "", err
	}
	return m.ObjectURL(key), nil
}

// Delete removes an object from the configured bucket.
func (m *MinioClient) Delete(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

// ObjectURL returns the path-style URL of key.
func (m *MinioClient) ObjectURL(key string) string {
	return m.baseURL + "/" + m.bucket + "/" + key
}

// Bucket returns the configured bucket name.
func (m *MinioClient) Bucket() string {
	return m.bucket
}
