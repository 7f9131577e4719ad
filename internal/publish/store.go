package publish

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vk/rnaflow/internal/config"
)

// Store is the object storage surface the publisher needs.
type Store interface {
	EnsureBucket(ctx context.Context, bucket, region string) error
	PutFile(ctx context.Context, bucket, key, path, contentType string) error
}

// MinioStore implements Store with minio-go.
type MinioStore struct {
	client *minio.Client
}

// NewMinioStore connects to the endpoint named by p.
func NewMinioStore(p config.Publish) (*MinioStore, error) {
	client, err := minio.New(p.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(p.AccessKey, p.SecretKey, ""),
		Secure:    p.UseSSL,
		Region:    p.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return &MinioStore{client: client}, nil
}

// EnsureBucket creates bucket when it does not exist.
func (s *MinioStore) EnsureBucket(ctx context.Context, bucket, region string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

// PutFile uploads the file at path.
func (s *MinioStore) PutFile(ctx context.Context, bucket, key, path, contentType string) error {
	_, err := s.client.FPutObject(ctx, bucket, key, path, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
