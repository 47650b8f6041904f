package minio

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Nazmiassofa/SosmedUploader/internal/infra/objectkey"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Storage is the S3-compatible transient store (MinIO, Cloudflare R2).
type Storage struct {
	client     *miniogo.Client
	bucket     string
	region     string
	publicBase string
	publicRead bool
	now        func() time.Time
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Region        string
	Bucket        string
	PublicBaseURL string
	PublicRead    bool
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:     client,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		publicBase: cfg.PublicBaseURL,
		publicRead: cfg.PublicRead,
		now:        time.Now,
	}, nil
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, miniogo.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func (s *Storage) Put(ctx context.Context, content []byte, folder, ext string) (string, error) {
	key := objectkey.New(folder, ext, s.now())

	opts := miniogo.PutObjectOptions{ContentType: objectkey.ContentType(ext)}
	if s.publicRead {
		opts.UserMetadata = map[string]string{"x-amz-acl": "public-read"}
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)), opts)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return objectkey.PublicURL(s.publicBase, key), nil
}

func (s *Storage) Delete(ctx context.Context, publicURL string) error {
	key, err := objectkey.FromURL(s.publicBase, publicURL)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, miniogo.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
