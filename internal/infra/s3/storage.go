package s3

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Nazmiassofa/SosmedUploader/internal/infra/objectkey"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Storage is the transient store backed by the AWS SDK. A custom endpoint
// points it at R2 or MinIO.
type Storage struct {
	client     *awss3.Client
	bucket     string
	publicBase string
	publicRead bool
	timeout    time.Duration
	now        func() time.Time
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Region        string
	Bucket        string
	PublicBaseURL string
	PublicRead    bool
	UsePathStyle  bool
	Timeout       time.Duration
}

func NewStorage(ctx context.Context, cfg StorageConfig) (*Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		o.RetryMaxAttempts = 1
	})

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Storage{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: cfg.PublicBaseURL,
		publicRead: cfg.PublicRead,
		timeout:    timeout,
		now:        time.Now,
	}, nil
}

func (s *Storage) Put(ctx context.Context, content []byte, folder, ext string) (string, error) {
	key := objectkey.New(folder, ext, s.now())

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	in := &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(objectkey.ContentType(ext)),
	}
	if s.publicRead {
		in.ACL = types.ObjectCannedACLPublicRead
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return objectkey.PublicURL(s.publicBase, key), nil
}

func (s *Storage) Delete(ctx context.Context, publicURL string) error {
	key, err := objectkey.FromURL(s.publicBase, publicURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
