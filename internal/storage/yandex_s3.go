package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"voxeval/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const DefaultRegion = "ru-central1"

type S3Storage struct {
	client   *s3.Client
	bucket   string
	endpoint string
	now      func() time.Time
}

// NewS3Storage creates a client for an S3-compatible object storage.
// Source recordings live there only while recognition runs.
func NewS3Storage(ctx context.Context, endpoint, region, accessKey, secretKey, bucket string) (*S3Storage, error) {
	if region == "" {
		region = DefaultRegion
	}

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	logger.Info("S3 storage initialized", zap.String("bucket", bucket))

	return &S3Storage{
		client:   client,
		bucket:   bucket,
		endpoint: strings.TrimRight(endpoint, "/"),
		now:      time.Now,
	}, nil
}

// UploadFile uploads an object and returns its path-style URL, which is
// what SpeechKit expects as the audio URI.
func (s *S3Storage) UploadFile(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	url := s.ObjectURL(key)

	logger.Info("File uploaded to S3",
		zap.String("key", key),
		zap.String("url", url))

	return url, nil
}

func (s *S3Storage) ObjectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
}

// GenerateKey generates a unique key for S3 object
func (s *S3Storage) GenerateKey(taskID, extension string) string {
	day := s.now().UTC().Format("2006/01/02")
	return path.Join("voice", day, taskID+extension)
}

// DeleteFile deletes a file from S3
func (s *S3Storage) DeleteFile(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Debug("File deleted from S3", zap.String("key", key))

	return nil
}
