package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"user_account_backend/internal/config"
	"user_account_backend/internal/shared"
)

// S3Store keeps objects in Amazon S3 or an S3-compatible endpoint.
type S3Store struct {
	client *s3.Client
	logger *zap.Logger
}

var _ shared.ObjectStore = (*S3Store)(nil)

// NewS3Store uses static credentials when S3_ACCESS_KEY is set and the default
// AWS credential chain otherwise. S3_ENDPOINT switches to path-style addressing.
func NewS3Store(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
		awsconfig.WithResponseChecksumValidation(aws.ResponseChecksumValidationWhenRequired),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		logger.Error("Failed to load AWS configuration", zap.Error(err))
		return nil, fmt.Errorf("error loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Info("S3 object store initialized", zap.String("region", cfg.S3Region), zap.String("endpoint", cfg.S3Endpoint))
	return &S3Store{client: client, logger: logger}, nil
}

func (s *S3Store) Upload(ctx context.Context, r io.Reader, objectPath, bucket, contentType string) error {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	body, size, err := readAllSized(r)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("Failed to upload object", zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.Info("Object stored", zap.String("bucket", bucket), zap.String("key", key))
	return nil
}

func (s *S3Store) Download(ctx context.Context, objectPath, bucket string) ([]byte, error) {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", shared.ErrObjectNotFound, bucket, key)
		}
		s.logger.Error("Failed to download object", zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}
