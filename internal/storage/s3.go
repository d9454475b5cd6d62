package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/eacouncil/membership/pkg/logger"
)

// DefaultUploadTTL bounds how long a presigned URL stays usable.
const DefaultUploadTTL = 15 * time.Minute

// S3Config configures the S3-backed presigner. Endpoint is optional and
// supports S3-compatible stores such as MinIO.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UploadTTL       time.Duration
}

// S3Presigner issues presigned PUT URLs against a configured bucket.
type S3Presigner struct {
	client *s3.PresignClient
	bucket string
	ttl    time.Duration
	now    func() time.Time
}

// NewS3Presigner builds a presigner from static or ambient credentials.
func NewS3Presigner(ctx context.Context, cfg S3Config) (*S3Presigner, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := cfg.UploadTTL
	if ttl <= 0 {
		ttl = DefaultUploadTTL
	}

	logger.WithModule("storage").Info("s3 presigner configured",
		zap.String("bucket", cfg.Bucket), zap.Duration("upload_ttl", ttl))
	return &S3Presigner{
		client: s3.NewPresignClient(client),
		bucket: cfg.Bucket,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (p *S3Presigner) Enabled() bool { return true }

// PresignUpload returns a PUT URL scoped to a fresh server-generated key.
func (p *S3Presigner) PresignUpload(ctx context.Context, filename, contentType string) (*PresignedUpload, error) {
	key := ObjectKey(filename)

	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return nil, fmt.Errorf("storage: presign put: %w", err)
	}

	return &PresignedUpload{
		Key:       key,
		URL:       req.URL,
		Method:    req.Method,
		ExpiresAt: p.now().Add(p.ttl),
	}, nil
}
