package source

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	lverrors "github.com/logflow/logvar/pkg/errors"
)

// S3Config holds S3 client configuration.
type S3Config struct {
	// Region is the AWS region (e.g., "us-east-1")
	Region string `yaml:"region" env:"REGION"`

	// Endpoint overrides the default S3 endpoint (for S3-compatible services)
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`

	// UsePathStyle forces path-style addressing (for MinIO, LocalStack)
	UsePathStyle bool `yaml:"use_path_style" env:"USE_PATH_STYLE"`

	// Credentials (optional - uses default chain if not provided).
	// The secret parts are read from the environment only and never written
	// back to a config file.
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"-" env:"SECRET_ACCESS_KEY"`
	SessionToken    string `yaml:"-" env:"SESSION_TOKEN"`

	DownloadTimeout time.Duration `yaml:"download_timeout" env:"DOWNLOAD_TIMEOUT"`
}

// ObjectGetter is the subset of the S3 API used to fetch logs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// IsS3 reports whether location is an s3:// URI.
func IsS3(location string) bool {
	return strings.HasPrefix(location, "s3://")
}

// ParseS3URI splits s3://bucket/key into bucket and key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsS3(uri) {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	rest := strings.TrimPrefix(uri, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri must have the form s3://bucket/key: %q", uri)
	}
	return bucket, key, nil
}

// NewS3Client creates an S3 client from cfg, falling back to the default
// AWS credential chain when no static credentials are given.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

func (o *Opener) s3Client(ctx context.Context) (ObjectGetter, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.client != nil {
		return o.client, nil
	}
	client, err := NewS3Client(ctx, o.s3cfg)
	if err != nil {
		return nil, lverrors.Wrap(err, lverrors.CodeRemoteSource, "s3 client setup failed")
	}
	o.client = client
	return client, nil
}

// openS3 starts the download of uri. The timeout, when positive, bounds the
// whole download and is released when the body is closed.
func openS3(ctx context.Context, client ObjectGetter, uri string, timeout time.Duration) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, lverrors.Wrap(err, lverrors.CodeRemoteSource, "invalid s3 location")
	}

	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		cancel()
		return nil, lverrors.Wrap(err, lverrors.CodeRemoteSource, "s3 download failed").
			WithContext("bucket", bucket).
			WithContext("key", key)
	}
	return &cancelReadCloser{ReadCloser: out.Body, cancel: cancel}, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
