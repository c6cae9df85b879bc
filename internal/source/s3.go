package source

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hyperjump/kura/internal/config"
	"github.com/hyperjump/kura/internal/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultS3Endpoint = "s3.amazonaws.com"

// S3Source reads a CSV or Excel object from S3-compatible storage.
type S3Source struct {
	client *minio.Client
	bucket string
	key    string
	format string
	sheet  string
}

// NewS3Source creates a client for cfg. The format comes from cfg.Format or the key extension.
func NewS3Source(cfg *config.S3Config, sheet string) (*S3Source, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("s3 source: bucket and key are required")
	}
	format := cfg.Format
	if format == "" {
		f, err := FormatFromPath(cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("s3 source: %w", err)
		}
		format = f
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultS3Endpoint
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  s3Credentials(cfg),
		Secure: cfg.UseSSLOrDefault(),
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return &S3Source{client: client, bucket: cfg.Bucket, key: cfg.Key, format: format, sheet: sheet}, nil
}

// s3Credentials uses the configured static keys, or the standard AWS chain
// (environment, shared credentials file, instance role) when none are set.
func s3Credentials(cfg *config.S3Config) *credentials.Credentials {
	if cfg.AccessKey != "" {
		return credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	return credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.FileAWSCredentials{},
		&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
	})
}

// Name returns the object URL.
func (s *S3Source) Name() string {
	return "s3://" + s.bucket + "/" + s.key
}

// Load downloads the object and parses it.
func (s *S3Source) Load(ctx context.Context) ([]models.Record, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", s.Name(), err)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", s.Name(), err)
	}
	return ParseBytes(content, s.format, s.sheet)
}
