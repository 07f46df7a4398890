package backup

import (
	"bytes"
	"context"
	"fmt"

	"github.com/formicag/ACEReportHub/internal/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig locates the bucket archives are written to.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
}

// MinioSink writes archives to an S3-compatible bucket.
type MinioSink struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioSink connects and makes sure the bucket exists.
func NewMinioSink(ctx context.Context, cfg MinioConfig) (*MinioSink, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioSink{client: cli, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Backup uploads the archive and stats it back; the size must match before it counts.
func (m *MinioSink) Backup(ctx context.Context, archive *models.Archive, reason string) (string, error) {
	data, err := Encode(archive)
	if err != nil {
		return "", err
	}
	key := m.prefix + Name(takenAt(archive), reason)

	if _, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	}); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	info, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("verify %s: %w", key, err)
	}
	if info.Size != int64(len(data)) {
		return "", fmt.Errorf("verify %s: stored %d bytes, wrote %d", key, info.Size, len(data))
	}

	return fmt.Sprintf("s3://%s/%s", m.bucket, key), nil
}
