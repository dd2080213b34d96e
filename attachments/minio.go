package attachments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/moyijulius/crime-report-platform/config"
	"github.com/moyijulius/crime-report-platform/models"
)

const minioScheme = "s3://"

// MinIO keeps attachments in an S3 compatible bucket
type MinIO struct {
	client *minio.Client
	bucket string
}

// NewMinIO connects to the endpoint and creates the bucket when missing
func NewMinIO(ctx context.Context, conf config.MinIOConfig) (*MinIO, error) {
	if conf.Endpoint == "" {
		return nil, errors.New("MINIO_ENDPOINT is not set")
	}
	client, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: conf.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(ctx, conf.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", conf.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, conf.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", conf.Bucket, err)
		}
	}
	return &MinIO{client: client, bucket: conf.Bucket}, nil
}

// Name implements Store
func (m *MinIO) Name() string { return "minio" }

// Save implements Store
func (m *MinIO) Save(ctx context.Context, f File) (models.Attachment, error) {
	key := objectKey(f.Name)
	size := f.Size
	if size <= 0 {
		size = -1
	}
	info, err := m.client.PutObject(ctx, m.bucket, key, f.Body, size, minio.PutObjectOptions{ContentType: f.ContentType})
	if err != nil {
		return models.Attachment{}, err
	}
	return models.Attachment{
		Path:         minioScheme + m.bucket + "/" + key,
		OriginalName: f.Name,
		ContentType:  f.ContentType,
		Size:         info.Size,
	}, nil
}

// Delete implements Store
func (m *MinIO) Delete(ctx context.Context, path string) error {
	key := strings.TrimPrefix(path, minioScheme+m.bucket+"/")
	if key == path {
		return fmt.Errorf("attachment %q is not in bucket %s", path, m.bucket)
	}
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}
