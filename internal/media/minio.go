package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"whatsapp-lite/internal/apperr"
	"whatsapp-lite/internal/config"
)

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinIOStore uploads decoded images to a bucket and stores their public URL.
type MinIOStore struct {
	client  objectPutter
	bucket  string
	baseURL string
	newID   func() string
}

// NewMinIOStore connects to MinIO and makes sure the bucket exists.
func NewMinIOStore(ctx context.Context, cfg config.MinIOConfig, logger *zap.Logger) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("minio bucket created", zap.String("bucket", cfg.Bucket))
	}

	return newMinIOStore(client, cfg), nil
}

func newMinIOStore(client objectPutter, cfg config.MinIOConfig) *MinIOStore {
	base := cfg.PublicURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return &MinIOStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(base, "/"),
		newID:   uuid.NewString,
	}
}

func (s *MinIOStore) Store(ctx context.Context, ownerID int64, payload string) (string, error) {
	if IsReference(payload) {
		return payload, nil
	}
	img, err := Decode(payload)
	if err != nil {
		return "", err
	}

	object := fmt.Sprintf("messages/%d/%s%s", ownerID, s.newID(), img.Extension())
	_, err = s.client.PutObject(ctx, s.bucket, object, bytes.NewReader(img.Data), int64(len(img.Data)), minio.PutObjectOptions{
		ContentType: img.ContentType,
	})
	if err != nil {
		return "", apperr.Infra("upload image", err)
	}
	return s.baseURL + "/" + s.bucket + "/" + object, nil
}
