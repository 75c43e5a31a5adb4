package repository

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/quantum-grit/your-sofia/signal-service/internal/config"
	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
	"github.com/rs/zerolog"
)

// PhotoStore persists uploaded signal photos and hands back their store id.
type PhotoStore interface {
	SavePhoto(ctx context.Context, payload models.PhotoPayload) (id, url string, err error)
	DeletePhoto(ctx context.Context, id string) error
}

type MinIORepository struct {
	client    *minio.Client
	bucket    string
	region    string
	publicURL string
	logger    zerolog.Logger

	ensureMu      sync.Mutex
	bucketEnsured bool
}

func NewMinIORepository(cfg config.MinIOConfig, logger zerolog.Logger) (*MinIORepository, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	repo := &MinIORepository{
		client:    client,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		logger:    logger,
	}

	// Startup must survive a MinIO that is still booting; uploads retry the bucket check.
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := repo.ensureBucket(ctx); err != nil {
		logger.Error().Err(err).
			Str("endpoint", cfg.Endpoint).
			Str("bucket", cfg.Bucket).
			Msg("MinIO not ready during startup, photo uploads will retry")
	}

	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("bucket", cfg.Bucket).
		Bool("ssl", cfg.UseSSL).
		Msg("Connected to MinIO")

	return repo, nil
}

func (r *MinIORepository) ensureBucket(ctx context.Context) error {
	r.ensureMu.Lock()
	defer r.ensureMu.Unlock()
	if r.bucketEnsured {
		return nil
	}

	backoff := 500 * time.Millisecond
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("minio not ready: %w", err)
		}

		exists, err := r.client.BucketExists(ctx, r.bucket)
		if err != nil {
			time.Sleep(backoff)
			continue
		}

		if !exists {
			if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{Region: r.region}); err != nil {
				time.Sleep(backoff)
				continue
			}
			r.logger.Info().Str("bucket", r.bucket).Msg("Created new bucket")
		}

		r.bucketEnsured = true
		return nil
	}
}

func photoObjectName(id string) string {
	return "photos/" + id
}

func (r *MinIORepository) SavePhoto(ctx context.Context, payload models.PhotoPayload) (string, string, error) {
	if err := r.ensureBucket(ctx); err != nil {
		return "", "", err
	}

	contentType := payload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := uuid.New().String()
	object := photoObjectName(id)
	info, err := r.client.PutObject(ctx, r.bucket, object, bytes.NewReader(payload.Content), int64(len(payload.Content)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"original-name": payload.FileName},
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload photo: %w", err)
	}

	r.logger.Debug().
		Str("photo_id", id).
		Str("local_key", payload.LocalKey).
		Str("etag", info.ETag).
		Int64("size", info.Size).
		Msg("Photo uploaded to MinIO")

	return id, fmt.Sprintf("%s/%s/%s", r.publicURL, r.bucket, object), nil
}

func (r *MinIORepository) DeletePhoto(ctx context.Context, id string) error {
	if err := r.ensureBucket(ctx); err != nil {
		return err
	}

	if err := r.client.RemoveObject(ctx, r.bucket, photoObjectName(id), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}

	r.logger.Debug().Str("photo_id", id).Msg("Photo deleted from MinIO")
	return nil
}
