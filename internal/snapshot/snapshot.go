// Package snapshot copies the page file to S3-compatible object storage after
// every few indexed chunks, so a lost indexer host can be rebuilt from the
// last upload.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/metrics"
)

// ObjectStore is the subset of *minio.Client the uploader uses.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Source is the file being snapshotted. *pagestore.Index satisfies it.
type Source interface {
	Path() string
	Sync() error
}

// NewMinIO builds a MinIO client from cfg.
func NewMinIO(cfg config.SnapshotConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	return client, nil
}

// Uploader uploads Source to a bucket once every `every` committed chunks.
type Uploader struct {
	store   ObjectStore
	source  Source
	bucket  string
	prefix  string
	every   int
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	pending int
}

// NewUploader returns an Uploader. every values below one upload after each
// chunk. m may be nil.
func NewUploader(store ObjectStore, source Source, cfg config.SnapshotConfig, m *metrics.Metrics) *Uploader {
	every := cfg.EveryChunks
	if every < 1 {
		every = 1
	}
	return &Uploader{
		store:   store,
		source:  source,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		every:   every,
		metrics: m,
		logger:  slog.Default().With("component", "snapshot", "bucket", cfg.Bucket),
		now:     time.Now,
	}
}

// EnsureBucket creates the bucket if it does not exist.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.store.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", u.bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.store.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", u.bucket, err)
	}
	u.logger.Info("bucket created")
	return nil
}

// ChunkCommitted counts one indexed chunk and uploads when the count reaches
// the configured interval. It reports whether an upload happened. A failed
// upload keeps the count, so the next chunk retries it.
func (u *Uploader) ChunkCommitted(ctx context.Context) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pending++
	if u.pending < u.every {
		return false, nil
	}
	if _, err := u.upload(ctx); err != nil {
		return false, err
	}
	u.pending = 0
	return true, nil
}

// Upload syncs the source and uploads it immediately, returning the object
// name.
func (u *Uploader) Upload(ctx context.Context) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	name, err := u.upload(ctx)
	if err == nil {
		u.pending = 0
	}
	return name, err
}

func (u *Uploader) upload(ctx context.Context) (string, error) {
	start := time.Now()
	if err := u.source.Sync(); err != nil {
		u.count("error")
		return "", fmt.Errorf("syncing before snapshot: %w", err)
	}
	name := u.objectName()
	info, err := u.store.FPutObject(ctx, u.bucket, name, u.source.Path(), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		u.count("error")
		u.logger.Error("snapshot upload failed", "object", name, "error", err)
		return "", fmt.Errorf("uploading snapshot %s: %w", name, err)
	}
	u.count("success")
	u.logger.Info("snapshot uploaded",
		"object", name,
		"size", info.Size,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return name, nil
}

// objectName is <prefix><base>-<UTC timestamp><ext>, so uploads sort by time.
func (u *Uploader) objectName() string {
	base := filepath.Base(u.source.Path())
	ext := filepath.Ext(base)
	stamp := u.now().UTC().Format("20060102T150405Z")
	name := fmt.Sprintf("%s-%s%s", strings.TrimSuffix(base, ext), stamp, ext)
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

func (u *Uploader) count(status string) {
	if u.metrics != nil {
		u.metrics.SnapshotUploads.WithLabelValues(status).Inc()
	}
}
