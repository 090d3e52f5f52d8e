// Package publish mirrors rendered reports to S3-compatible object storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/abdul-hamid-achik/hitboard/packages/core/config"
	"github.com/abdul-hamid-achik/hitboard/packages/notify"
)

const reportContentType = "text/html; charset=utf-8"

// ObjectStore is the subset of *minio.Client the publisher uses
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Publisher uploads each finished report. It implements notify.Notifier
// so the orchestrator runs it after a run completes.
type Publisher struct {
	store  ObjectStore
	bucket string
	region string
	prefix string
	logger *slog.Logger
}

// Option is a functional option for Publisher
type Option func(*Publisher)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithStore replaces the object store client
func WithStore(s ObjectStore) Option {
	return func(p *Publisher) {
		p.store = s
	}
}

// New creates a publisher for cfg. Without WithStore a MinIO client is
// built from the endpoint and static credentials.
func New(cfg config.PublishConfig, opts ...Option) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("publish bucket is required")
	}

	p := &Publisher{
		bucket: cfg.Bucket,
		region: cfg.Region,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.store == nil {
		if cfg.Endpoint == "" {
			return nil, errors.New("publish endpoint is required")
		}
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure:    cfg.UseSSL,
			Region:    cfg.Region,
			Transport: newTransport(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create object storage client: %w", err)
		}
		p.store = client
	}

	return p, nil
}

// Name returns the name of the notifier
func (p *Publisher) Name() string {
	return "publish"
}

// ObjectKey returns the object name a report is stored under
func (p *Publisher) ObjectKey(reportName string) string {
	if p.prefix == "" {
		return reportName
	}
	return path.Join(p.prefix, reportName)
}

// EnsureBucket creates the bucket when it does not exist yet
func (p *Publisher) EnsureBucket(ctx context.Context) error {
	exists, err := p.store.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", p.bucket, err)
	}
	if exists {
		return nil
	}
	if err := p.store.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", p.bucket, err)
	}
	p.logger.Info("created report bucket", "bucket", p.bucket)
	return nil
}

// Notify uploads the report of a finished run
func (p *Publisher) Notify(ctx context.Context, summary *notify.RunSummary) error {
	if summary.ReportPath == "" {
		return errors.New("run has no report file")
	}

	key := p.ObjectKey(summary.ReportName)
	info, err := p.store.FPutObject(ctx, p.bucket, key, summary.ReportPath, minio.PutObjectOptions{
		ContentType: reportContentType,
		UserMetadata: map[string]string{
			"passed": fmt.Sprintf("%d", summary.PassedTests),
			"failed": fmt.Sprintf("%d", summary.FailedTests),
			"total":  fmt.Sprintf("%d", summary.TotalTests),
		},
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	p.logger.Info("report published", "bucket", p.bucket, "key", key, "size", info.Size)
	return nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
