package upload

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// GCSProvider implements Provider on top of Google Cloud Storage.
type GCSProvider struct {
	client          *storage.Client
	bucketName      string
	publicAccess    bool
	signedURLExpiry time.Duration
	logger          *zap.Logger
}

// GCSConfig configures the GCS provider. When PublicAccess is set, saved
// objects get a reader ACL for all users and a stable public URL;
// otherwise Save returns a signed URL valid for SignedURLExpiry.
type GCSConfig struct {
	Bucket          string
	PublicAccess    bool
	SignedURLExpiry time.Duration
}

// NewGCSProvider initializes a GCS client and verifies bucket access, so a
// misconfigured deployment fails at startup instead of on the first
// request. Authentication uses Application Default Credentials.
func NewGCSProvider(ctx context.Context, cfg GCSConfig, logger *zap.Logger) (*GCSProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("closing gcs client after bucket check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("get gcs bucket %q attributes: %w", cfg.Bucket, err)
	}
	expiry := cfg.SignedURLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &GCSProvider{
		client:          client,
		bucketName:      cfg.Bucket,
		publicAccess:    cfg.PublicAccess,
		signedURLExpiry: expiry,
		logger:          logger,
	}, nil
}

// Save uploads screenshot bytes to the bucket and returns the resulting
// object with its URL.
func (g *GCSProvider) Save(ctx context.Context, objectName string, data []byte, contentType string) (Object, error) {
	obj := g.client.Bucket(g.bucketName).Object(objectName)

	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=31536000"
	if _, err := wc.Write(data); err != nil {
		// Close anyway to release the writer; the write error is the one
		// worth reporting.
		if closeErr := wc.Close(); closeErr != nil {
			g.logger.Warn("closing gcs writer after write failure", zap.Error(closeErr))
		}
		return Object{}, fmt.Errorf("write gcs object %s: %w", objectName, err)
	}
	// Close finalizes the upload and flushes buffered data.
	if err := wc.Close(); err != nil {
		return Object{}, fmt.Errorf("close gcs writer for object %s: %w", objectName, err)
	}

	url, err := g.objectURL(ctx, obj, objectName)
	if err != nil {
		return Object{}, err
	}
	return Object{
		URL:         url,
		FileName:    objectName,
		FileSize:    len(data),
		ContentType: contentType,
	}, nil
}

func (g *GCSProvider) objectURL(ctx context.Context, obj *storage.ObjectHandle, objectName string) (string, error) {
	if g.publicAccess {
		if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
			return "", fmt.Errorf("make gcs object %s public: %w", objectName, err)
		}
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucketName, objectName), nil
	}
	url, err := g.client.Bucket(g.bucketName).SignedURL(objectName, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(g.signedURLExpiry),
	})
	if err != nil {
		return "", fmt.Errorf("sign url for gcs object %s: %w", objectName, err)
	}
	return url, nil
}

// Close releases the underlying GCS client.
func (g *GCSProvider) Close() error {
	if err := g.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}
