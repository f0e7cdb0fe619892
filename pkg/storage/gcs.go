package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	gcs "cloud.google.com/go/storage"

	"github.com/medisupply/video-processor/pkg/config"
)

// GCSGateway implements Gateway on top of Google Cloud Storage.
type GCSGateway struct {
	client      *gcs.Client
	bucket      string
	callTimeout time.Duration
	signingSA   string
}

var _ Gateway = (*GCSGateway)(nil)

func NewGCSGateway(ctx context.Context, cfg config.StorageConfig) (*GCSGateway, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSGateway{
		client:      client,
		bucket:      cfg.Bucket,
		callTimeout: cfg.CallTimeout,
		signingSA:   cfg.SigningServiceAccount,
	}, nil
}

func (g *GCSGateway) Close() error {
	return g.client.Close()
}

func (g *GCSGateway) Fetch(ctx context.Context, key, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	reader, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("failed to open object %s: %w", key, err)
	}
	defer reader.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, reader); err != nil {
		return fmt.Errorf("failed to download object %s: %w", key, err)
	}
	return dest.Close()
}

func (g *GCSGateway) Store(ctx context.Context, key, srcPath, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer src.Close()

	writer := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = contentType
	writer.Metadata = map[string]string{
		"uploaded_by": "medisupply-video-processor",
	}

	if _, err := io.Copy(writer, src); err != nil {
		writer.Close()
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize object %s: %w", key, err)
	}
	return nil
}

func (g *GCSGateway) SignedURL(key string, ttl time.Duration) (string, error) {
	opts := &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	}
	if g.signingSA != "" {
		opts.GoogleAccessID = g.signingSA
	}

	url, err := g.client.Bucket(g.bucket).SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("failed to sign url for %s: %w", key, err)
	}
	return url, nil
}
