// Package imagestore copies product images into a bucket the catalogue owns.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

var ErrEmptySource = errors.New("empty image source")

const maxImageBytes = 20 << 20

// Uploader writes one object.
type Uploader interface {
	Upload(ctx context.Context, object string, r io.Reader, contentType string) error
}

// Store downloads an image and re-hosts it under {company}/{filename}.
type Store struct {
	uploader   Uploader
	client     *http.Client
	publicBase string
	logger     *slog.Logger
}

func New(uploader Uploader, publicBase string, timeout time.Duration, logger *slog.Logger) *Store {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Store{
		uploader:   uploader,
		client:     &http.Client{Timeout: timeout},
		publicBase: strings.TrimRight(publicBase, "/"),
		logger:     logger.With("component", "imagestore"),
	}
}

// Store returns the public URL of the copy. Callers keep the scraped URL
// when an error is returned.
func (s *Store) Store(ctx context.Context, src string, headers map[string]string, company, filename string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", ErrEmptySource
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build image request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: status %d", src, resp.StatusCode)
	}

	object := path.Join(company, filename)
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	if err := s.uploader.Upload(ctx, object, io.LimitReader(resp.Body, maxImageBytes), contentType); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", object, err)
	}

	s.logger.Debug("image stored", "object", object)
	return s.publicBase + "/" + object, nil
}

// GCSUploader writes objects to a Cloud Storage bucket.
type GCSUploader struct {
	client *storage.Client
	bucket string
}

// NewGCSUploader connects to Cloud Storage. A non-empty endpoint targets an
// emulator and disables authentication.
func NewGCSUploader(ctx context.Context, bucket, endpoint string) (*GCSUploader, error) {
	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSUploader{client: client, bucket: bucket}, nil
}

func (u *GCSUploader) Upload(ctx context.Context, object string, r io.Reader, contentType string) error {
	w := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object: %w", err)
	}
	return nil
}

func (u *GCSUploader) Close() error {
	return u.client.Close()
}
