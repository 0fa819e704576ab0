package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/domain"
)

const uploadTimeout = 2 * time.Minute

// FirebaseStore keeps design images in a Firebase Storage (GCS) bucket.
// Download URLs use the firebasestorage.googleapis.com format the web
// client has always consumed.
type FirebaseStore struct {
	client *gcs.Client
	bucket string
}

func NewFirebaseStore(client *gcs.Client, bucket string) *FirebaseStore {
	return &FirebaseStore{client: client, bucket: bucket}
}

func (s *FirebaseStore) Put(ctx context.Context, path string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return wrapStorageErr("write object", err)
	}
	if err := w.Close(); err != nil {
		return wrapStorageErr("close writer", err)
	}
	return nil
}

func (s *FirebaseStore) DownloadURL(ctx context.Context, path string) (string, error) {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media",
		s.bucket, url.PathEscape(path)), nil
}

func (s *FirebaseStore) Delete(ctx context.Context, path string) error {
	if err := s.client.Bucket(s.bucket).Object(path).Delete(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil
		}
		return wrapStorageErr("delete object", err)
	}
	return nil
}

// PathFromURL decodes a firebasestorage download URL back into an object
// path. The object path is the URL-escaped segment after "/o/".
func (s *FirebaseStore) PathFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse download url: %w", err)
	}

	_, escaped, found := strings.Cut(u.Path, "/o/")
	if !found || escaped == "" {
		return "", fmt.Errorf("not a firebase storage download url: %s", rawURL)
	}

	path, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("unescape object path: %w", err)
	}
	return path, nil
}

func (s *FirebaseStore) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})

	var paths []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapStorageErr("list objects", err)
		}
		paths = append(paths, attrs.Name)
	}
	return paths, nil
}

func wrapStorageErr(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 401 || apiErr.Code == 403) {
		return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStorageUnauthorized)
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStorage)
}
