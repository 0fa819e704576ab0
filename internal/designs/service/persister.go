package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/domain"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/storage"
)

// MaxImageBytes caps a fetched image at 5 MiB.
const MaxImageBytes = 5 << 20

// Persister moves a provider-hosted image into durable object storage.
// Provider URLs expire, so the bytes are copied under the owning user's
// prefix before any record references them. Faults propagate as-is; the
// caller decides whether the whole pipeline is retried.
type Persister struct {
	store      storage.ObjectStore
	httpClient *http.Client
	now        func() time.Time
}

func NewPersister(store storage.ObjectStore) *Persister {
	return &Persister{
		store:      store,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		now:        time.Now,
	}
}

// Persist fetches the bytes at ephemeralURL, validates them, uploads them
// to designs/{userID}/{millis}_{entropy}{ext} and returns the durable
// download URL.
func (p *Persister) Persist(ctx context.Context, ephemeralURL, userID string) (string, error) {
	data, contentType, err := p.fetch(ctx, ephemeralURL)
	if err != nil {
		return "", err
	}

	if len(data) > MaxImageBytes {
		return "", fmt.Errorf("image is %d bytes: %w", len(data), domain.ErrSizeExceeded)
	}

	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("content type %q: %w", contentType, domain.ErrTypeInvalid)
	}

	path := p.destinationPath(userID, contentType)
	if err := p.store.Put(ctx, path, data, contentType); err != nil {
		return "", err
	}

	durableURL, err := p.store.DownloadURL(ctx, path)
	if err != nil {
		return "", err
	}
	return durableURL, nil
}

func (p *Persister) fetch(ctx context.Context, ephemeralURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ephemeralURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build fetch request: %v: %w", err, domain.ErrFetch)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %v: %w", err, domain.ErrFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("fetch image: status %d: %w", resp.StatusCode, domain.ErrFetch)
	}

	// Read one byte past the cap so oversized bodies are rejected without
	// buffering the whole thing.
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %v: %w", err, domain.ErrFetch)
	}

	return data, resp.Header.Get("Content-Type"), nil
}

// destinationPath is derived from the owner and wall-clock millis, with a
// short random suffix so two uploads in the same millisecond for one user
// land on distinct paths.
func (p *Persister) destinationPath(userID, contentType string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("designs/%s/%d_%s%s", userID, p.now().UnixMilli(), suffix, extensionFor(contentType))
}

func extensionFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(contentType, "image/webp"):
		return ".webp"
	case strings.HasPrefix(contentType, "image/gif"):
		return ".gif"
	default:
		return ".png"
	}
}
