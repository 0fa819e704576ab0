package janitor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	paths []string
}

func (s *stubStore) Put(ctx context.Context, path string, data []byte, contentType string) error {
	return nil
}

func (s *stubStore) DownloadURL(ctx context.Context, path string) (string, error) {
	return "https://store/" + path, nil
}

func (s *stubStore) Delete(ctx context.Context, path string) error { return nil }

func (s *stubStore) PathFromURL(rawURL string) (string, error) {
	path, ok := strings.CutPrefix(rawURL, "https://store/")
	if !ok {
		return "", fmt.Errorf("not a store url: %s", rawURL)
	}
	return path, nil
}

func (s *stubStore) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	for _, p := range s.paths {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubLister struct {
	urls []string
}

func (l *stubLister) ListImageURLs(ctx context.Context) ([]string, error) {
	return l.urls, nil
}

func TestAudit_CountsOrphansAndDangling(t *testing.T) {
	store := &stubStore{paths: []string{
		"designs/u1/1.png", // referenced
		"designs/u1/2.png", // orphan
		"designs/u2/3.png", // referenced
	}}
	lister := &stubLister{urls: []string{
		"https://store/designs/u1/1.png",
		"https://store/designs/u2/3.png",
		"https://store/designs/u2/gone.png", // dangling
	}}

	report, err := NewAudit(store, lister).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Blobs)
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, []string{"designs/u1/2.png"}, report.Orphans)
	assert.Equal(t, []string{"https://store/designs/u2/gone.png"}, report.DanglingAt)
}

func TestAudit_CleanStateIsEmptyReport(t *testing.T) {
	store := &stubStore{paths: []string{"designs/u1/1.png"}}
	lister := &stubLister{urls: []string{"https://store/designs/u1/1.png"}}

	report, err := NewAudit(store, lister).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Orphans)
	assert.Empty(t, report.DanglingAt)
}
