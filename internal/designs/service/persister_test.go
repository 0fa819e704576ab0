package service

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/domain"
)

func imageServer(t *testing.T, body []byte, contentType string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPersist_UploadsUnderUserPrefix(t *testing.T) {
	server := imageServer(t, bytes.Repeat([]byte{0xAB}, 2<<20), "image/png")
	store := newFakeObjectStore()
	p := NewPersister(store)
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }

	durableURL, err := p.Persist(context.Background(), server.URL+"/x.png", "u1")
	require.NoError(t, err)

	require.Len(t, store.objects, 1)
	for path := range store.objects {
		assert.Regexp(t, regexp.MustCompile(`^designs/u1/1700000000000_[0-9a-f]{8}\.png$`), path)
		assert.Equal(t, "https://store/"+path, durableURL)
	}
}

func TestPersist_SizeBoundary(t *testing.T) {
	store := newFakeObjectStore()
	p := NewPersister(store)

	// Exactly 5 MiB passes.
	okServer := imageServer(t, bytes.Repeat([]byte{0x01}, MaxImageBytes), "image/png")
	_, err := p.Persist(context.Background(), okServer.URL, "u1")
	assert.NoError(t, err)

	// One byte over does not.
	bigServer := imageServer(t, bytes.Repeat([]byte{0x01}, MaxImageBytes+1), "image/png")
	_, err = p.Persist(context.Background(), bigServer.URL, "u1")
	assert.ErrorIs(t, err, domain.ErrSizeExceeded)
}

func TestPersist_RejectsNonImage(t *testing.T) {
	server := imageServer(t, []byte("<html>not an image</html>"), "text/html")
	p := NewPersister(newFakeObjectStore())

	_, err := p.Persist(context.Background(), server.URL, "u1")
	assert.ErrorIs(t, err, domain.ErrTypeInvalid)
}

func TestPersist_SniffsMissingContentType(t *testing.T) {
	// A real PNG header with no Content-Type header; DetectContentType
	// should classify it as image/png.
	png := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0}, 64)...)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		w.Write(png)
	}))
	defer server.Close()

	store := newFakeObjectStore()
	p := NewPersister(store)

	_, err := p.Persist(context.Background(), server.URL, "u1")
	assert.NoError(t, err)
}

func TestPersist_FetchFaultOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := NewPersister(newFakeObjectStore())
	_, err := p.Persist(context.Background(), server.URL, "u1")
	assert.ErrorIs(t, err, domain.ErrFetch)
}

func TestPersist_StorageFaultPropagates(t *testing.T) {
	server := imageServer(t, bytes.Repeat([]byte{0x01}, 100), "image/png")
	store := newFakeObjectStore()
	store.putErr = domain.ErrStorageUnauthorized
	p := NewPersister(store)

	_, err := p.Persist(context.Background(), server.URL, "u1")
	assert.ErrorIs(t, err, domain.ErrStorageUnauthorized)
}

func TestPersist_DistinctPathsSameMillisecond(t *testing.T) {
	server := imageServer(t, bytes.Repeat([]byte{0x01}, 100), "image/png")
	store := newFakeObjectStore()
	p := NewPersister(store)
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }

	_, err := p.Persist(context.Background(), server.URL, "u1")
	require.NoError(t, err)
	_, err = p.Persist(context.Background(), server.URL, "u1")
	require.NoError(t, err)

	assert.Len(t, store.objects, 2)
}
