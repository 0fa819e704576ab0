package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/domain"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	return NewClient(Options{
		APIToken:          "test-token",
		BaseURL:           serverURL,
		ModelVersion:      "test-version",
		Timeout:           2 * time.Second,
		RequestsPerSecond: 1000,
		PollInterval:      5 * time.Millisecond,
	})
}

func TestGenerate_ListOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/predictions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header: %q", got)
		}

		var req createPredictionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-version", req.Version)
		assert.Equal(t, "a panda in bamboo", req.Input["prompt"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"p1","status":"succeeded","output":["https://provider/x.png","https://provider/y.png"]}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	result, err := client.Generate(context.Background(), "a panda in bamboo", DefaultParameters())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://provider/x.png", "https://provider/y.png"}, result.ImageRefs)
	assert.Equal(t, "https://provider/x.png", result.First())
}

func TestGenerate_StringOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"p1","status":"succeeded","output":"https://provider/x.png"}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	result, err := client.Generate(context.Background(), "a panda in bamboo", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://provider/x.png"}, result.ImageRefs)
}

func TestGenerate_PollsUntilTerminal(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"p1","status":"processing"}`))
		case r.URL.Path == "/v1/predictions/p1":
			polls++
			if polls < 3 {
				w.Write([]byte(`{"id":"p1","status":"processing"}`))
				return
			}
			w.Write([]byte(`{"id":"p1","status":"succeeded","output":["https://provider/x.png"]}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	result, err := client.Generate(context.Background(), "a panda in bamboo", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, polls)
	assert.Equal(t, "https://provider/x.png", result.First())
}

func TestGenerate_ValidationFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"invalid input"}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.Generate(context.Background(), "a panda in bamboo", nil)
	assert.ErrorIs(t, err, domain.ErrProviderValidation)
	assert.False(t, domain.Retryable(err))
}

func TestGenerate_GatewayTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.Generate(context.Background(), "a panda in bamboo", nil)
	assert.ErrorIs(t, err, domain.ErrProviderTimeout)
	assert.True(t, domain.Retryable(err))
}

func TestGenerate_FailedPrediction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"p1","status":"failed","error":"NSFW content detected"}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.Generate(context.Background(), "a panda in bamboo", nil)
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Contains(t, err.Error(), "NSFW content detected")
}

func TestGenerate_EmptyOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"p1","status":"succeeded","output":[]}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.Generate(context.Background(), "a panda in bamboo", nil)
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestGenerate_TimeoutWindowElapsed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"p1","status":"processing"}`))
	}))
	defer server.Close()

	client := NewClient(Options{
		APIToken:          "test-token",
		BaseURL:           server.URL,
		ModelVersion:      "test-version",
		Timeout:           50 * time.Millisecond,
		RequestsPerSecond: 1000,
		PollInterval:      5 * time.Millisecond,
	})

	_, err := client.Generate(context.Background(), "a panda in bamboo", nil)
	assert.ErrorIs(t, err, domain.ErrProviderTimeout)
}

func TestGenerate_MissingToken(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://unused", ModelVersion: "v"})

	_, err := client.Generate(context.Background(), "a panda in bamboo", nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNormalizeOutput(t *testing.T) {
	refs, err := normalizeOutput(json.RawMessage(`["a","","b"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, refs)

	_, err = normalizeOutput(json.RawMessage(`null`))
	assert.ErrorIs(t, err, domain.ErrProvider)

	_, err = normalizeOutput(json.RawMessage(`{"unexpected":true}`))
	assert.ErrorIs(t, err, domain.ErrProvider)
}
