package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/domain"
)

const defaultPollInterval = 2 * time.Second

// DefaultParameters mirrors the stable-diffusion settings the studio UI
// has always used.
func DefaultParameters() map[string]interface{} {
	return map[string]interface{}{
		"image_dimensions":    "512x512",
		"num_outputs":         1,
		"num_inference_steps": 50,
		"guidance_scale":      7.5,
		"scheduler":           "DPMSolverMultistep",
	}
}

// Client talks to the Replicate predictions API. A generation is created
// and then polled until it reaches a terminal status or the configured
// window elapses.
type Client struct {
	baseURL      string
	modelVersion string
	timeout      time.Duration
	pollInterval time.Duration
	hasToken     bool
	httpClient   *http.Client
	limiter      *rate.Limiter
}

type Options struct {
	APIToken     string
	BaseURL      string
	ModelVersion string
	// Timeout bounds one generation end to end, polling included.
	Timeout time.Duration
	// RequestsPerSecond throttles outbound calls. Zero means 2 rps.
	RequestsPerSecond float64
	// PollInterval overrides the wait between status polls. Zero means 2s.
	PollInterval time.Duration
}

// NewClient builds a client whose transport injects the bearer token on
// every request. The token may be empty; Generate fails fast in that case.
func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 300 * time.Second
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = defaultPollInterval
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	if opts.APIToken != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.APIToken})
		httpClient = oauth2.NewClient(context.Background(), src)
		httpClient.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:      opts.BaseURL,
		modelVersion: opts.ModelVersion,
		timeout:      opts.Timeout,
		pollInterval: opts.PollInterval,
		hasToken:     opts.APIToken != "",
		httpClient:   httpClient,
		limiter:      rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 4),
	}
}

type createPredictionRequest struct {
	Version string                 `json:"version"`
	Input   map[string]interface{} `json:"input"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// Generate runs one prediction for the prompt and returns the normalized
// result. Faults map onto the pipeline taxonomy: 504 and elapsed windows
// are ErrProviderTimeout, 422 is ErrProviderValidation, a missing token is
// ErrConfiguration, everything else (including an empty output) is
// ErrProvider.
func (c *Client) Generate(ctx context.Context, prompt string, parameters map[string]interface{}) (*domain.GenerationResult, error) {
	if c == nil || !c.hasToken {
		return nil, domain.ErrConfiguration
	}

	input := map[string]interface{}{"prompt": prompt}
	for k, v := range parameters {
		input[k] = v
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	p, err := c.createPrediction(ctx, input)
	if err != nil {
		return nil, err
	}

	for !terminal(p.Status) {
		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return nil, fmt.Errorf("generation did not finish within %s: %w", c.timeout, domain.ErrProviderTimeout)
		}

		p, err = c.getPrediction(ctx, p.ID)
		if err != nil {
			return nil, err
		}
	}

	if p.Status != "succeeded" {
		return nil, fmt.Errorf("prediction %s %s: %s: %w", p.ID, p.Status, p.Error, domain.ErrProvider)
	}

	refs, err := normalizeOutput(p.Output)
	if err != nil {
		return nil, err
	}
	return &domain.GenerationResult{ImageRefs: refs}, nil
}

func (c *Client) createPrediction(ctx context.Context, input map[string]interface{}) (*prediction, error) {
	reqBody := createPredictionRequest{Version: c.modelVersion, Input: input}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/predictions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) getPrediction(ctx context.Context, id string) (*prediction, error) {
	url := fmt.Sprintf("%s/v1/predictions/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*prediction, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("call provider: %w", domain.ErrConnectTimeout)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("call provider: %w", domain.ErrProviderTimeout)
		}
		return nil, fmt.Errorf("call provider: %v: %w", err, domain.ErrProvider)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read provider response: %v: %w", err, domain.ErrProvider)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusGatewayTimeout:
		return nil, fmt.Errorf("provider returned 504: %w", domain.ErrProviderTimeout)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("provider returned 422: %s: %w", string(body), domain.ErrProviderValidation)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("provider rejected credentials (%d): %w", resp.StatusCode, domain.ErrConfiguration)
	default:
		return nil, fmt.Errorf("provider returned status %d: %s: %w", resp.StatusCode, string(body), domain.ErrProvider)
	}

	var p prediction
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("unmarshal provider response: %v: %w", err, domain.ErrProvider)
	}
	return &p, nil
}

func terminal(status string) bool {
	switch status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// normalizeOutput flattens the provider's output, which is either a bare
// URL string or a list of URLs, into a non-empty slice. The first element
// is the canonical result downstream.
func normalizeOutput(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("provider returned empty output: %w", domain.ErrProvider)
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		refs := make([]string, 0, len(many))
		for _, r := range many {
			if r != "" {
				refs = append(refs, r)
			}
		}
		if len(refs) == 0 {
			return nil, fmt.Errorf("provider returned no image URLs: %w", domain.ErrProvider)
		}
		return refs, nil
	}

	var one string
	if err := json.Unmarshal(raw, &one); err == nil && one != "" {
		return []string{one}, nil
	}

	return nil, fmt.Errorf("unexpected provider output shape: %w", domain.ErrProvider)
}
