// Package runpod implements the external job runner client over the RunPod
// serverless HTTP API.
package runpod

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/openvid/openvid/internal/core"
	"github.com/openvid/openvid/internal/domain/model"
	apperrors "github.com/openvid/openvid/internal/errors"
)

const (
	defaultBaseURL        = "https://api.runpod.ai/v2"
	defaultMaxAttempts    = 3
	defaultInitialBackoff = time.Second
	defaultRequestTimeout = 30 * time.Second
)

// ErrMissingCredentials indicates the client was configured without an API
// key or endpoint identifier.
var ErrMissingCredentials = errors.New("runpod: api key and endpoint id are required")

// Options configures the RunPod client.
type Options struct {
	APIKey     string
	EndpointID string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// MaxAttempts and InitialBackoff tune the submit retry loop. Submission
	// is retried only when the runner answers 429; the delay doubles after
	// each attempt.
	MaxAttempts    int
	InitialBackoff time.Duration
}

// Client performs HTTP calls against one RunPod serverless endpoint.
type Client struct {
	apiKey         string
	endpointID     string
	baseURL        string
	httpClient     *http.Client
	logger         *slog.Logger
	maxAttempts    int
	initialBackoff time.Duration
}

// New creates a RunPod client. APIKey and EndpointID are required.
func New(opts Options) (*Client, error) {
	if opts.APIKey == "" || opts.EndpointID == "" {
		return nil, ErrMissingCredentials
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	backoff := opts.InitialBackoff
	if backoff <= 0 {
		backoff = defaultInitialBackoff
	}

	return &Client{
		apiKey:         opts.APIKey,
		endpointID:     opts.EndpointID,
		baseURL:        baseURL,
		httpClient:     httpClient,
		logger:         opts.Logger,
		maxAttempts:    maxAttempts,
		initialBackoff: backoff,
	}, nil
}

type submitPayload struct {
	Input   model.GenerationInput `json:"input"`
	Webhook string                `json:"webhook,omitempty"`
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Submit hands a generation request to the runner and returns the opaque job
// identifier the runner assigned. A 429 from the runner is retried with
// exponential backoff up to MaxAttempts; any other failure aborts immediately.
func (c *Client) Submit(ctx context.Context, sub core.RunnerSubmission) (string, error) {
	body, err := json.Marshal(submitPayload{Input: sub.Input, Webhook: sub.WebhookURL})
	if err != nil {
		return "", fmt.Errorf("marshal submit payload: %w", err)
	}

	backoff := c.initialBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if c.logger != nil {
				c.logger.WarnContext(ctx, "runner throttled submission, backing off",
					"attempt", attempt, "backoff", backoff)
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("submit canceled: %w", ctx.Err())
			}
			backoff *= 2
		}

		id, retryable, err := c.trySubmit(ctx, body)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", lastErr
}

// trySubmit performs one submit attempt. The bool return reports whether the
// failure was a runner-side 429 eligible for retry.
func (c *Client) trySubmit(ctx context.Context, body []byte) (string, bool, error) {
	url := fmt.Sprintf("%s/%s/run", c.baseURL, c.endpointID)
	resp, err := c.do(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "submit to runner")
	}
	defer closeBody(resp)

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", true, apperrors.Upstream(resp.StatusCode, "runner throttled the submission")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false, upstreamError(resp)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "decode runner response")
	}
	if out.ID == "" {
		return "", false, apperrors.Upstream(0, "runner returned no job id")
	}
	return out.ID, false, nil
}

// Status queries the runner for the current state of a job.
func (c *Client) Status(ctx context.Context, jobID string) (*model.RunnerJobState, error) {
	url := fmt.Sprintf("%s/%s/status/%s", c.baseURL, c.endpointID, jobID)
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "query runner status")
	}
	defer closeBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstreamError(resp)
	}

	var state model.RunnerJobState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "decode runner status")
	}
	return &state, nil
}

// Health fetches the endpoint's health snapshot.
func (c *Client) Health(ctx context.Context) (*model.RunnerHealth, error) {
	url := fmt.Sprintf("%s/%s/health", c.baseURL, c.endpointID)
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "query runner health")
	}
	defer closeBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstreamError(resp)
	}

	var health model.RunnerHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "decode runner health")
	}
	return &health, nil
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// upstreamError turns a non-2xx runner response into an Upstream AppError,
// preferring the runner's own error text when the body carries one.
func upstreamError(resp *http.Response) error {
	msg := fmt.Sprintf("runner returned status %d", resp.StatusCode)
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(raw) > 0 {
		var body struct {
			Error string `json:"error"`
		}
		if jsonErr := json.Unmarshal(raw, &body); jsonErr == nil && body.Error != "" {
			msg = body.Error
		}
	}
	return apperrors.Upstream(resp.StatusCode, msg)
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

var _ core.RunnerClient = (*Client)(nil)
