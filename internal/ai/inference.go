package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/thomaskoefod/newsgrid/internal/apperr"
	"github.com/thomaskoefod/newsgrid/internal/metrics"
)

const (
	DefaultTimeout    = 20 * time.Second
	DefaultRetryDelay = 15 * time.Second
)

// Client calls a Hugging Face style summarization endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	client     *http.Client
	timeout    time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.timeout = d }
}

// WithRetryDelay sets the wait before retrying a model-loading response.
func WithRetryDelay(d time.Duration) Option {
	return func(cl *Client) { cl.retryDelay = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

type InferenceRequest struct {
	Inputs string `json:"inputs"`
}

// summaryFields are tried in order. Summarization models fill summary_text,
// text-generation models fill generated_text.
var summaryFields = []string{"summary_text", "generated_text"}

func NewClient(endpoint, apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		client:     &http.Client{},
		timeout:    DefaultTimeout,
		retryDelay: DefaultRetryDelay,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summarize sends text to the inference endpoint and returns the generated summary.
// A 503 (model still loading) is retried once after the retry delay.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	if c.apiKey == "" {
		return "", apperr.New(apperr.Config, "HF_API_KEY not configured")
	}

	reqBody, err := json.Marshal(InferenceRequest{Inputs: text})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	status, body, err := c.post(ctx, reqBody)
	if err != nil {
		return "", err
	}

	if status == http.StatusServiceUnavailable {
		c.logger.Info("inference model loading, retrying", "delay", c.retryDelay)
		if err := sleep(ctx, c.retryDelay); err != nil {
			return "", fmt.Errorf("waiting for model warm-up: %w", err)
		}
		status, body, err = c.post(ctx, reqBody)
		if err != nil {
			return "", err
		}
	}

	if status < 200 || status > 299 {
		c.logger.Error("inference API error", "status", status, "body", string(body))
		return "", apperr.UpstreamStatus(status, "Failed to generate summary",
			fmt.Errorf("inference API error (status %d)", status))
	}

	summary, err := ExtractSummary(body)
	if err != nil {
		return "", err
	}
	return summary, nil
}

// post performs one bounded attempt and returns the status and full body.
func (c *Client) post(ctx context.Context, payload []byte) (int, []byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, c.transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, c.transportError(err)
	}

	metrics.RecordInference(strconv.Itoa(resp.StatusCode))
	return resp.StatusCode, body, nil
}

func (c *Client) transportError(err error) error {
	if isTimeout(err) {
		metrics.RecordInference("timeout")
		return apperr.Wrap(apperr.Timeout, "Summarization timed out", err)
	}
	metrics.RecordInference("error")
	return fmt.Errorf("sending request to inference API: %w", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ExtractSummary pulls the summary out of the response body, which is either
// a list of outputs (first element used) or a single output object. Only a
// body that is not JSON at all is an internal error; any other shape without
// a summary string is an empty result.
func ExtractSummary(body []byte) (string, error) {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if list, ok := parsed.([]any); ok {
		parsed = nil
		if len(list) > 0 {
			parsed = list[0]
		}
	}

	if out, ok := parsed.(map[string]any); ok {
		for _, field := range summaryFields {
			if summary, ok := out[field].(string); ok && summary != "" {
				return summary, nil
			}
		}
	}
	return "", apperr.New(apperr.EmptyResult, "No summary generated")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
