// Package stream drives a streaming chat completion request and accumulates
// its frames, content and latency metrics into a Session.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/proofstream/proofstream/internal/sse"
)

const (
	defaultTimeout        = 120 * time.Second
	defaultStallThreshold = 2 * time.Second
)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. Its transport is wrapped with
// OpenTelemetry instrumentation.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds the total request, connect to last byte.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithStallThreshold sets the inter-frame gap above which a stall is counted.
func WithStallThreshold(threshold time.Duration) Option {
	return func(c *Client) {
		c.stallThreshold = threshold
	}
}

// WithContentWriter mirrors answer content fragments to w as they arrive,
// for live output.
func WithContentWriter(w io.Writer) Option {
	return func(c *Client) {
		c.contentWriter = w
	}
}

// Client issues streaming chat completion requests against one endpoint.
type Client struct {
	endpoint       string
	apiKey         string
	httpClient     *http.Client
	timeout        time.Duration
	stallThreshold time.Duration
	contentWriter  io.Writer
	tracer         trace.Tracer
}

// NewClient creates a client for the given chat completions endpoint.
func NewClient(endpoint, apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint:       endpoint,
		apiKey:         apiKey,
		httpClient:     &http.Client{},
		timeout:        defaultTimeout,
		stallThreshold: defaultStallThreshold,
		tracer:         otel.Tracer("proofstream/stream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Transport == nil {
		c.httpClient.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	return c
}

// Consume sends the request and consumes the response stream to completion.
// It never returns an error: transport failures are recorded on the session,
// which always carries a total elapsed time and whatever frames arrived
// before the failure.
func (c *Client) Consume(ctx context.Context, req ChatRequest) *Session {
	req.Stream = true
	if req.StreamOptions == nil {
		req.StreamOptions = &StreamOptions{IncludeUsage: true}
	}

	sess := &Session{}
	start := time.Now()
	defer func() {
		sess.TTC = time.Since(start)
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "stream.consume",
		trace.WithAttributes(
			attribute.String("llm.model", req.Model),
			attribute.String("http.url", c.endpoint),
		))
	defer func() {
		span.SetAttributes(
			attribute.Int("stream.frames", len(sess.RawFrames)),
			attribute.Int("stream.stalls", sess.StallCount),
			attribute.Int("stream.parse_errors", sess.ParseErrors),
		)
		span.End()
	}()

	body, err := json.Marshal(req)
	if err != nil {
		sess.Error = fmt.Sprintf("failed to marshal request: %v", err)
		return sess
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		sess.Error = fmt.Sprintf("failed to create request: %v", err)
		return sess
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		sess.Error = fmt.Sprintf("request failed: %v", err)
		return sess
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		sess.Error = fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
		return sess
	}

	c.consumeFrames(sess, resp.Body, start)
	return sess
}

func (c *Client) consumeFrames(sess *Session, body io.Reader, start time.Time) {
	dec := sse.NewDecoder(body)
	last := start

	for dec.Next() {
		frame := dec.Frame()
		now := time.Now()

		if sess.TTFB == nil {
			// The gap before the first frame is connection setup plus
			// prompt processing, not a stall; no baseline exists yet.
			firstFrameAt(sess, now.Sub(start))
		} else if now.Sub(last) > c.stallThreshold {
			sess.StallCount++
		}
		last = now

		// The raw-frame log keeps every frame, sentinel included; the
		// receipt hashes are computed over exactly this sequence.
		sess.RawFrames = append(sess.RawFrames, frame.Data)

		if frame.Done {
			return
		}

		var chunk Chunk
		if err := json.Unmarshal([]byte(frame.Data), &chunk); err != nil {
			sess.ParseErrors++
			continue
		}

		content, reasoning := chunk.ContentParts()
		sess.Text += content
		sess.Reasoning += reasoning
		if c.contentWriter != nil && content != "" {
			fmt.Fprint(c.contentWriter, content)
		}

		mergeUsage(sess, chunk.Usage)
	}

	if err := dec.Err(); err != nil && sess.Error == "" {
		sess.Error = err.Error()
	}
}
