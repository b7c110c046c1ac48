package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// sseHandler writes the given frames as a minimal event stream.
func sseHandler(t *testing.T, frames []string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept = %q", got)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if !req.Stream {
			t.Errorf("request must set stream=true")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
		}
	}
}

func TestConsumeAccumulatesContent(t *testing.T) {
	frames := []string{
		`{"choices":[{"delta":{"content":"Hi"}}]}`,
		`{"choices":[{"delta":{"content":" there"}}]}`,
		`[DONE]`,
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	sess := client.Consume(context.Background(), ChatRequest{
		Model:    "test-model",
		Messages: []Message{{Role: "user", Content: "hello"}},
	})

	if sess.Error != "" {
		t.Fatalf("unexpected session error: %s", sess.Error)
	}
	if sess.Text != "Hi there" {
		t.Errorf("Text = %q, want %q", sess.Text, "Hi there")
	}
	if len(sess.RawFrames) != 3 {
		t.Errorf("RawFrames = %d, want 3 (sentinel included)", len(sess.RawFrames))
	}
	if sess.ParseErrors != 0 {
		t.Errorf("ParseErrors = %d, want 0", sess.ParseErrors)
	}
	if sess.TTFB == nil {
		t.Error("TTFB not recorded")
	}
	if sess.TTC <= 0 {
		t.Error("TTC not recorded")
	}
}

func TestConsumeUsageReducer(t *testing.T) {
	frames := []string{
		`{"choices":[{"delta":{"content":"a"}}],"usage":{"prompt_tokens":5,"completion_tokens":0}}`,
		`{"choices":[{"delta":{"content":"b"}}],"usage":{"prompt_tokens":0,"completion_tokens":0}}`,
		`{"choices":[],"usage":{"prompt_tokens":12,"completion_tokens":7}}`,
		`[DONE]`,
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	sess := client.Consume(context.Background(), ChatRequest{Model: "m"})

	if sess.PromptTokens != 12 || sess.CompletionTokens != 7 {
		t.Errorf("usage = (%d, %d), want (12, 7)",
			sess.PromptTokens, sess.CompletionTokens)
	}
}

func TestConsumeMalformedFrameSkipped(t *testing.T) {
	frames := []string{
		`{"choices":[{"delta":{"content":"ok"}}]}`,
		`{not json`,
		`{"choices":[{"delta":{"content":"!"}}]}`,
		`[DONE]`,
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	sess := client.Consume(context.Background(), ChatRequest{Model: "m"})

	if sess.Error != "" {
		t.Fatalf("malformed frame must not fail the session: %s", sess.Error)
	}
	if sess.ParseErrors != 1 {
		t.Errorf("ParseErrors = %d, want 1", sess.ParseErrors)
	}
	if sess.Text != "ok!" {
		t.Errorf("Text = %q, want %q", sess.Text, "ok!")
	}
	// The malformed frame still lands in the raw log for the receipt.
	if len(sess.RawFrames) != 4 {
		t.Errorf("RawFrames = %d, want 4", len(sess.RawFrames))
	}
}

func TestConsumeReasoningContent(t *testing.T) {
	frames := []string{
		`{"choices":[{"delta":{"reasoning_content":"thinking..."}}]}`,
		`{"choices":[{"delta":{"content":"answer"}}]}`,
		`[DONE]`,
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	sess := client.Consume(context.Background(), ChatRequest{Model: "m"})

	if sess.Reasoning != "thinking..." {
		t.Errorf("Reasoning = %q", sess.Reasoning)
	}
	if sess.Text != "answer" {
		t.Errorf("Text = %q", sess.Text)
	}
}

func TestConsumeEmptyStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	sess := client.Consume(context.Background(), ChatRequest{Model: "m"})

	if sess.Error != "" {
		t.Fatalf("empty stream is not an error: %s", sess.Error)
	}
	if sess.TTFB != nil {
		t.Errorf("TTFB must stay nil when no frame arrived, got %v", *sess.TTFB)
	}
	if len(sess.RawFrames) != 0 {
		t.Errorf("RawFrames = %d, want 0", len(sess.RawFrames))
	}
	if sess.TTC <= 0 {
		t.Error("TTC must be set even for empty streams")
	}
}

func TestConsumeNon200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bad-key")
	sess := client.Consume(context.Background(), ChatRequest{Model: "m"})

	if sess.Error == "" {
		t.Fatal("expected session error for 401 response")
	}
	if !strings.Contains(sess.Error, "401") {
		t.Errorf("error should carry the status code: %s", sess.Error)
	}
	if !strings.Contains(sess.Error, "invalid api key") {
		t.Errorf("error should carry the response body: %s", sess.Error)
	}
}

func TestConsumeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	client := NewClient(srv.URL, "test-key")
	sess := client.Consume(context.Background(), ChatRequest{Model: "m"})

	if sess.Error == "" {
		t.Fatal("expected transport error")
	}
	if sess.TTC <= 0 {
		t.Error("TTC must be set on transport failure")
	}
}

func TestConsumeStopsAtSentinel(t *testing.T) {
	frames := []string{
		`{"choices":[{"delta":{"content":"before"}}]}`,
		`[DONE]`,
		`{"choices":[{"delta":{"content":"after"}}]}`,
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	sess := client.Consume(context.Background(), ChatRequest{Model: "m"})

	if sess.Text != "before" {
		t.Errorf("Text = %q, frames after the sentinel must be ignored", sess.Text)
	}
	if len(sess.RawFrames) != 2 {
		t.Errorf("RawFrames = %d, want 2", len(sess.RawFrames))
	}
}

func TestConsumeContentWriter(t *testing.T) {
	frames := []string{
		`{"choices":[{"delta":{"content":"live "}}]}`,
		`{"choices":[{"delta":{"content":"output"}}]}`,
		`[DONE]`,
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	var buf bytes.Buffer
	client := NewClient(srv.URL, "test-key", WithContentWriter(&buf))
	client.Consume(context.Background(), ChatRequest{Model: "m"})

	if buf.String() != "live output" {
		t.Errorf("mirrored content = %q", buf.String())
	}
}

func TestConsumeStallCounting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("response writer is not a flusher")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		flusher.Flush()
		time.Sleep(30 * time.Millisecond)
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", WithStallThreshold(10*time.Millisecond))
	sess := client.Consume(context.Background(), ChatRequest{Model: "m"})

	if sess.StallCount < 1 {
		t.Errorf("StallCount = %d, want at least 1", sess.StallCount)
	}
	if sess.Error != "" {
		t.Errorf("stalls are observational, not fatal: %s", sess.Error)
	}
}
