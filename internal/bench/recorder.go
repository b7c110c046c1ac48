package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/proofstream/proofstream/internal/stream"
)

// Record is one complete benchmark observation, written as a single JSONL
// line.
type Record struct {
	RunID     string `json:"run_id"`
	Timestamp string `json:"timestamp_utc"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Endpoint  string `json:"endpoint"`
	RunIndex  int    `json:"run_index"`
	Warmup    bool   `json:"warmup"`

	TTFBMillis       *float64 `json:"ttfb_ms"`
	TTCMillis        float64  `json:"ttc_ms"`
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
	TextChars        int      `json:"text_chars"`
	ReasoningChars   int      `json:"reasoning_chars"`
	StallCount       int      `json:"stall_count"`
	ParseErrors      int      `json:"parse_errors"`
	Error            string   `json:"error,omitempty"`
	ReceiptPath      string   `json:"receipt_path,omitempty"`
}

// NewRecord captures a finished session as a benchmark record.
func NewRecord(provider, model, endpoint string, spec RunSpec, sess *stream.Session) Record {
	rec := Record{
		RunID:            uuid.New().String(),
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Provider:         provider,
		Model:            model,
		Endpoint:         endpoint,
		RunIndex:         spec.Index,
		Warmup:           spec.Warmup,
		TTCMillis:        float64(sess.TTC.Microseconds()) / 1000,
		PromptTokens:     sess.PromptTokens,
		CompletionTokens: sess.CompletionTokens,
		TextChars:        len(sess.Text),
		ReasoningChars:   len(sess.Reasoning),
		StallCount:       sess.StallCount,
		ParseErrors:      sess.ParseErrors,
		Error:            sess.Error,
		ReceiptPath:      sess.ReceiptPath,
	}
	if sess.TTFB != nil {
		ms := float64(sess.TTFB.Microseconds()) / 1000
		rec.TTFBMillis = &ms
	}
	return rec
}

// Recorder appends records to a JSONL metrics log. Every write is one
// complete line followed by a sync, so an interrupted process never leaves a
// partial record and appending never requires reading the file back.
type Recorder struct {
	mu sync.Mutex
	f  *os.File
}

// NewRecorder opens (or creates) the metrics log at path in append mode.
func NewRecorder(path string) (*Recorder, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics log: %w", err)
	}
	return &Recorder{f: f}, nil
}

// Write appends one record and flushes it to durable storage.
func (r *Recorder) Write(rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.f.Write(line); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	if err := r.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync metrics log: %w", err)
	}
	return nil
}

// Close closes the underlying log file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Close()
}
