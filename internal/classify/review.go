package classify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ReviewEntry is one refusal routed to human review.
type ReviewEntry struct {
	Timestamp  string   `json:"timestamp_utc"`
	Model      string   `json:"model"`
	Prompt     string   `json:"prompt"`
	Response   string   `json:"response"`
	State      State    `json:"state"`
	Reasons    []string `json:"reasons,omitempty"`
	Confidence float64  `json:"confidence"`
}

// NewReviewEntry builds a queue entry for a refused response.
func NewReviewEntry(model, prompt, response string, decision Decision) ReviewEntry {
	return ReviewEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Model:      model,
		Prompt:     prompt,
		Response:   response,
		State:      decision.State,
		Reasons:    decision.Reasons,
		Confidence: decision.Confidence,
	}
}

// AppendReview appends one complete entry to the JSONL review queue and
// syncs it, so an interrupted process never leaves a partial record.
func AppendReview(path string, entry ReviewEntry) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create review directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open review queue: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal review entry: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append review entry: %w", err)
	}
	return f.Sync()
}
