package classify

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestAppendReview(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue", "human_review.jsonl")

	decision := Detect("I have insufficient data for that.")
	for i := 0; i < 2; i++ {
		entry := NewReviewEntry("test-model", "what is X?", "I have insufficient data for that.", decision)
		if err := AppendReview(path, entry); err != nil {
			t.Fatalf("AppendReview failed: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open queue: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry ReviewEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("line %d not valid JSON: %v", lines, err)
		}
		if entry.State != StateRefusedInsufficientData {
			t.Errorf("line %d state = %s", lines, entry.State)
		}
		if entry.Model != "test-model" || entry.Timestamp == "" {
			t.Errorf("line %d incomplete: %+v", lines, entry)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("queue holds %d entries, want 2", lines)
	}
}
