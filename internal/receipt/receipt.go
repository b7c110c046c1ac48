// Package receipt persists and verifies tamper-evident records of streamed
// inference sessions. A receipt stores the raw frame sequence alongside
// content digests; verification recomputes the digests from the stored frames
// alone, with no network access.
package receipt

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoFrames is returned when a receipt is requested for an empty frame
// list. A receipt over zero frames proves nothing; callers must skip saving
// for empty sessions.
var ErrNoFrames = errors.New("receipt: no frames to record")

// ErrNotFound is returned by Latest when a directory holds no receipts.
var ErrNotFound = errors.New("receipt: no receipts found")

// Receipt is the persisted artifact. Created once, immutable thereafter.
type Receipt struct {
	Model       string   `json:"model"`
	Timestamp   int64    `json:"timestamp"`
	EventsHash  string   `json:"events_hash"`
	PayloadHash string   `json:"payload_hash"`
	EventCount  int      `json:"event_count"`
	RawEvents   []string `json:"raw_events"`
}

// eventsDigest hashes the raw frames joined with a newline separator, in
// arrival order. Verification must use the identical joining rule.
func eventsDigest(rawEvents []string) string {
	sum := sha256.Sum256([]byte(strings.Join(rawEvents, "\n")))
	return hex.EncodeToString(sum[:])
}

// canonicalJSON serializes v with object keys sorted at every level, so the
// payload digest is independent of struct field order.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("failed to canonicalize payload: %w", err)
	}
	// encoding/json writes map keys in sorted order.
	return json.Marshal(generic)
}

// sanitizeModel replaces path-unsafe characters in a model identifier so it
// can be embedded in a filename.
func sanitizeModel(model string) string {
	replacer := strings.NewReplacer("/", "_", ":", "_", "\\", "_")
	return replacer.Replace(model)
}

// Write records the raw frame sequence of a session as a receipt under dir,
// creating the directory if needed, and returns the artifact path. It is a
// faithful, order-preserving recorder: frame content is not validated.
func Write(dir, model string, payload any, rawFrames []string) (string, error) {
	if len(rawFrames) == 0 {
		return "", ErrNoFrames
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create receipt directory: %w", err)
	}

	canonical, err := canonicalJSON(payload)
	if err != nil {
		return "", err
	}
	payloadSum := sha256.Sum256(canonical)

	eventsHash := eventsDigest(rawFrames)
	ts := time.Now().Unix()

	rec := Receipt{
		Model:       model,
		Timestamp:   ts,
		EventsHash:  eventsHash,
		PayloadHash: hex.EncodeToString(payloadSum[:]),
		EventCount:  len(rawFrames),
		RawEvents:   rawFrames,
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal receipt: %w", err)
	}

	// Timestamp, sanitized model and a hash prefix make the name collision
	// resistant without central coordination.
	name := fmt.Sprintf("%d_%s_%s.json", ts, sanitizeModel(model), eventsHash[:16])
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write receipt: %w", err)
	}
	return path, nil
}

// Load reads a receipt artifact from disk.
func Load(path string) (*Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt: %w", err)
	}
	var rec Receipt
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse receipt %s: %w", path, err)
	}
	return &rec, nil
}

// Latest returns the path of the most recently modified receipt in dir.
func Latest(dir string) (string, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return "", fmt.Errorf("failed to list receipts: %w", err)
	}

	var newest string
	var newestMod time.Time
	for _, path := range entries {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = path
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", ErrNotFound
	}
	return newest, nil
}
