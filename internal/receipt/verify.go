package receipt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/proofstream/proofstream/internal/sse"
	"github.com/proofstream/proofstream/internal/stream"
)

// Status is the outcome of a single verification check.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	// StatusSkip means the check could not be performed, which is distinct
	// from a failure and does not block verification.
	StatusSkip Status = "SKIP"
)

// Check is one verification outcome.
type Check struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail"`
}

// Report is the ordered checklist produced by Verify, plus summary fields
// reconstructed from the artifact.
type Report struct {
	Checks []Check `json:"checks"`

	Model            string `json:"model"`
	EventCount       int    `json:"event_count"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	ContentDeltas    int    `json:"content_deltas"`
	ContentChars     int    `json:"content_chars"`
}

// Verified reports whether no check failed. Skipped checks signal "could not
// check", not "checked and failed".
func (r *Report) Verified() bool {
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

// hashPrefix shortens a digest for display. Stored hashes come from the
// artifact and can be arbitrarily short when the field was tampered with.
func hashPrefix(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}

// checks run in fixed order and are independent: a failure in one never
// short-circuits the rest, so all failures surface together.
var checks = []func(*Receipt, *Report) Check{
	checkEventsHash,
	checkPayloadHash,
	checkEventParsing,
	checkContent,
	checkUsage,
}

// Verify recomputes hashes and structure from a loaded artifact and returns
// the full checklist. It is a pure function of the receipt: no network, no
// dependency on the original session, and it never errors; every outcome is
// a Check.
func Verify(rec *Receipt) *Report {
	rep := &Report{
		Model:      rec.Model,
		EventCount: len(rec.RawEvents),
	}
	if rep.Model == "" {
		rep.Model = "unknown"
	}
	for _, check := range checks {
		rep.Checks = append(rep.Checks, check(rec, rep))
	}
	return rep
}

func checkEventsHash(rec *Receipt, _ *Report) Check {
	if rec.EventsHash == "" {
		return Check{"events_hash", StatusSkip, "field missing in receipt"}
	}
	derived := eventsDigest(rec.RawEvents)
	if derived != rec.EventsHash {
		return Check{"events_hash", StatusFail,
			fmt.Sprintf("mismatch: expected %s… derived %s…", hashPrefix(rec.EventsHash), hashPrefix(derived))}
	}
	return Check{"events_hash", StatusPass,
		fmt.Sprintf("sha256 matches (%s…)", hashPrefix(rec.EventsHash))}
}

// checkPayloadHash can only prove shape: the request body itself is not
// persisted, so content equality cannot be recomputed from the artifact.
func checkPayloadHash(rec *Receipt, _ *Report) Check {
	if rec.PayloadHash == "" {
		return Check{"payload_hash", StatusSkip, "field missing in receipt"}
	}
	if !hexDigest.MatchString(rec.PayloadHash) {
		return Check{"payload_hash", StatusFail,
			fmt.Sprintf("malformed hash value: %q", rec.PayloadHash)}
	}
	return Check{"payload_hash", StatusPass,
		fmt.Sprintf("present and well-formed (%s…)", hashPrefix(rec.PayloadHash))}
}

// parseEvents re-parses every stored frame. The terminal sentinel is a valid
// non-content frame and appears as a nil entry, as do unparseable frames.
func parseEvents(rec *Receipt) (parsed []*stream.Chunk, parseErrors int) {
	parsed = make([]*stream.Chunk, 0, len(rec.RawEvents))
	for _, raw := range rec.RawEvents {
		if strings.TrimSpace(raw) == sse.DoneSentinel {
			parsed = append(parsed, nil)
			continue
		}
		var chunk stream.Chunk
		if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
			parseErrors++
			parsed = append(parsed, nil)
			continue
		}
		parsed = append(parsed, &chunk)
	}
	return parsed, parseErrors
}

func checkEventParsing(rec *Receipt, rep *Report) Check {
	_, parseErrors := parseEvents(rec)
	if parseErrors > 0 {
		return Check{"event parsing", StatusFail,
			fmt.Sprintf("%d parse error(s) out of %d events", parseErrors, rep.EventCount)}
	}
	return Check{"event parsing", StatusPass,
		fmt.Sprintf("%d / %d valid JSON", rep.EventCount-parseErrors, rep.EventCount)}
}

// checkContent replays the consumer's content-extraction rule over the
// parsed frames: every choice delta, in frame then choice order.
func checkContent(rec *Receipt, rep *Report) Check {
	parsed, _ := parseEvents(rec)

	var content strings.Builder
	for _, chunk := range parsed {
		if chunk == nil {
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				content.WriteString(choice.Delta.Content)
				rep.ContentDeltas++
			}
		}
	}

	rep.ContentChars = content.Len()
	if rep.ContentChars == 0 {
		return Check{"content", StatusFail, "no content tokens found in events"}
	}
	return Check{"content", StatusPass,
		fmt.Sprintf("%d deltas, %d chars reconstructed", rep.ContentDeltas, rep.ContentChars)}
}

// checkUsage scans parsed frames in reverse for the last usage observation,
// mirroring the consumer's last-non-zero-wins accounting.
func checkUsage(rec *Receipt, rep *Report) Check {
	parsed, _ := parseEvents(rec)

	for i := len(parsed) - 1; i >= 0; i-- {
		chunk := parsed[i]
		if chunk == nil || chunk.Usage == nil {
			continue
		}
		if chunk.Usage.PromptTokens > 0 || chunk.Usage.CompletionTokens > 0 {
			rep.PromptTokens = chunk.Usage.PromptTokens
			rep.CompletionTokens = chunk.Usage.CompletionTokens
			return Check{"usage", StatusPass,
				fmt.Sprintf("%d prompt + %d completion tokens", rep.PromptTokens, rep.CompletionTokens)}
		}
	}
	return Check{"usage", StatusSkip, "no usage block found (provider may not report it while streaming)"}
}

// Tamper returns a deep copy of rec with one synthetic, well-formed content
// frame inserted at the midpoint of the raw frame list. The artifact on disk
// is untouched. The injected frame parses fine and contributes content; only
// the events hash flags the tampering.
func Tamper(rec *Receipt) *Receipt {
	injected, _ := json.Marshal(stream.Chunk{
		Choices: []stream.ChunkChoice{{Delta: stream.ChunkDelta{Content: " [INJECTED_TOKEN]"}}},
	})

	mid := len(rec.RawEvents) / 2
	events := make([]string, 0, len(rec.RawEvents)+1)
	events = append(events, rec.RawEvents[:mid]...)
	events = append(events, string(injected))
	events = append(events, rec.RawEvents[mid:]...)

	tampered := *rec
	tampered.RawEvents = events
	tampered.EventCount = len(events)
	return &tampered
}
