package receipt

import (
	"strings"
	"testing"
)

func validReceipt(t *testing.T) *Receipt {
	t.Helper()
	dir := t.TempDir()
	path, err := Write(dir, "test-model", map[string]any{"model": "test-model"}, sampleFrames)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	rec, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return rec
}

func checkByName(t *testing.T, rep *Report, name string) Check {
	t.Helper()
	for _, c := range rep.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not found in report", name)
	return Check{}
}

func TestVerifyCleanReceiptPasses(t *testing.T) {
	rec := validReceipt(t)
	rep := Verify(rec)

	if !rep.Verified() {
		t.Fatalf("clean receipt rejected: %+v", rep.Checks)
	}
	if len(rep.Checks) != 5 {
		t.Fatalf("expected 5 checks, got %d", len(rep.Checks))
	}
	for _, c := range rep.Checks {
		if c.Status == StatusFail {
			t.Errorf("check %q failed: %s", c.Name, c.Detail)
		}
	}
	if rep.PromptTokens != 5 || rep.CompletionTokens != 2 {
		t.Errorf("usage = (%d, %d), want (5, 2)", rep.PromptTokens, rep.CompletionTokens)
	}
	if rep.ContentChars != len("Hi there") {
		t.Errorf("ContentChars = %d", rep.ContentChars)
	}
	if rep.ContentDeltas != 2 {
		t.Errorf("ContentDeltas = %d, want 2", rep.ContentDeltas)
	}
}

func TestVerifyDetectsEditedFrame(t *testing.T) {
	rec := validReceipt(t)
	rec.RawEvents[0] = strings.Replace(rec.RawEvents[0], "Hi", "Bye", 1)

	rep := Verify(rec)
	if rep.Verified() {
		t.Fatal("edited frame must be detected")
	}
	if c := checkByName(t, rep, "events_hash"); c.Status != StatusFail {
		t.Errorf("events_hash = %s, want FAIL", c.Status)
	}
}

func TestVerifyMissingHashesSkip(t *testing.T) {
	rec := validReceipt(t)
	rec.EventsHash = ""
	rec.PayloadHash = ""

	rep := Verify(rec)
	if c := checkByName(t, rep, "events_hash"); c.Status != StatusSkip {
		t.Errorf("events_hash = %s, want SKIP", c.Status)
	}
	if c := checkByName(t, rep, "payload_hash"); c.Status != StatusSkip {
		t.Errorf("payload_hash = %s, want SKIP", c.Status)
	}
	// Skips do not block verification on their own.
	if !rep.Verified() {
		t.Error("skipped checks must not reject the receipt")
	}
}

func TestVerifyTruncatedStoredHash(t *testing.T) {
	// A hand-edited artifact can hold a hash of any length; verification
	// must report the mismatch as a check, never crash.
	rec := &Receipt{
		Model:      "m",
		EventsHash: "abc123",
		RawEvents: []string{
			`{"choices":[{"delta":{"content":"Hi"}}]}`,
			"[DONE]",
		},
		EventCount: 2,
	}

	rep := Verify(rec)
	if rep.Verified() {
		t.Fatal("truncated stored hash must be rejected")
	}
	c := checkByName(t, rep, "events_hash")
	if c.Status != StatusFail {
		t.Errorf("events_hash = %s, want FAIL", c.Status)
	}
	if !strings.Contains(c.Detail, "abc123") {
		t.Errorf("detail should show the stored hash: %q", c.Detail)
	}
}

func TestVerifyMalformedPayloadHash(t *testing.T) {
	rec := validReceipt(t)
	rec.PayloadHash = "not-a-digest"

	rep := Verify(rec)
	if c := checkByName(t, rep, "payload_hash"); c.Status != StatusFail {
		t.Errorf("payload_hash = %s, want FAIL", c.Status)
	}
}

func TestVerifyUnparseableEvent(t *testing.T) {
	rec := validReceipt(t)
	rec.RawEvents[1] = "{broken"
	rec.EventsHash = eventsDigest(rec.RawEvents)

	rep := Verify(rec)
	if c := checkByName(t, rep, "event parsing"); c.Status != StatusFail {
		t.Errorf("event parsing = %s, want FAIL", c.Status)
	}
	// The other checks still run on the remaining frames.
	if c := checkByName(t, rep, "content"); c.Status != StatusPass {
		t.Errorf("content = %s, want PASS", c.Status)
	}
}

func TestVerifyNoContent(t *testing.T) {
	rec := &Receipt{
		Model:      "m",
		RawEvents:  []string{`{"choices":[]}`, "[DONE]"},
		EventCount: 2,
	}
	rec.EventsHash = eventsDigest(rec.RawEvents)

	rep := Verify(rec)
	if c := checkByName(t, rep, "content"); c.Status != StatusFail {
		t.Errorf("content = %s, want FAIL", c.Status)
	}
	if c := checkByName(t, rep, "usage"); c.Status != StatusSkip {
		t.Errorf("usage = %s, want SKIP when no usage block exists", c.Status)
	}
}

func TestVerifyUsageReverseScan(t *testing.T) {
	rec := &Receipt{
		Model: "m",
		RawEvents: []string{
			`{"choices":[{"delta":{"content":"x"}}],"usage":{"prompt_tokens":3,"completion_tokens":1}}`,
			`{"choices":[],"usage":{"prompt_tokens":0,"completion_tokens":0}}`,
			"[DONE]",
		},
		EventCount: 3,
	}
	rec.EventsHash = eventsDigest(rec.RawEvents)

	rep := Verify(rec)
	if c := checkByName(t, rep, "usage"); c.Status != StatusPass {
		t.Fatalf("usage = %s, want PASS", c.Status)
	}
	// The trailing all-zero block is passed over in the reverse scan.
	if rep.PromptTokens != 3 || rep.CompletionTokens != 1 {
		t.Errorf("usage = (%d, %d), want (3, 1)", rep.PromptTokens, rep.CompletionTokens)
	}
}

func TestVerifyIdempotent(t *testing.T) {
	rec := validReceipt(t)
	first := Verify(rec)
	second := Verify(rec)

	if len(first.Checks) != len(second.Checks) {
		t.Fatal("check count changed between runs")
	}
	for i := range first.Checks {
		if first.Checks[i] != second.Checks[i] {
			t.Errorf("check %d differs: %+v vs %+v", i, first.Checks[i], second.Checks[i])
		}
	}
}

func TestTamperFlipsOnlyEventsHash(t *testing.T) {
	rec := validReceipt(t)
	tampered := Tamper(rec)

	if len(tampered.RawEvents) != len(rec.RawEvents)+1 {
		t.Fatalf("tampered events = %d, want %d", len(tampered.RawEvents), len(rec.RawEvents)+1)
	}
	if tampered.EventCount != len(tampered.RawEvents) {
		t.Errorf("EventCount not updated: %d", tampered.EventCount)
	}
	// The original stays intact.
	if len(rec.RawEvents) != len(sampleFrames) {
		t.Error("Tamper mutated the source receipt")
	}

	rep := Verify(tampered)
	if rep.Verified() {
		t.Fatal("tampered receipt must be rejected")
	}
	for _, c := range rep.Checks {
		switch c.Name {
		case "events_hash":
			if c.Status != StatusFail {
				t.Errorf("events_hash = %s, want FAIL", c.Status)
			}
		default:
			// The injected frame is well-formed JSON with real content, so
			// every structural check still passes.
			if c.Status == StatusFail {
				t.Errorf("check %q failed on a well-formed injection: %s", c.Name, c.Detail)
			}
		}
	}

	if !strings.Contains(strings.Join(tampered.RawEvents, "\n"), "[INJECTED_TOKEN]") {
		t.Error("injected marker missing from tampered events")
	}
}
