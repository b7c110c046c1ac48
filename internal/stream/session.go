package stream

import "time"

// Session accumulates the result of one streaming request/response cycle.
// It is mutated frame-by-frame during consumption and read-only afterwards.
type Session struct {
	// Text is the accumulated answer content.
	Text string
	// Reasoning is the accumulated secondary (chain-of-thought) content.
	Reasoning string

	// TTFB is the time from request start to the first data frame. Nil when
	// no frame ever arrived.
	TTFB *time.Duration
	// TTC is the time from request start to the end of consumption. Always
	// set, including on error.
	TTC time.Duration

	PromptTokens     int
	CompletionTokens int

	// StallCount is the number of inter-frame gaps that exceeded the stall
	// threshold. Observational only; stalls never abort a session.
	StallCount int
	// ParseErrors counts frames whose payload failed to parse. Such frames
	// are skipped, never fatal.
	ParseErrors int

	// Error holds the transport-level failure that terminated the session,
	// if any. A session can hold both frames and an error when the transport
	// failed mid-stream.
	Error string

	// RawFrames is the ordered raw payload of every frame received,
	// including the terminal sentinel.
	RawFrames []string

	// ReceiptPath is set by the caller after a receipt has been written.
	ReceiptPath string
}

// firstFrameAt records the sticky time-to-first-byte: once set it is never
// overwritten.
func firstFrameAt(s *Session, sinceStart time.Duration) {
	if s.TTFB == nil {
		d := sinceStart
		s.TTFB = &d
	}
}

// mergeUsage applies the last-non-zero-wins reducer: later non-zero
// observations overwrite, zero observations never erase prior values.
func mergeUsage(s *Session, u *Usage) {
	if u == nil {
		return
	}
	if u.PromptTokens > 0 {
		s.PromptTokens = u.PromptTokens
	}
	if u.CompletionTokens > 0 {
		s.CompletionTokens = u.CompletionTokens
	}
}
