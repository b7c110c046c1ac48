package bench

import (
	"github.com/proofstream/proofstream/internal/stream"
)

// Stats aggregates timed runs for one provider/model pair. Runs that ended
// in a transport error contribute to the error count only.
type Stats struct {
	Provider string
	Model    string

	ttfbMillis       []float64
	ttcMillis        []float64
	promptTokens     []float64
	completionTokens []float64
	Stalls           int
	Errors           int
	Runs             int
}

// NewStats creates an empty aggregation for a provider/model pair.
func NewStats(provider, model string) *Stats {
	return &Stats{Provider: provider, Model: model}
}

// Add folds one finished session into the aggregation.
func (s *Stats) Add(sess *stream.Session) {
	s.Runs++
	if sess.Error != "" {
		s.Errors++
		return
	}
	if sess.TTFB != nil {
		s.ttfbMillis = append(s.ttfbMillis, float64(sess.TTFB.Microseconds())/1000)
	}
	s.ttcMillis = append(s.ttcMillis, float64(sess.TTC.Microseconds())/1000)
	s.promptTokens = append(s.promptTokens, float64(sess.PromptTokens))
	s.completionTokens = append(s.completionTokens, float64(sess.CompletionTokens))
	s.Stalls += sess.StallCount
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	return &m
}

// MeanTTFB returns the average time to first byte in milliseconds, or nil
// when no successful run reported one.
func (s *Stats) MeanTTFB() *float64 { return mean(s.ttfbMillis) }

// MeanTTC returns the average time to completion in milliseconds.
func (s *Stats) MeanTTC() *float64 { return mean(s.ttcMillis) }

// MeanPromptTokens returns the average prompt token count.
func (s *Stats) MeanPromptTokens() *float64 { return mean(s.promptTokens) }

// MeanCompletionTokens returns the average completion token count.
func (s *Stats) MeanCompletionTokens() *float64 { return mean(s.completionTokens) }

// MeanCost estimates the average per-call cost in USD from the given rate,
// or nil when token averages are unavailable.
func (s *Stats) MeanCost(rate Rate) *float64 {
	pt := s.MeanPromptTokens()
	ct := s.MeanCompletionTokens()
	if pt == nil || ct == nil {
		return nil
	}
	cost := EstimateCost(*pt, *ct, rate)
	return &cost
}
