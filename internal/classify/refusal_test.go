package classify

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want State
	}{
		{
			"confident answer",
			"Compound interest is interest earned on both the principal and previously accumulated interest. For example, $100 at 10% yields $121 after two years.",
			StateAnswered,
		},
		{
			"insufficient data",
			"I don't have access to real-time market data, and my knowledge cutoff prevents me from answering.",
			StateRefusedInsufficientData,
		},
		{
			"ambiguous request",
			"Your question is quite a vague request; it could be interpreted as many different things. Please clarify.",
			StateRefusedAmbiguous,
		},
		{
			"uncertain hedge",
			"I cannot guarantee any returns. This is not financial advice, and past performance does not guarantee future results. You should consult a financial advisor.",
			StateRefusedUncertain,
		},
		{
			"case insensitive",
			"INSUFFICIENT DATA to answer this.",
			StateRefusedInsufficientData,
		},
		{
			"empty text",
			"",
			StateAnswered,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.text)
			if got.State != tt.want {
				t.Errorf("Detect().State = %s, want %s (reasons: %v)",
					got.State, tt.want, got.Reasons)
			}
		})
	}
}

func TestDetectConfidence(t *testing.T) {
	answered := Detect("Paris is the capital of France.")
	if answered.Confidence != 0.95 {
		t.Errorf("answered confidence = %v, want 0.95", answered.Confidence)
	}
	if answered.Refused() {
		t.Error("answered decision must not report refused")
	}

	refused := Detect("I have insufficient data for that.")
	if !refused.Refused() {
		t.Fatal("expected a refusal")
	}
	if refused.Confidence < 0.5 || refused.Confidence > 0.95 {
		t.Errorf("refusal confidence = %v, want within [0.5, 0.95]", refused.Confidence)
	}
	if len(refused.Reasons) == 0 {
		t.Error("refusal must carry the matched patterns")
	}
}

func TestDetectDominantState(t *testing.T) {
	// Two uncertainty hits against one insufficient-data hit.
	text := "I cannot guarantee this and you should consult a financial advisor; also I have insufficient data."
	got := Detect(text)
	if got.State != StateRefusedUncertain {
		t.Errorf("State = %s, want REFUSED_UNCERTAIN (reasons: %v)", got.State, got.Reasons)
	}
}

func TestDetectPriorityTieBreak(t *testing.T) {
	// One hit each; the earlier pattern set wins.
	text := "I have insufficient data, so please clarify."
	got := Detect(text)
	if got.State != StateRefusedInsufficientData {
		t.Errorf("State = %s, want REFUSED_INSUFFICIENT_DATA", got.State)
	}
}
