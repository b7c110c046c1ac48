// Package classify labels model answers, currently distinguishing confident
// answers from the common refusal shapes, and routes refusals to a
// human-review queue.
package classify

import (
	"regexp"
	"strings"
)

// State is the refusal classification of an answer.
type State string

const (
	// StateAnswered means the model provided a confident response.
	StateAnswered State = "ANSWERED"
	// StateRefusedInsufficientData means the model said it lacks data.
	StateRefusedInsufficientData State = "REFUSED_INSUFFICIENT_DATA"
	// StateRefusedAmbiguous means the model found the request unclear.
	StateRefusedAmbiguous State = "REFUSED_AMBIGUOUS"
	// StateRefusedUncertain means the model declined to commit.
	StateRefusedUncertain State = "REFUSED_UNCERTAIN"
)

// Decision is a classification with the patterns that produced it.
type Decision struct {
	State      State    `json:"state"`
	Reasons    []string `json:"reasons,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Refused reports whether the decision is any refusal state.
func (d Decision) Refused() bool {
	return d.State != StateAnswered
}

type patternSet struct {
	state    State
	patterns []*regexp.Regexp
}

func compile(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

// patternSets are ordered by priority; the state with the most hits wins and
// earlier sets win ties.
var patternSets = []patternSet{
	{
		state: StateRefusedInsufficientData,
		patterns: compile(
			`not enough (information|data|context)`,
			`insufficient (data|information|context)`,
			`lack(ing)? (the )?(data|information|context)`,
			`(cannot|can't|unable to) (access|retrieve|fetch|get) (real.?time|live|current|up.?to.?date)`,
			`(no|don't have) access to (real.?time|live|current|market)`,
			`my (knowledge|training) (cutoff|data)`,
			`as of my (last|knowledge) (update|cutoff)`,
		),
	},
	{
		state: StateRefusedAmbiguous,
		patterns: compile(
			`(unclear|ambiguous|vague|broad) (request|question|query|prompt)`,
			`(multiple|several|different) (interpretations|meanings|ways to (read|interpret))`,
			`could (mean|refer to|be interpreted as) (many|several|multiple)`,
			`depends on (what you mean|how you define|your definition)`,
			`(more )?(specific|context|detail|clarity|clarification) (needed|required|would help)`,
			`(clarify|specify|narrow down)`,
		),
	},
	{
		state: StateRefusedUncertain,
		patterns: compile(
			`(cannot|can't|unable to) (guarantee|predict|determine|say for certain|be sure)`,
			`(no|not a) (financial|investment) (advice|advisor|guidance)`,
			`(past performance|historical (data|returns)) (does not|doesn't|is not|isn't) (guarantee|predict)`,
			`(significant|high|considerable) (risk|uncertainty|volatility)`,
			`(should|must|need to) (consult|speak (with|to)|seek) (a |an )?(financial|professional|qualified)`,
			`i('m| am) not (able|in a position|qualified) to (recommend|advise|suggest)`,
			`this (is not|isn't) (financial|investment) advice`,
			`(market|price) (is|are|can be) (unpredictable|volatile|subject to)`,
		),
	},
}

// Detect classifies an answer. Matching is case-insensitive via lowering the
// input; the dominant state is the one with the most pattern hits.
func Detect(text string) Decision {
	lowered := strings.ToLower(text)

	hits := make(map[State][]string)
	for _, set := range patternSets {
		for _, pattern := range set.patterns {
			if pattern.MatchString(lowered) {
				hits[set.state] = append(hits[set.state], pattern.String())
			}
		}
	}

	if len(hits) == 0 {
		return Decision{State: StateAnswered, Confidence: 0.95}
	}

	var dominant State
	for _, set := range patternSets {
		if reasons, ok := hits[set.state]; ok {
			if dominant == "" || len(reasons) > len(hits[dominant]) {
				dominant = set.state
			}
		}
	}

	reasons := hits[dominant]
	confidence := 0.5 + 0.1*float64(len(reasons))
	if confidence > 0.95 {
		confidence = 0.95
	}
	return Decision{State: dominant, Reasons: reasons, Confidence: confidence}
}
