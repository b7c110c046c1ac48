// Package tokens estimates completion token counts locally, for cost math
// when a stream carried no usage block.
package tokens

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Estimator counts tokens with tiktoken where the model's encoding is known
// and falls back to a character heuristic otherwise.
type Estimator struct {
	mu    sync.Mutex
	cache map[string]tokenizer.Codec
}

// NewEstimator creates an estimator with an empty codec cache.
func NewEstimator() *Estimator {
	return &Estimator{cache: make(map[string]tokenizer.Codec)}
}

// Count returns the estimated token count of text for model.
func (e *Estimator) Count(model, text string) int {
	if text == "" {
		return 0
	}
	codec := e.codecFor(model)
	if codec == nil {
		// Roughly four characters per token for English prose.
		return (len(text) + 3) / 4
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return (len(text) + 3) / 4
	}
	return len(ids)
}

func (e *Estimator) codecFor(model string) tokenizer.Codec {
	e.mu.Lock()
	defer e.mu.Unlock()

	if codec, ok := e.cache[model]; ok {
		return codec
	}

	codec, err := tokenizer.ForModel(tokenizer.Model(model))
	if err != nil {
		// Non-OpenAI models still tokenize close enough to cl100k for a
		// cost estimate.
		codec, err = tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return nil
		}
	}
	e.cache[model] = codec
	return codec
}
