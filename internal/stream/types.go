package stream

// Message is a single chat message in the outbound request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamOptions asks the provider to attach usage accounting to the stream.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// ChatRequest is the outbound chat completion request body. Sampling
// parameters are pointers so that unset values are omitted entirely; sending
// a default would change model behavior.
type ChatRequest struct {
	Model         string         `json:"model"`
	Messages      []Message      `json:"messages"`
	Stream        bool           `json:"stream"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	MaxTokens     *int           `json:"max_tokens,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
}

// ChunkDelta carries the incremental content of one choice.
type ChunkDelta struct {
	Content          string `json:"content,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// ChunkChoice is one choice entry in a streamed chunk.
type ChunkChoice struct {
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason,omitempty"`
}

// Usage reports token accounting. Providers may emit it only on the final
// chunk, or redundantly on several.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Chunk is the parsed form of one streamed data frame.
type Chunk struct {
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}

// ContentParts collects the primary and reasoning fragments of a chunk in
// choice order.
func (c *Chunk) ContentParts() (content, reasoning string) {
	for _, choice := range c.Choices {
		content += choice.Delta.Content
		reasoning += choice.Delta.ReasoningContent
	}
	return content, reasoning
}
