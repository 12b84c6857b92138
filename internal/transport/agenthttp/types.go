package agenthttp

// ChatRequest is the wire request for both streaming and non-streaming
// turns. The agent service multiplexes apps through the model field.
type ChatRequest struct {
	Model       string        `json:"model"`
	ChatID      string        `json:"chatId,omitempty"`
	Stream      bool          `json:"stream"`
	Detail      bool          `json:"detail"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatMessage is one history entry on the wire.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the non-streaming completion response.
type ChatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int    `json:"index"`
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// StreamChunk is one parsed answer delta from the event stream.
type StreamChunk struct {
	ID      string `json:"id"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// streamError is the payload of a wire-level "error" event.
type streamError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
