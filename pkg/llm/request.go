package llm

// ChatRequest represents a provider-agnostic, single-shot chat completion
// request. Each Completer translates it into its own wire format.
type ChatRequest struct {
	// System prompt. Providers that model it as a message get it prepended.
	System string `json:"system,omitempty"`

	// Conversation messages
	Messages []Message `json:"messages"`

	// Generation parameters (unified across providers)
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// NewPrompt builds a request with a system prompt and one user message.
func NewPrompt(system, user string, temperature float64, maxTokens int) *ChatRequest {
	return &ChatRequest{
		System:      system,
		Messages:    []Message{NewTextMessage(RoleUser, user)},
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	}
}
