package providers

import "time"

// Message represents a single message in a conversation.
type Message struct {
	// Role identifies the message sender (system, user, assistant).
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is a provider-agnostic generation request.
// It is immutable for the duration of a call and never persisted.
type Request struct {
	// Prompt is the user prompt. If Messages is non-empty it takes
	// precedence and Prompt is ignored.
	Prompt string `json:"prompt,omitempty"`

	// Messages is the conversation history.
	Messages []Message `json:"messages,omitempty"`

	// Model overrides the provider's default model when non-empty.
	Model string `json:"model,omitempty"`

	// Temperature controls randomness (typically 0.0 to 1.0).
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens caps the number of tokens to generate.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Metadata carries internal request context; it is never sent to the
	// backend.
	Metadata map[string]string `json:"-"`
}

// Text returns the request's full prompt text: the concatenated message
// contents, or Prompt when there are no messages.
func (r *Request) Text() string {
	if len(r.Messages) == 0 {
		return r.Prompt
	}

	var size int
	for _, m := range r.Messages {
		size += len(m.Content) + 1
	}

	buf := make([]byte, 0, size)
	for i, m := range r.Messages {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, m.Content...)
	}
	return string(buf)
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion.
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is prompt + completion.
	TotalTokens int `json:"total_tokens"`
}

// Response is a provider-agnostic generation response.
// It is produced once per successful call; ownership transfers to the
// caller.
type Response struct {
	// Content is the generated text.
	Content string `json:"content"`

	// Provider is the name of the provider that served the request.
	Provider string `json:"provider"`

	// Model is the model that generated the response.
	Model string `json:"model"`

	// Usage contains token consumption for the call.
	Usage TokenUsage `json:"usage"`

	// Cost is the computed cost of the call in USD.
	Cost float64 `json:"cost"`

	// Latency is the wall-clock duration of the call.
	Latency time.Duration `json:"latency"`

	// Metadata contains additional response context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// HealthSnapshot is a provider's own view of its health, produced by a
// probe or updated as a side effect of serving traffic.
type HealthSnapshot struct {
	// Provider is the provider name.
	Provider string `json:"provider"`

	// IsHealthy reports whether the backend is reachable and responding.
	IsHealthy bool `json:"is_healthy"`

	// Latency is the measured round-trip time of the probe or request.
	Latency time.Duration `json:"latency"`

	// CheckedAt is when the snapshot was taken.
	CheckedAt time.Time `json:"checked_at"`

	// Message describes the failure when IsHealthy is false.
	Message string `json:"message,omitempty"`
}
