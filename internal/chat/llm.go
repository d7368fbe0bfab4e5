package chat

import "context"

// ChatRole identifies who authored a chat message.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is a single turn in an LLM conversation.
type ChatMessage struct {
	Role    ChatRole
	Content string
}

// LLMRequest is a provider-agnostic completion request.
type LLMRequest struct {
	System      []string
	Messages    []ChatMessage
	Temperature float32
	TopP        float64
	MaxTokens   int32
}

// TokenUsage reports token counts for a completion.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// LLMResponse is the provider-agnostic completion result.
type LLMResponse struct {
	Text       string
	StopReason string
	Usage      TokenUsage
}

// LLMClient generates chat completions. Implemented by GeminiLLMClient.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
