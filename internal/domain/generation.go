package domain

import "context"

// Role is the author of a prompt message.
type Role string

const (
	// RoleSystem carries instructions and grounding context.
	RoleSystem Role = "system"
	// RoleUser carries the question.
	RoleUser Role = "user"
)

// Message is one entry of a chat prompt.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a prompt sent to a generation model.
type CompletionRequest struct {
	Messages    []Message
	Temperature float32
}

// CompletionResult carries generated text and token usage.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Generator produces text from a chat prompt.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}
