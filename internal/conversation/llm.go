// Package conversation drives the bounded tool-orchestration loop against a
// language-model provider, maintaining per-session history and injecting
// clinic knowledge for FAQ-style questions.
package conversation

import (
	"context"

	"github.com/carewell/scheduling-agent/internal/tools"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is one structured action the model asked the orchestrator to run.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult pairs a tool call with its payload.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content any    `json:"content"`
}

// Turn is one provider-neutral transcript entry. Assistant turns may carry
// tool calls; tool turns carry the matching results. Each provider maps
// these onto its own wire shapes.
type Turn struct {
	Role        string       `json:"role"`
	Content     string       `json:"content,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// TokenUsage reports provider token accounting.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// Request is one model call. Tools may be nil for wrap-up calls that must
// produce plain text.
type Request struct {
	System      string
	Turns       []Turn
	Tools       []tools.Definition
	MaxTokens   int32
	Temperature float32
}

// Reply is the model's answer: text, zero or more tool calls, or both.
type Reply struct {
	Text       string
	ToolCalls  []ToolCall
	Usage      TokenUsage
	StopReason string
}

// ModelProvider abstracts one vendor's chat API, including how tool-call
// and tool-result turns are shaped on the wire.
type ModelProvider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Reply, error)
}
