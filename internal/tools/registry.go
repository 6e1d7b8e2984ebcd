// Package tools holds the named, schema-described operations the language
// model can invoke. Failures are returned as structured payloads rather
// than errors so the model can see them and self-correct mid-conversation.
package tools

import (
	"context"
	"fmt"

	"github.com/carewell/scheduling-agent/internal/observability/metrics"
	"github.com/carewell/scheduling-agent/pkg/logging"
)

// Definition describes one tool to the model provider. Parameters is a
// JSON-schema object.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// HandlerFunc executes one tool call.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

type tool struct {
	def     Definition
	handler HandlerFunc
}

// Registry dispatches tool calls by name.
type Registry struct {
	logger  *logging.Logger
	metrics *metrics.ConversationMetrics
	order   []string
	tools   map[string]tool
}

// NewRegistry creates an empty registry. metrics may be nil.
func NewRegistry(logger *logging.Logger, m *metrics.ConversationMetrics) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		logger:  logger,
		metrics: m,
		tools:   make(map[string]tool),
	}
}

// Register adds a tool. Re-registering a name panics; tool sets are wired
// once at startup.
func (r *Registry) Register(def Definition, h HandlerFunc) {
	if def.Name == "" {
		panic("tools: definition requires a name")
	}
	if h == nil {
		panic(fmt.Sprintf("tools: %s requires a handler", def.Name))
	}
	if _, exists := r.tools[def.Name]; exists {
		panic(fmt.Sprintf("tools: %s registered twice", def.Name))
	}
	r.order = append(r.order, def.Name)
	r.tools[def.Name] = tool{def: def, handler: h}
}

// Definitions returns the tool schemas in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].def)
	}
	return out
}

// Execute runs one tool call. The returned payload is always model-facing:
// unknown names and handler failures come back as {"error", "error_type"}
// maps instead of propagating up the stack.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) any {
	t, ok := r.tools[name]
	if !ok {
		r.logger.Warn("unknown tool requested", "tool", name)
		r.metrics.ObserveToolCall(name, "unknown")
		return map[string]any{
			"error":      fmt.Sprintf("unknown tool %q", name),
			"error_type": "unknown_tool",
		}
	}

	result, err := t.handler(ctx, args)
	if err != nil {
		r.logger.Warn("tool execution failed", "tool", name, "error", err)
		r.metrics.ObserveToolCall(name, "error")
		return map[string]any{
			"error":      err.Error(),
			"error_type": "tool_execution_error",
		}
	}
	r.metrics.ObserveToolCall(name, "ok")
	return result
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return s, nil
}

// intArg extracts an optional integer argument; JSON numbers arrive as
// float64.
func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}
