package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/carewell/scheduling-agent/internal/knowledge"
	"github.com/carewell/scheduling-agent/internal/observability/metrics"
	"github.com/carewell/scheduling-agent/internal/tools"
	"github.com/carewell/scheduling-agent/pkg/logging"
)

// maxToolRounds bounds how many tool-execution rounds one chat turn may
// consume before the loop aborts.
const maxToolRounds = 5

// apologyMessage is returned verbatim when the loop aborts.
const apologyMessage = "I apologize, but I'm having trouble processing your request. Could you please rephrase or try again?"

// OrchestratorConfig tunes the chat loop.
type OrchestratorConfig struct {
	SystemPrompt string
	CallTimeout  time.Duration // per model/tool call; defaults to 30s
	MaxTokens    int32
	Temperature  float32
}

// Orchestrator runs the bounded request/response/tool-execution loop.
type Orchestrator struct {
	provider ModelProvider
	registry *tools.Registry
	sessions SessionStore
	faq      *knowledge.Retriever
	logger   *logging.Logger
	metrics  *metrics.ConversationMetrics
	tracer   trace.Tracer
	cfg      OrchestratorConfig

	// sessionLocks serializes concurrent turns for the same session id so
	// history reads and writes cannot interleave.
	sessionLocks sync.Map // session id -> *sync.Mutex
}

// NewOrchestrator creates the chat loop. faq and metrics may be nil.
func NewOrchestrator(provider ModelProvider, registry *tools.Registry, sessions SessionStore, faq *knowledge.Retriever, logger *logging.Logger, m *metrics.ConversationMetrics, cfg OrchestratorConfig) *Orchestrator {
	if provider == nil {
		panic("conversation: model provider cannot be nil")
	}
	if registry == nil {
		panic("conversation: tool registry cannot be nil")
	}
	if sessions == nil {
		panic("conversation: session store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &Orchestrator{
		provider: provider,
		registry: registry,
		sessions: sessions,
		faq:      faq,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("conversation"),
		cfg:      cfg,
	}
}

// ChatRequest is one inbound user message. History seeds a fresh session
// when the store has no turns for the id yet.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	History   []Turn `json:"conversation_history,omitempty"`
}

// ChatResponse is the assistant's final reply for the turn.
type ChatResponse struct {
	Message   string         `json:"message"`
	SessionID string         `json:"session_id"`
	History   []Turn         `json:"conversation_history"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (o *Orchestrator) lockSession(id string) func() {
	mu, _ := o.sessionLocks.LoadOrStore(id, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	return mu.(*sync.Mutex).Unlock
}

// Chat processes one user message end to end: session lookup, optional FAQ
// context injection, up to maxToolRounds rounds of tool execution, session
// update. Tool calls within a round run sequentially since later calls may
// depend on earlier side effects.
func (o *Orchestrator) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, span := o.tracer.Start(ctx, "conversation.Chat")
	defer span.End()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	unlock := o.lockSession(sessionID)
	defer unlock()

	session, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if session == nil {
		session = &Session{ID: sessionID, Context: map[string]string{}}
		// A caller-provided transcript seeds a session the store no
		// longer has (expired or from another replica).
		for _, turn := range req.History {
			if turn.Role == RoleUser || turn.Role == RoleAssistant {
				session.Turns = append(session.Turns, Turn{Role: turn.Role, Content: turn.Content})
			}
		}
	}

	userTurn := Turn{Role: RoleUser, Content: req.Message}
	transcript := append(append([]Turn(nil), session.Turns...), userTurn)
	metadata := map[string]any{}

	if o.faq != nil && IsFAQQuery(req.Message) {
		faqCtx, err := o.faq.Context(ctx, req.Message, 3)
		if err != nil {
			o.logger.Warn("faq retrieval failed", "error", err)
		} else if faqCtx != "" {
			transcript = append(transcript, Turn{
				Role:    RoleSystem,
				Content: "Relevant clinic information:\n" + faqCtx,
			})
			metadata["faq_context"] = true
		}
	}

	finalText := ""
	aborted := false
	rounds := 0
	var toolsUsed []string

	reply, err := o.callModel(ctx, transcript, o.registry.Definitions())
	if err != nil {
		span.RecordError(err)
		o.metrics.ObserveTurn("error")
		return nil, err
	}

	for {
		if len(reply.ToolCalls) == 0 {
			finalText = reply.Text
			break
		}
		if rounds >= maxToolRounds {
			aborted = true
			break
		}
		rounds++

		transcript = append(transcript, Turn{
			Role:      RoleAssistant,
			Content:   reply.Text,
			ToolCalls: reply.ToolCalls,
		})
		results := make([]ToolResult, 0, len(reply.ToolCalls))
		for _, call := range reply.ToolCalls {
			toolsUsed = append(toolsUsed, call.Name)
			results = append(results, ToolResult{
				CallID:  call.ID,
				Name:    call.Name,
				Content: o.executeTool(ctx, call),
			})
		}
		transcript = append(transcript, Turn{Role: RoleTool, ToolResults: results})

		// Wrap-up call without the tool schema; if it somehow still
		// requests tools the loop continues against the round cap.
		reply, err = o.callModel(ctx, transcript, nil)
		if err != nil {
			span.RecordError(err)
			o.metrics.ObserveTurn("error")
			return nil, err
		}
	}

	metadata["rounds"] = rounds
	if len(toolsUsed) > 0 {
		metadata["tools_used"] = toolsUsed
	}
	if aborted {
		finalText = apologyMessage
		metadata["error"] = "max_iterations_reached"
		o.metrics.ObserveTurn("max_iterations_reached")
		o.logger.Warn("tool loop exhausted", "session_id", sessionID, "rounds", rounds)
	} else {
		o.metrics.ObserveTurn("ok")
	}
	o.metrics.ObserveRounds(rounds)

	// Sessions persist only the user/assistant pair; tool traffic and
	// injected context are per-turn scaffolding.
	session.Turns = append(session.Turns, userTurn, Turn{Role: RoleAssistant, Content: finalText})
	if err := o.sessions.Save(ctx, session); err != nil {
		o.logger.Error("failed to save session", "session_id", sessionID, "error", err)
	}

	return &ChatResponse{
		Message:   finalText,
		SessionID: sessionID,
		History:   session.Turns,
		Metadata:  metadata,
	}, nil
}

func (o *Orchestrator) callModel(ctx context.Context, transcript []Turn, defs []tools.Definition) (Reply, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	reply, err := o.provider.Complete(callCtx, Request{
		System:      o.cfg.SystemPrompt,
		Turns:       transcript,
		Tools:       defs,
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	})
	o.metrics.ObserveModelCall(o.provider.Name(), time.Since(start).Seconds())
	return reply, err
}

func (o *Orchestrator) executeTool(ctx context.Context, call ToolCall) any {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()
	return o.registry.Execute(callCtx, call.Name, call.Arguments)
}

// SessionHistory returns the stored turns for a session id.
func (o *Orchestrator) SessionHistory(ctx context.Context, id string) (*Session, error) {
	return o.sessions.Get(ctx, id)
}

// DeleteSession removes a session's history.
func (o *Orchestrator) DeleteSession(ctx context.Context, id string) error {
	return o.sessions.Delete(ctx, id)
}
