package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider is a text-only last-resort provider. It cannot issue tool
// calls, so tool-call and tool-result turns are folded into plain text; a
// degraded conversation keeps answering even when the tool-capable
// providers are down.
type GeminiProvider struct {
	client  *genai.Client
	modelID string
}

// NewGeminiProvider creates a Gemini-backed provider.
func NewGeminiProvider(ctx context.Context, apiKey, modelID string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}
	return &GeminiProvider{client: client, modelID: modelID}, nil
}

// Name identifies this provider in logs and metrics.
func (p *GeminiProvider) Name() string { return "gemini" }

// Complete performs one chat call. Tool definitions in the request are
// ignored; the reply never contains tool calls.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (Reply, error) {
	model := p.client.GenerativeModel(p.modelID)
	if req.Temperature >= 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}

	system := req.System
	var history []*genai.Content
	var last string
	for _, turn := range req.Turns {
		text := turnAsText(turn)
		if text == "" {
			continue
		}
		if turn.Role == RoleSystem {
			system = system + "\n\n" + text
			continue
		}
		role := "user"
		if turn.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(text)},
		})
	}
	if strings.TrimSpace(system) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	if len(history) == 0 {
		return Reply{}, errors.New("conversation: gemini requires at least one message")
	}

	lastContent := history[len(history)-1]
	history = history[:len(history)-1]
	if text, ok := lastContent.Parts[0].(genai.Text); ok {
		last = string(text)
	}

	cs := model.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return Reply{}, fmt.Errorf("conversation: gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return Reply{}, errors.New("conversation: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Reply{}, errors.New("conversation: gemini returned empty content")
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	reply := Reply{
		Text:       strings.TrimSpace(text.String()),
		StopReason: fmt.Sprintf("%d", candidate.FinishReason),
	}
	if resp.UsageMetadata != nil {
		reply.Usage = TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}
	return reply, nil
}

// turnAsText flattens a transcript turn into plain text for a provider
// without tool support.
func turnAsText(turn Turn) string {
	var sb strings.Builder
	if strings.TrimSpace(turn.Content) != "" {
		sb.WriteString(turn.Content)
	}
	for _, call := range turn.ToolCalls {
		args, _ := json.Marshal(call.Arguments)
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[requested %s with %s]", call.Name, args)
	}
	for _, res := range turn.ToolResults {
		content, _ := json.Marshal(res.Content)
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[%s returned %s]", res.Name, content)
	}
	return strings.TrimSpace(sb.String())
}
