package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type openAIChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider speaks the OpenAI chat-completions wire shape: the
// assistant turn carries tool_calls, and each tool result goes back as its
// own role=tool message keyed by tool_call_id.
type OpenAIProvider struct {
	api   openAIChatAPI
	model string
}

// NewOpenAIProvider wraps an OpenAI client. model defaults to gpt-4o.
func NewOpenAIProvider(api openAIChatAPI, model string) *OpenAIProvider {
	if api == nil {
		panic("conversation: openai client cannot be nil")
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIProvider{api: api, model: model}
}

// Name identifies this provider in logs and metrics.
func (p *OpenAIProvider) Name() string { return "openai" }

// Complete performs one chat-completion call.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (Reply, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, turn := range req.Turns {
		switch turn.Role {
		case RoleSystem:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: turn.Content,
			})
		case RoleUser:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: turn.Content,
			})
		case RoleAssistant:
			msg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: turn.Content,
			}
			for _, call := range turn.ToolCalls {
				args, err := json.Marshal(call.Arguments)
				if err != nil {
					return Reply{}, fmt.Errorf("conversation: marshal tool arguments: %w", err)
				}
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(args),
					},
				})
			}
			messages = append(messages, msg)
		case RoleTool:
			// One message per tool result on this wire.
			for _, res := range turn.ToolResults {
				content, err := json.Marshal(res.Content)
				if err != nil {
					return Reply{}, fmt.Errorf("conversation: marshal tool result: %w", err)
				}
				messages = append(messages, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					ToolCallID: res.CallID,
					Content:    string(content),
				})
			}
		default:
			return Reply{}, fmt.Errorf("conversation: unsupported role %q", turn.Role)
		}
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = int(req.MaxTokens)
	}
	for _, def := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}

	resp, err := p.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return Reply{}, err
	}
	if len(resp.Choices) == 0 {
		return Reply{}, errors.New("conversation: openai returned no choices")
	}
	choice := resp.Choices[0]

	reply := Reply{
		Text:       choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}
	for _, call := range choice.Message.ToolCalls {
		args := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return Reply{}, fmt.Errorf("conversation: parse tool arguments for %s: %w", call.Function.Name, err)
			}
		}
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: args,
		})
	}
	return reply, nil
}
