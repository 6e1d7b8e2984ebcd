package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockProvider speaks the Converse wire shape: the assistant turn
// carries toolUse blocks, and all tool results go back in a single user
// message holding one toolResult block per call.
type BedrockProvider struct {
	api     bedrockConverseAPI
	modelID string
}

// NewBedrockProvider wraps a Bedrock runtime client.
func NewBedrockProvider(api bedrockConverseAPI, modelID string) *BedrockProvider {
	if api == nil {
		panic("conversation: bedrock converse client cannot be nil")
	}
	if modelID == "" {
		panic("conversation: bedrock model id is required")
	}
	return &BedrockProvider{api: api, modelID: modelID}
}

// Name identifies this provider in logs and metrics.
func (p *BedrockProvider) Name() string { return "bedrock" }

// Complete performs one Converse call.
func (p *BedrockProvider) Complete(ctx context.Context, req Request) (Reply, error) {
	var systemBlocks []brtypes.SystemContentBlock
	if strings.TrimSpace(req.System) != "" {
		systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: req.System})
	}

	messages := make([]brtypes.Message, 0, len(req.Turns))
	for _, turn := range req.Turns {
		switch turn.Role {
		case RoleSystem:
			systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: turn.Content})
		case RoleUser:
			messages = append(messages, brtypes.Message{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: turn.Content},
				},
			})
		case RoleAssistant:
			var content []brtypes.ContentBlock
			if strings.TrimSpace(turn.Content) != "" {
				content = append(content, &brtypes.ContentBlockMemberText{Value: turn.Content})
			}
			for _, call := range turn.ToolCalls {
				content = append(content, &brtypes.ContentBlockMemberToolUse{
					Value: brtypes.ToolUseBlock{
						ToolUseId: aws.String(call.ID),
						Name:      aws.String(call.Name),
						Input:     document.NewLazyDocument(call.Arguments),
					},
				})
			}
			if len(content) == 0 {
				continue
			}
			messages = append(messages, brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: content,
			})
		case RoleTool:
			// All results ride in one user message on this wire.
			content := make([]brtypes.ContentBlock, 0, len(turn.ToolResults))
			for _, res := range turn.ToolResults {
				content = append(content, &brtypes.ContentBlockMemberToolResult{
					Value: brtypes.ToolResultBlock{
						ToolUseId: aws.String(res.CallID),
						Content: []brtypes.ToolResultContentBlock{
							&brtypes.ToolResultContentBlockMemberJson{
								Value: document.NewLazyDocument(res.Content),
							},
						},
					},
				})
			}
			messages = append(messages, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: content,
			})
		default:
			return Reply{}, fmt.Errorf("conversation: unsupported role %q", turn.Role)
		}
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(p.modelID),
		System:   systemBlocks,
		Messages: messages,
	}
	inference := &brtypes.InferenceConfiguration{}
	if req.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(req.MaxTokens)
	}
	if req.Temperature >= 0 {
		inference.Temperature = aws.Float32(req.Temperature)
	}
	if inference.MaxTokens != nil || inference.Temperature != nil {
		input.InferenceConfig = inference
	}
	if len(req.Tools) > 0 {
		toolSpecs := make([]brtypes.Tool, 0, len(req.Tools))
		for _, def := range req.Tools {
			toolSpecs = append(toolSpecs, &brtypes.ToolMemberToolSpec{
				Value: brtypes.ToolSpecification{
					Name:        aws.String(def.Name),
					Description: aws.String(def.Description),
					InputSchema: &brtypes.ToolInputSchemaMemberJson{
						Value: document.NewLazyDocument(def.Parameters),
					},
				},
			})
		}
		input.ToolConfig = &brtypes.ToolConfiguration{Tools: toolSpecs}
	}

	out, err := p.api.Converse(ctx, input)
	if err != nil {
		return Reply{}, err
	}

	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return Reply{}, errors.New("conversation: bedrock returned no message output")
	}

	reply := Reply{StopReason: string(out.StopReason)}
	if out.Usage != nil {
		reply.Usage = TokenUsage{
			InputTokens:  derefInt32(out.Usage.InputTokens),
			OutputTokens: derefInt32(out.Usage.OutputTokens),
			TotalTokens:  derefInt32(out.Usage.TotalTokens),
		}
	}

	var text strings.Builder
	for _, block := range msg.Value.Content {
		switch v := block.(type) {
		case *brtypes.ContentBlockMemberText:
			text.WriteString(v.Value)
		case *brtypes.ContentBlockMemberToolUse:
			args := map[string]any{}
			if v.Value.Input != nil {
				if err := v.Value.Input.UnmarshalSmithyDocument(&args); err != nil {
					return Reply{}, fmt.Errorf("conversation: parse tool input for %s: %w", aws.ToString(v.Value.Name), err)
				}
			}
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{
				ID:        aws.ToString(v.Value.ToolUseId),
				Name:      aws.ToString(v.Value.Name),
				Arguments: args,
			})
		}
	}
	reply.Text = strings.TrimSpace(text.String())
	return reply, nil
}

func derefInt32(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}
