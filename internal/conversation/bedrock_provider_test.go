package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carewell/scheduling-agent/internal/tools"
)

type fakeBedrock struct {
	gotInput *bedrockruntime.ConverseInput
	out      *bedrockruntime.ConverseOutput
	err      error
}

func (f *fakeBedrock) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.gotInput = params
	return f.out, f.err
}

func textOutput(content string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: content}},
			},
		},
		StopReason: brtypes.StopReasonEndTurn,
		Usage:      &brtypes.TokenUsage{InputTokens: aws.Int32(20), OutputTokens: aws.Int32(8), TotalTokens: aws.Int32(28)},
	}
}

func TestBedrockRequestShape(t *testing.T) {
	api := &fakeBedrock{out: textOutput("done")}
	p := NewBedrockProvider(api, "anthropic.claude-3-5-sonnet-20240620-v1:0")

	reply, err := p.Complete(context.Background(), Request{
		System: "standing instructions",
		Turns: []Turn{
			{Role: RoleSystem, Content: "extra context"},
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{
				{ID: "use-1", Name: "check_availability", Arguments: map[string]any{"date": "2026-09-07"}},
			}},
			{Role: RoleTool, ToolResults: []ToolResult{
				{CallID: "use-1", Name: "check_availability", Content: map[string]any{"slots": []string{"10:00"}}},
				{CallID: "use-2", Name: "echo", Content: "ok"},
			}},
		},
		Tools:     []tools.Definition{{Name: "check_availability", Description: "d", Parameters: map[string]any{"type": "object"}}},
		MaxTokens: 512,
	})
	require.NoError(t, err)
	assert.Equal(t, "done", reply.Text)
	assert.Equal(t, int32(20), reply.Usage.InputTokens)
	assert.Equal(t, string(brtypes.StopReasonEndTurn), reply.StopReason)

	in := api.gotInput
	assert.Equal(t, "anthropic.claude-3-5-sonnet-20240620-v1:0", aws.ToString(in.ModelId))
	// System prompt plus the system-role turn both land in System blocks.
	require.Len(t, in.System, 2)
	require.NotNil(t, in.InferenceConfig)
	assert.Equal(t, int32(512), aws.ToInt32(in.InferenceConfig.MaxTokens))
	require.NotNil(t, in.ToolConfig)
	require.Len(t, in.ToolConfig.Tools, 1)

	// user, assistant-with-toolUse, then a single user message with all results.
	require.Len(t, in.Messages, 3)
	assistant := in.Messages[1]
	assert.Equal(t, brtypes.ConversationRoleAssistant, assistant.Role)
	toolUse, ok := assistant.Content[0].(*brtypes.ContentBlockMemberToolUse)
	require.True(t, ok)
	assert.Equal(t, "use-1", aws.ToString(toolUse.Value.ToolUseId))

	resultsMsg := in.Messages[2]
	assert.Equal(t, brtypes.ConversationRoleUser, resultsMsg.Role)
	require.Len(t, resultsMsg.Content, 2)
	first, ok := resultsMsg.Content[0].(*brtypes.ContentBlockMemberToolResult)
	require.True(t, ok)
	assert.Equal(t, "use-1", aws.ToString(first.Value.ToolUseId))
}

func TestBedrockParsesToolUse(t *testing.T) {
	api := &fakeBedrock{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: "Let me book that."},
					&brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
						ToolUseId: aws.String("use-7"),
						Name:      aws.String("book_appointment"),
						Input:     document.NewLazyDocument(map[string]any{"date": "2026-09-07"}),
					}},
				},
			},
		},
		StopReason: brtypes.StopReasonToolUse,
	}}
	p := NewBedrockProvider(api, "model-id")

	reply, err := p.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "book it"}}})
	require.NoError(t, err)
	assert.Equal(t, "Let me book that.", reply.Text)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, "use-7", reply.ToolCalls[0].ID)
	assert.Equal(t, "book_appointment", reply.ToolCalls[0].Name)
	assert.Equal(t, "2026-09-07", reply.ToolCalls[0].Arguments["date"])

	// No tools in the request means no tool config on the wire.
	assert.Nil(t, api.gotInput.ToolConfig)
}

func TestBedrockErrors(t *testing.T) {
	p := NewBedrockProvider(&fakeBedrock{err: errors.New("throttled")}, "model-id")
	_, err := p.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "x"}}})
	assert.Error(t, err)

	p = NewBedrockProvider(&fakeBedrock{out: &bedrockruntime.ConverseOutput{}}, "model-id")
	_, err = p.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "x"}}})
	assert.Error(t, err)
}

func TestBedrockConstructorGuards(t *testing.T) {
	assert.Panics(t, func() { NewBedrockProvider(nil, "model-id") })
	assert.Panics(t, func() { NewBedrockProvider(&fakeBedrock{}, "") })
}
