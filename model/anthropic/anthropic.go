// Package anthropic adapts Anthropic's Messages API to model.ChatModel.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/fitzgen/preduce/model"
)

// ChatModel implements model.ChatModel against Claude, extracting system
// messages into Anthropic's separate system parameter.
type ChatModel struct {
	apiKey    string
	modelName string
	client    client
}

type client interface {
	createMessage(ctx context.Context, systemPrompt string, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error)
}

// NewChatModel returns a ChatModel for modelName (default
// "claude-sonnet-4-5-20250929" if empty).
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "claude-sonnet-4-5-20250929"
	}
	return &ChatModel{
		apiKey:    apiKey,
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey, modelName: modelName},
	}
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}
	systemPrompt, rest := extractSystemPrompt(messages)
	return m.client.createMessage(ctx, systemPrompt, rest, tools)
}

func extractSystemPrompt(messages []model.Message) (string, []model.Message) {
	var systemPrompt string
	var rest []model.Message
	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
			continue
		}
		rest = append(rest, msg)
	}
	return systemPrompt, rest
}

type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) createMessage(ctx context.Context, systemPrompt string, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if c.apiKey == "" {
		return model.ChatOut{}, errors.New("anthropic: API key is required")
	}

	sdkClient := anthropicsdk.NewClient(option.WithAPIKey(c.apiKey))
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.modelName),
		Messages:  convertMessages(messages),
		MaxTokens: 4096,
	}
	if systemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: systemPrompt}}
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := sdkClient.Messages.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("anthropic: %w", err)
	}
	return convertResponse(resp), nil
}

func convertMessages(messages []model.Message) []anthropicsdk.MessageParam {
	out := make([]anthropicsdk.MessageParam, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case model.RoleAssistant:
			out[i] = anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(msg.Content))
		default:
			out[i] = anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(msg.Content))
		}
	}
	return out
}

func convertTools(tools []model.ToolSpec) []anthropicsdk.ToolUnionParam {
	out := make([]anthropicsdk.ToolUnionParam, len(tools))
	for i, t := range tools {
		var properties any
		var required []string
		if t.Schema != nil {
			properties = t.Schema["properties"]
			if req, ok := t.Schema["required"].([]string); ok {
				required = req
			}
		}
		out[i] = anthropicsdk.ToolUnionParam{
			OfTool: &anthropicsdk.ToolParam{
				Name:        t.Name,
				Description: anthropicsdk.String(t.Description),
				InputSchema: anthropicsdk.ToolInputSchemaParam{Properties: properties, Required: required},
			},
		}
	}
	return out
}

func convertResponse(resp *anthropicsdk.Message) model.ChatOut {
	var out model.ChatOut
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropicsdk.TextBlock:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += b.Text
		case anthropicsdk.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{Name: b.Name, Input: convertToolInput(b.Input)})
		}
	}
	return out
}

func convertToolInput(input interface{}) map[string]interface{} {
	if m, ok := input.(map[string]interface{}); ok {
		return m
	}
	if input == nil {
		return nil
	}
	return map[string]interface{}{"_raw": input}
}
