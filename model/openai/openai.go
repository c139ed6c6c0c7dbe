// Package openai adapts OpenAI's chat completions API to model.ChatModel.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fitzgen/preduce/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// ChatModel implements model.ChatModel against OpenAI's API, retrying
// transient failures (timeouts, rate limits, 5xx) after a delay that, for
// rate limits, grows with the attempt number.
type ChatModel struct {
	apiKey     string
	modelName  string
	client     client
	maxRetries int
	retryDelay time.Duration
}

type client interface {
	createChatCompletion(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error)
}

// NewChatModel returns a ChatModel for modelName (default "gpt-4o" if empty).
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "gpt-4o"
	}
	return &ChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		client:     &defaultClient{apiKey: apiKey, modelName: modelName},
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		out, err := m.client.createChatCompletion(ctx, messages, tools)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !isTransientError(err) || attempt >= m.maxRetries {
			return model.ChatOut{}, err
		}

		delay := m.retryDelay
		if isRateLimitError(err) {
			delay *= time.Duration(attempt + 1)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.ChatOut{}, ctx.Err()
		}
	}
	return model.ChatOut{}, fmt.Errorf("openai: failed after %d retries: %w", m.maxRetries, lastErr)
}

func isTransientError(err error) bool {
	var rl *rateLimitError
	if errors.As(err, &rl) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "network", "connection", "temporary", "503", "502", "500"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func isRateLimitError(err error) bool {
	var rl *rateLimitError
	return errors.As(err, &rl)
}

type rateLimitError struct{ message string }

func (e *rateLimitError) Error() string { return e.message }

type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) createChatCompletion(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if c.apiKey == "" {
		return model.ChatOut{}, errors.New("openai: API key is required")
	}

	sdkClient := openaisdk.NewClient(option.WithAPIKey(c.apiKey))
	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.modelName),
		Messages: convertMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := sdkClient.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("openai: %w", err)
	}
	return convertResponse(resp), nil
}

func convertMessages(messages []model.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			out[i] = openaisdk.SystemMessage(msg.Content)
		case model.RoleAssistant:
			out[i] = openaisdk.AssistantMessage(msg.Content)
		default:
			out[i] = openaisdk.UserMessage(msg.Content)
		}
	}
	return out
}

func convertTools(tools []model.ToolSpec) []openaisdk.ChatCompletionToolParam {
	out := make([]openaisdk.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		out[i] = openaisdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openaisdk.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Schema),
			},
		}
	}
	return out
}

func convertResponse(resp *openaisdk.ChatCompletion) model.ChatOut {
	var out model.ChatOut
	if len(resp.Choices) == 0 {
		return out
	}
	msg := resp.Choices[0].Message
	out.Text = msg.Content
	if len(msg.ToolCalls) > 0 {
		out.ToolCalls = make([]model.ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			out.ToolCalls[i] = model.ToolCall{Name: tc.Function.Name, Input: parseToolInput(tc.Function.Arguments)}
		}
	}
	return out
}

func parseToolInput(jsonStr string) map[string]interface{} {
	if jsonStr == "" {
		return nil
	}
	return map[string]interface{}{"_raw": jsonStr}
}
