// Package google adapts Google's Gemini API to model.ChatModel.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitzgen/preduce/model"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ChatModel implements model.ChatModel against Gemini.
type ChatModel struct {
	apiKey    string
	modelName string
	client    client
}

type client interface {
	generateContent(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error)
}

// NewChatModel returns a ChatModel for modelName (default
// "gemini-2.5-flash" if empty).
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
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
	out, err := m.client.generateContent(ctx, messages, tools)
	if err != nil {
		var safetyErr *SafetyFilterError
		if errors.As(err, &safetyErr) {
			return model.ChatOut{}, safetyErr
		}
		return model.ChatOut{}, err
	}
	return out, nil
}

type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) generateContent(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if c.apiKey == "" {
		return model.ChatOut{}, errors.New("google: API key is required")
	}

	sdkClient, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("google: create client: %w", err)
	}
	defer sdkClient.Close()

	genModel := sdkClient.GenerativeModel(c.modelName)
	if len(tools) > 0 {
		genModel.Tools = convertTools(tools)
	}

	resp, err := genModel.GenerateContent(ctx, convertMessages(messages)...)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("google: %w", err)
	}
	return convertResponse(resp), nil
}

func convertMessages(messages []model.Message) []genai.Part {
	var parts []genai.Part
	for _, msg := range messages {
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
	}
	return parts
}

func convertTools(tools []model.ToolSpec) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertSchema(t.Schema),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func convertSchema(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}
	result := &genai.Schema{Type: genai.TypeObject}
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		properties := make(map[string]*genai.Schema)
		for key, val := range props {
			propMap, ok := val.(map[string]interface{})
			if !ok {
				continue
			}
			prop := &genai.Schema{}
			if typeStr, ok := propMap["type"].(string); ok {
				prop.Type = convertType(typeStr)
			}
			if desc, ok := propMap["description"].(string); ok {
				prop.Description = desc
			}
			properties[key] = prop
		}
		result.Properties = properties
	}
	if required, ok := schema["required"].([]string); ok {
		result.Required = required
	}
	return result
}

func convertType(typeStr string) genai.Type {
	switch typeStr {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func convertResponse(resp *genai.GenerateContentResponse) model.ChatOut {
	var out model.ChatOut
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += string(p)
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{Name: p.Name, Input: p.Args})
		}
	}
	return out
}

// SafetyFilterError reports that Gemini's safety filter blocked the
// response, with the category that triggered the block.
type SafetyFilterError struct {
	Reason   string
	Category string
}

func (e *SafetyFilterError) Error() string {
	return "google: content blocked by safety filter: " + e.Category
}
