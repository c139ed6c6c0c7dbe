package google

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitzgen/preduce/model"
)

type scriptedClient struct {
	out model.ChatOut
	err error
}

func (c *scriptedClient) generateContent(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	return c.out, c.err
}

func TestChatReturnsUnderlyingResponse(t *testing.T) {
	m := &ChatModel{client: &scriptedClient{out: model.ChatOut{Text: "hi"}}}
	out, err := m.Chat(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Text)
}

func TestChatSurfacesSafetyFilterErrorUnwrapped(t *testing.T) {
	safety := &SafetyFilterError{Reason: "blocked", Category: "HARM_CATEGORY_DANGEROUS"}
	m := &ChatModel{client: &scriptedClient{err: safety}}

	_, err := m.Chat(context.Background(), nil, nil)
	var got *SafetyFilterError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, "HARM_CATEGORY_DANGEROUS", got.Category)
}

func TestChatPropagatesOtherErrors(t *testing.T) {
	boom := errors.New("quota exceeded")
	m := &ChatModel{client: &scriptedClient{err: boom}}

	_, err := m.Chat(context.Background(), nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestChatReturnsContextErrorIfAlreadyDone(t *testing.T) {
	m := &ChatModel{client: &scriptedClient{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Chat(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertMessagesSkipsEmptyContent(t *testing.T) {
	parts := convertMessages([]model.Message{
		{Role: model.RoleUser, Content: "hello"},
		{Role: model.RoleAssistant, Content: ""},
	})
	require.Len(t, parts, 1)
	assert.Equal(t, genai.Text("hello"), parts[0])
}

func TestConvertTypeMapsKnownJSONSchemaTypes(t *testing.T) {
	assert.Equal(t, genai.TypeString, convertType("string"))
	assert.Equal(t, genai.TypeInteger, convertType("integer"))
	assert.Equal(t, genai.TypeBoolean, convertType("boolean"))
	assert.Equal(t, genai.TypeArray, convertType("array"))
	assert.Equal(t, genai.TypeUnspecified, convertType("nonsense"))
}

func TestConvertSchemaReturnsNilForNilSchema(t *testing.T) {
	assert.Nil(t, convertSchema(nil))
}

func TestConvertSchemaBuildsPropertiesAndRequired(t *testing.T) {
	schema := map[string]interface{}{
		"properties": map[string]interface{}{
			"path": map[string]interface{}{"type": "string", "description": "file to edit"},
		},
		"required": []string{"path"},
	}
	result := convertSchema(schema)
	require.NotNil(t, result)
	assert.Equal(t, genai.TypeObject, result.Type)
	require.Contains(t, result.Properties, "path")
	assert.Equal(t, genai.TypeString, result.Properties["path"].Type)
	assert.Equal(t, "file to edit", result.Properties["path"].Description)
	assert.Equal(t, []string{"path"}, result.Required)
}

func TestNewChatModelDefaultsModelName(t *testing.T) {
	m := NewChatModel("key", "")
	assert.Equal(t, "gemini-2.5-flash", m.modelName)

	m2 := NewChatModel("key", "gemini-2.5-pro")
	assert.Equal(t, "gemini-2.5-pro", m2.modelName)
}
