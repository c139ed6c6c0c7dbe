package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitzgen/preduce/model"
)

type scriptedClient struct {
	errs  []error
	calls int
	out   model.ChatOut
}

func (c *scriptedClient) createChatCompletion(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	idx := c.calls
	c.calls++
	if idx < len(c.errs) && c.errs[idx] != nil {
		return model.ChatOut{}, c.errs[idx]
	}
	return c.out, nil
}

func newTestModel(c client) *ChatModel {
	return &ChatModel{
		client:     c,
		maxRetries: 3,
		retryDelay: time.Millisecond,
	}
}

func TestChatSucceedsOnFirstTry(t *testing.T) {
	c := &scriptedClient{out: model.ChatOut{Text: "hi"}}
	m := newTestModel(c)

	out, err := m.Chat(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Text)
	assert.Equal(t, 1, c.calls)
}

func TestChatRetriesTransientErrorsThenSucceeds(t *testing.T) {
	c := &scriptedClient{
		errs: []error{errors.New("connection reset"), errors.New("503 Service Unavailable")},
		out:  model.ChatOut{Text: "recovered"},
	}
	m := newTestModel(c)

	out, err := m.Chat(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", out.Text)
	assert.Equal(t, 3, c.calls)
}

func TestChatReturnsImmediatelyOnNonTransientError(t *testing.T) {
	boom := errors.New("invalid api key")
	c := &scriptedClient{errs: []error{boom}}
	m := newTestModel(c)

	_, err := m.Chat(context.Background(), nil, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, c.calls, "a non-transient error must not be retried")
}

func TestChatGivesUpAfterMaxRetries(t *testing.T) {
	c := &scriptedClient{errs: []error{
		errors.New("timeout"), errors.New("timeout"), errors.New("timeout"), errors.New("timeout"),
	}}
	m := newTestModel(c)

	_, err := m.Chat(context.Background(), nil, nil)
	assert.Error(t, err)
	assert.Equal(t, 4, c.calls, "initial attempt plus 3 retries")
}

func TestChatReturnsContextErrorIfAlreadyDone(t *testing.T) {
	c := &scriptedClient{}
	m := newTestModel(c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Chat(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.calls)
}

func TestChatAbandonsRetryBackoffOnContextCancellation(t *testing.T) {
	c := &scriptedClient{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	m := newTestModel(c)
	m.retryDelay = time.Hour // long enough that cancellation must win the race

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := m.Chat(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransientErrorMatchesKnownPatterns(t *testing.T) {
	assert.True(t, isTransientError(errors.New("read: connection reset by peer")))
	assert.True(t, isTransientError(errors.New("request timeout")))
	assert.True(t, isTransientError(errors.New("502 Bad Gateway")))
	assert.False(t, isTransientError(errors.New("invalid request: missing model")))
}

func TestIsTransientErrorTreatsRateLimitAsTransient(t *testing.T) {
	assert.True(t, isTransientError(&rateLimitError{message: "rate limited"}))
}

func TestIsRateLimitErrorOnlyMatchesRateLimitType(t *testing.T) {
	assert.True(t, isRateLimitError(&rateLimitError{message: "slow down"}))
	assert.False(t, isRateLimitError(errors.New("timeout")))
}

func TestParseToolInputReturnsNilForEmptyString(t *testing.T) {
	assert.Nil(t, parseToolInput(""))
}

func TestParseToolInputWrapsRawJSON(t *testing.T) {
	out := parseToolInput(`{"path":"a.c"}`)
	assert.Equal(t, `{"path":"a.c"}`, out["_raw"])
}

func TestNewChatModelDefaultsModelName(t *testing.T) {
	m := NewChatModel("key", "")
	assert.Equal(t, "gpt-4o", m.modelName)

	m2 := NewChatModel("key", "gpt-4o-mini")
	assert.Equal(t, "gpt-4o-mini", m2.modelName)
}
