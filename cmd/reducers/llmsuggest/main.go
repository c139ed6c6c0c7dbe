// Command llmsuggest is an out-of-process reducer script speaking the
// IPC protocol of spec.md §6. Rather than applying a structural rule,
// it asks a chat model to propose a smaller rewrite of the seed test
// case, per spec.md's "external collaborator" reducer.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/fitzgen/preduce/driver"
	"github.com/fitzgen/preduce/model"
	"github.com/fitzgen/preduce/model/anthropic"
	"github.com/fitzgen/preduce/model/google"
	"github.com/fitzgen/preduce/model/openai"
	"github.com/fitzgen/preduce/store"
)

// State tracks how many suggestions have been requested for the
// current seed. Each NextOnInteresting restarts the count against the
// new, smaller seed.
type State struct {
	Attempt     int `json:"attempt"`
	MaxAttempts int `json:"max_attempts"`
}

func main() {
	provider := flag.String("provider", "anthropic", "chat provider: openai, anthropic, or google")
	modelName := flag.String("model", "", "model name (default depends on provider)")
	apiKey := flag.String("api-key", "", "provider API key (default: read from the provider's *_API_KEY env var)")
	maxAttempts := flag.Int("max-attempts", 3, "suggestions to request per seed before giving up")
	flag.Parse()

	chat, err := chatModelFor(*provider, *modelName, *apiKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "llmsuggest: %v\n", err)
		os.Exit(1)
	}

	r := &runner{chat: chat, maxAttempts: *maxAttempts}
	if err := r.serve(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "llmsuggest: %v\n", err)
		os.Exit(1)
	}
}

func chatModelFor(provider, modelName, apiKey string) (model.ChatModel, error) {
	switch provider {
	case "openai":
		return openai.NewChatModel(apiKeyOrEnv(apiKey, "OPENAI_API_KEY"), modelName), nil
	case "anthropic":
		return anthropic.NewChatModel(apiKeyOrEnv(apiKey, "ANTHROPIC_API_KEY"), modelName), nil
	case "google":
		return google.NewChatModel(apiKeyOrEnv(apiKey, "GOOGLE_API_KEY"), modelName), nil
	default:
		return nil, fmt.Errorf("unknown -provider %q (want openai, anthropic, or google)", provider)
	}
}

func apiKeyOrEnv(apiKey, envVar string) string {
	if apiKey != "" {
		return apiKey
	}
	return os.Getenv(envVar)
}

const systemPrompt = `You reduce failing test cases to their smallest form while
preserving the property that makes them interesting. Given a test case,
respond with only the rewritten test case: no commentary, no markdown
fences. Make it strictly smaller than the input.`

type runner struct {
	chat        model.ChatModel
	maxAttempts int
}

func (r *runner) serve(in *os.File, out *os.File) error {
	dec := json.NewDecoder(in)
	enc := json.NewEncoder(out)

	for {
		var req driver.Request
		if err := dec.Decode(&req); err != nil {
			return nil
		}

		resp, shutdown, err := r.handle(req)
		if err != nil {
			return err
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		if shutdown {
			return nil
		}
	}
}

func (r *runner) handle(req driver.Request) (driver.Response, bool, error) {
	switch req.Tag {
	case driver.TagNew:
		state := State{MaxAttempts: r.maxAttempts}
		raw, err := json.Marshal(state)
		return driver.Response{Tag: req.Tag, State: raw}, false, err

	case driver.TagReduce:
		var state State
		if err := json.Unmarshal(req.State, &state); err != nil {
			return driver.Response{}, false, err
		}
		reduced, err := r.suggest(req.Seed, req.Dest)
		return driver.Response{Tag: req.Tag, Reduced: reduced}, false, err

	case driver.TagNext:
		var state State
		if err := json.Unmarshal(req.State, &state); err != nil {
			return driver.Response{}, false, err
		}
		state.Attempt++
		if state.Attempt >= state.MaxAttempts {
			return driver.Response{Tag: req.Tag}, false, nil
		}
		raw, err := json.Marshal(state)
		return driver.Response{Tag: req.Tag, NextState: raw}, false, err

	case driver.TagNextOnInteresting:
		var state State
		if err := json.Unmarshal(req.State, &state); err != nil {
			return driver.Response{}, false, err
		}
		state.Attempt = 0
		raw, err := json.Marshal(state)
		return driver.Response{Tag: req.Tag, NextState: raw}, false, err

	case driver.TagFastForward:
		var state State
		if err := json.Unmarshal(req.State, &state); err != nil {
			return driver.Response{}, false, err
		}
		state.Attempt += req.N
		if state.Attempt >= state.MaxAttempts {
			return driver.Response{Tag: req.Tag}, false, nil
		}
		raw, err := json.Marshal(state)
		return driver.Response{Tag: req.Tag, NextState: raw}, false, err

	case driver.TagShutdown:
		return driver.Response{Tag: req.Tag}, true, nil

	default:
		return driver.Response{}, false, fmt.Errorf("unknown request tag %q", req.Tag)
	}
}

// suggest asks the chat model for a smaller rewrite of seed and writes
// it to dest, reporting whether the model produced a strictly smaller
// result.
func (r *runner) suggest(seed, dest string) (bool, error) {
	input, err := os.ReadFile(seed)
	if err != nil {
		return false, fmt.Errorf("read seed: %w", err)
	}

	out, err := r.chat.Chat(context.Background(), []model.Message{
		{Role: model.RoleSystem, Content: systemPrompt},
		{Role: model.RoleUser, Content: string(input)},
	}, nil)
	if err != nil {
		return false, fmt.Errorf("chat: %w", err)
	}

	suggestion := []byte(out.Text)
	if len(suggestion) == 0 || len(suggestion) >= len(input) {
		return false, nil
	}

	if err := store.WriteFileAtomic(dest, suggestion, 0o644); err != nil {
		return false, fmt.Errorf("write suggestion: %w", err)
	}
	return true, nil
}
