package rangeengine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fitzgen/preduce/driver"
)

// Serve runs the reducer-script side of the IPC protocol (spec.md §6)
// for an Engine built from rule, reading one JSON request per line from
// r and writing one JSON response per line to w. It returns when a
// Shutdown request is handled, when r reaches end of input, or on the
// first protocol error.
func Serve(rule RangeRule, r io.Reader, w io.Writer) error {
	engine := New(rule)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	out := bufio.NewWriter(w)

	for scanner.Scan() {
		var req driver.Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			return fmt.Errorf("rangeengine: malformed request: %w", err)
		}

		resp, shutdown, err := dispatch(engine, req)
		if err != nil {
			return err
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("rangeengine: marshal response: %w", err)
		}
		if _, err := out.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("rangeengine: write response: %w", err)
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("rangeengine: flush response: %w", err)
		}
		if shutdown {
			return nil
		}
	}
	return scanner.Err()
}

func dispatch(engine *Engine, req driver.Request) (driver.Response, bool, error) {
	switch req.Tag {
	case driver.TagNew:
		state, err := engine.Seed(req.Seed)
		if err != nil {
			return driver.Response{}, false, err
		}
		raw, err := json.Marshal(state)
		return driver.Response{Tag: req.Tag, State: raw}, false, err

	case driver.TagReduce:
		state, err := decodeState(req.State)
		if err != nil {
			return driver.Response{}, false, err
		}
		reduced, err := engine.Reduce(req.Seed, req.Dest, state)
		return driver.Response{Tag: req.Tag, Reduced: reduced}, false, err

	case driver.TagNext:
		state, err := decodeState(req.State)
		if err != nil {
			return driver.Response{}, false, err
		}
		next, err := engine.Next(state)
		if err != nil {
			return driver.Response{}, false, err
		}
		return nextStateResponse(req.Tag, next)

	case driver.TagNextOnInteresting:
		state, err := decodeState(req.State)
		if err != nil {
			return driver.Response{}, false, err
		}
		info, err := os.Stat(req.NewSeed)
		if err != nil {
			return driver.Response{}, false, err
		}
		next, err := engine.NextOnInteresting(state, info.Size())
		if err != nil {
			return driver.Response{}, false, err
		}
		return nextStateResponse(req.Tag, next)

	case driver.TagFastForward:
		state, err := decodeState(req.State)
		if err != nil {
			return driver.Response{}, false, err
		}
		next, err := engine.FastForward(state, req.N)
		if err != nil {
			return driver.Response{}, false, err
		}
		return nextStateResponse(req.Tag, next)

	case driver.TagShutdown:
		return driver.Response{Tag: req.Tag}, true, nil

	default:
		return driver.Response{}, false, fmt.Errorf("rangeengine: unknown request tag %q", req.Tag)
	}
}

func decodeState(raw json.RawMessage) (*State, error) {
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("rangeengine: malformed state: %w", err)
	}
	return &s, nil
}

func nextStateResponse(tag driver.RequestTag, next *State) (driver.Response, bool, error) {
	if next == nil {
		return driver.Response{Tag: tag}, false, nil
	}
	raw, err := json.Marshal(next)
	return driver.Response{Tag: tag, NextState: raw}, false, err
}
