package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LogEmitter writes one structured line per event to a writer.
//
// Text mode produces `[msg] actor=worker id=worker-0 fields={"size":42}`; JSON mode
// writes one JSON object per line, suitable for piping into jq or a log
// aggregator.
type LogEmitter struct {
	w    io.Writer
	json bool
}

// NewLogEmitter returns a LogEmitter writing to w (os.Stderr if nil).
func NewLogEmitter(w io.Writer, jsonMode bool) *LogEmitter {
	if w == nil {
		w = os.Stderr
	}
	return &LogEmitter{w: w, json: jsonMode}
}

func (l *LogEmitter) Emit(event Event) {
	if l.json {
		l.emitJSON(event)
		return
	}
	l.emitText(event)
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		Actor   Actor                  `json:"actor"`
		ActorID string                 `json:"actor_id"`
		Msg     string                 `json:"msg"`
		Fields  map[string]interface{} `json:"fields,omitempty"`
	}{event.Actor, event.ActorID, event.Msg, event.Fields})
	if err != nil {
		fmt.Fprintf(l.w, "{\"error\":\"emit: marshal failed: %v\"}\n", err)
		return
	}
	fmt.Fprintf(l.w, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.w, "[%s] actor=%s id=%s", event.Msg, event.Actor, event.ActorID)
	if len(event.Fields) > 0 {
		if data, err := json.Marshal(event.Fields); err == nil {
			fmt.Fprintf(l.w, " fields=%s", data)
		}
	}
	fmt.Fprintln(l.w)
}

// Flush is a no-op: LogEmitter writes synchronously with no buffering.
func (l *LogEmitter) Flush(context.Context) error { return nil }
