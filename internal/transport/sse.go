package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// frame is one server-sent event: its name and its data lines joined by "\n".
type frame struct {
	name string
	data string
}

// splitFrames cuts an event-stream body into frames. The body is already in
// memory, so a data line may be of any length. Comment lines and fields other
// than event and data are ignored; frames without data are dropped.
func splitFrames(body []byte) []frame {
	var (
		frames  []frame
		current frame
		data    []string
	)
	emit := func() {
		if len(data) > 0 {
			current.data = strings.Join(data, "\n")
			frames = append(frames, current)
		}
		current, data = frame{}, nil
	}

	for _, raw := range bytes.Split(body, []byte("\n")) {
		line := string(bytes.TrimSuffix(raw, []byte("\r")))
		switch {
		case line == "":
			emit()
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			current.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	emit()
	return frames
}

// selectEventPayload returns the last data payload carrying a response id,
// or the final payload if none does. Notification frames sent ahead of the
// response are skipped that way.
func selectEventPayload(body []byte) (json.RawMessage, error) {
	var last, lastWithID json.RawMessage

	for _, f := range splitFrames(body) {
		if f.data == "" {
			continue
		}
		if !json.Valid([]byte(f.data)) {
			return nil, fmt.Errorf("event %q carries invalid JSON", f.name)
		}
		payload := json.RawMessage(f.data)
		last = payload
		if carriesID(payload) {
			lastWithID = payload
		}
	}

	if lastWithID != nil {
		return lastWithID, nil
	}
	if last == nil {
		return nil, ErrNoPayload
	}
	return last, nil
}

func carriesID(payload json.RawMessage) bool {
	var envelope struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return false
	}
	return len(envelope.ID) > 0 && string(envelope.ID) != "null"
}
