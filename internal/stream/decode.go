package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lzyats/im-antidelete/pkg/event"
)

var errEmptyPayload = errors.New("stream: empty payload")

// Decode parses one stream payload. Bridges publish either a full upsert
// batch ({"messages":[...]}) or a bare message ({"key":...,"message":...}).
func Decode(body []byte) (event.UpsertBatch, error) {
	if len(body) == 0 {
		return event.UpsertBatch{}, errEmptyPayload
	}
	var probe struct {
		event.UpsertBatch
		Key *event.MessageKey `json:"key"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return event.UpsertBatch{}, fmt.Errorf("stream: decode: %w", err)
	}
	if probe.Messages != nil || probe.Key == nil {
		return probe.UpsertBatch, nil
	}

	var m event.WebMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return event.UpsertBatch{}, fmt.Errorf("stream: decode message: %w", err)
	}
	return event.UpsertBatch{Messages: []event.WebMessage{m}}, nil
}
