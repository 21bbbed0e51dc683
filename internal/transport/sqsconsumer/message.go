// Package sqsconsumer feeds PitStop events from the notification queue into
// the dispatcher, either as a Lambda SQS handler or as a long-polling loop.
// Neither path ever asks SQS to redeliver: every message is acknowledged
// once the dispatcher returns.
package sqsconsumer

import (
	"context"
	"encoding/json"
	"strings"
)

// EventHandler is satisfied by *dispatcher.EventDispatcher.
type EventHandler interface {
	HandleEvent(ctx context.Context, eventType string, payload []byte) bool
}

// envelope is the fallback shape for producers that cannot set message
// attributes: {"messageType": "...", "payload": {...}}.
type envelope struct {
	MessageType string          `json:"messageType"`
	Payload     json.RawMessage `json:"payload"`
}

// resolve returns the event type and payload for a queue message. The
// MessageType attribute wins; otherwise the body is read as an envelope. A
// body that is neither yields an empty type, which the dispatcher ignores.
func resolve(attrType, body string) (string, []byte) {
	if t := strings.TrimSpace(attrType); t != "" {
		return t, []byte(body)
	}

	var env envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil || env.MessageType == "" {
		return "", []byte(body)
	}
	return env.MessageType, env.Payload
}
