package dispatcher

import (
	"bytes"
	"encoding/json"
	"fmt"

	"pitstop/internal/types"
)

// Decode turns an inbound (eventType, payload) pair into one of the closed
// set of events. Unknown types decode to types.UnrecognizedEvent without
// looking at the payload. DayHasPassed carries no fields the worker reads,
// so its payload is ignored as well.
//
// Malformed JSON and missing required fields are returned as decode
// AppErrors.
func Decode(eventType string, payload []byte) (types.Event, error) {
	var ev types.Event
	switch types.MessageType(eventType) {
	case types.MessageCustomerRegistered:
		var e types.CustomerRegistered
		if err := unmarshalPayload(eventType, payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case types.MessageMaintenanceJobPlanned:
		var e types.MaintenanceJobPlanned
		if err := unmarshalPayload(eventType, payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case types.MessageMaintenanceJobFinished:
		var e types.MaintenanceJobFinished
		if err := unmarshalPayload(eventType, payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case types.MessageDayHasPassed:
		return types.DayHasPassed{}, nil
	default:
		return types.UnrecognizedEvent{Type: eventType}, nil
	}

	if err := types.ValidateEvent(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func unmarshalPayload(eventType string, payload []byte, v any) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return types.NewAppError(types.ErrCodeDecodeMalformedPayload,
			fmt.Sprintf("%s: empty payload", eventType), nil)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return types.NewAppError(types.ErrCodeDecodeMalformedPayload,
			fmt.Sprintf("%s: payload is not valid JSON for this event", eventType), err)
	}
	return nil
}
