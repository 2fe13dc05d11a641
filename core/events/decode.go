package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned for messages that are not valid JSON, carry no
	// type, or lack a field their type requires.
	ErrMalformed = errors.New("malformed realtime message")
	// ErrUnknownKind is returned together with an [Unknown] event for
	// well-formed messages of a type this package does not interpret.
	ErrUnknownKind = errors.New("unknown realtime message kind")
)

type inboundMessage struct {
	Type       Kind    `json:"type"`
	ItemID     string  `json:"item_id"`
	ResponseID string  `json:"response_id"`
	Delta      *string `json:"delta"`
	Transcript *string `json:"transcript"`

	Session *struct {
		ID string `json:"id"`
	} `json:"session"`
	Response *struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"response"`
	Error *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Decode parses one inbound protocol message.
func Decode(raw []byte) (Event, error) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	switch msg.Type {
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)

	case KindSessionCreated:
		id := ""
		if msg.Session != nil {
			id = msg.Session.ID
		}
		return NewSessionCreated(id), nil

	case KindSessionUpdated:
		return NewSessionUpdated(), nil

	case KindAssistantTranscriptDelta:
		if msg.Delta == nil {
			return nil, missingField(msg.Type, "delta")
		}
		return NewAssistantTranscriptDelta(msg.ResponseID, *msg.Delta), nil

	case KindAssistantAudioDelta:
		if msg.Delta == nil {
			return nil, missingField(msg.Type, "delta")
		}
		return NewAssistantAudioDelta(msg.ResponseID, *msg.Delta), nil

	case KindUserSpeechStarted:
		return NewUserSpeechStarted(msg.ItemID), nil

	case KindUserSpeechStopped:
		return NewUserSpeechStopped(msg.ItemID), nil

	case KindUserTranscriptFinal:
		if msg.Transcript == nil {
			return nil, missingField(msg.Type, "transcript")
		}
		return NewUserTranscriptFinal(msg.ItemID, *msg.Transcript), nil

	case KindResponseDone:
		id, status := msg.ResponseID, ""
		if msg.Response != nil {
			id, status = msg.Response.ID, msg.Response.Status
		}
		return NewResponseDone(id, status), nil

	case KindServerError:
		if msg.Error == nil {
			return NewServerError("", "", "unspecified server error"), nil
		}
		return NewServerError(msg.Error.Type, msg.Error.Code, msg.Error.Message), nil
	}

	return NewUnknown(msg.Type, raw), fmt.Errorf("%w: %q", ErrUnknownKind, msg.Type)
}

func missingField(kind Kind, field string) error {
	return fmt.Errorf("%w: %s without %s", ErrMalformed, kind, field)
}
