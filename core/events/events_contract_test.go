package events

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "session created", event: NewSessionCreated("sess"), expected: KindSessionCreated},
		{name: "session updated", event: NewSessionUpdated(), expected: KindSessionUpdated},
		{name: "user speech started", event: NewUserSpeechStarted("item"), expected: KindUserSpeechStarted},
		{name: "user speech stopped", event: NewUserSpeechStopped("item"), expected: KindUserSpeechStopped},
		{name: "user transcript final", event: NewUserTranscriptFinal("item", "hi"), expected: KindUserTranscriptFinal},
		{name: "assistant transcript delta", event: NewAssistantTranscriptDelta("resp", "he"), expected: KindAssistantTranscriptDelta},
		{name: "assistant audio delta", event: NewAssistantAudioDelta("resp", "AAA="), expected: KindAssistantAudioDelta},
		{name: "response done", event: NewResponseDone("resp", "completed"), expected: KindResponseDone},
		{name: "server error", event: NewServerError("invalid_request_error", "", "bad"), expected: KindServerError},
		{name: "session update", event: NewSessionUpdate(SessionParams{}), expected: KindSessionUpdate},
		{name: "audio append", event: NewAudioAppend("AAA="), expected: KindAudioAppend},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestDecodeRecognisedMessages(t *testing.T) {
	testCases := []struct {
		name  string
		raw   string
		check func(t *testing.T, event Event)
	}{
		{
			name: "session created",
			raw:  `{"type":"session.created","session":{"id":"sess_1"}}`,
			check: func(t *testing.T, event Event) {
				if e, ok := event.(SessionCreated); !ok || e.SessionID != "sess_1" {
					t.Fatalf("expected session created with id, got %#v", event)
				}
			},
		},
		{
			name: "transcript delta",
			raw:  `{"type":"response.audio_transcript.delta","response_id":"r1","delta":"Hel"}`,
			check: func(t *testing.T, event Event) {
				if e, ok := event.(AssistantTranscriptDelta); !ok || e.Delta != "Hel" || e.ResponseID != "r1" {
					t.Fatalf("expected transcript delta, got %#v", event)
				}
			},
		},
		{
			name: "audio delta",
			raw:  `{"type":"response.audio.delta","delta":"AQA="}`,
			check: func(t *testing.T, event Event) {
				if e, ok := event.(AssistantAudioDelta); !ok || e.Audio != "AQA=" {
					t.Fatalf("expected audio delta, got %#v", event)
				}
			},
		},
		{
			name: "speech started",
			raw:  `{"type":"input_audio_buffer.speech_started","item_id":"item_1"}`,
			check: func(t *testing.T, event Event) {
				if e, ok := event.(UserSpeechStarted); !ok || e.ItemID != "item_1" {
					t.Fatalf("expected speech started, got %#v", event)
				}
			},
		},
		{
			name: "transcription completed",
			raw:  `{"type":"conversation.item.input_audio_transcription.completed","item_id":"item_1","transcript":"hello"}`,
			check: func(t *testing.T, event Event) {
				if e, ok := event.(UserTranscriptFinal); !ok || e.Transcript != "hello" {
					t.Fatalf("expected final transcript, got %#v", event)
				}
			},
		},
		{
			name: "response done",
			raw:  `{"type":"response.done","response":{"id":"r1","status":"completed"}}`,
			check: func(t *testing.T, event Event) {
				if e, ok := event.(ResponseDone); !ok || e.ResponseID != "r1" || e.Status != "completed" {
					t.Fatalf("expected response done, got %#v", event)
				}
			},
		},
		{
			name: "server error",
			raw:  `{"type":"error","error":{"type":"invalid_request_error","code":"bad_voice","message":"voice not found"}}`,
			check: func(t *testing.T, event Event) {
				e, ok := event.(ServerError)
				if !ok || e.Message != "voice not found" {
					t.Fatalf("expected server error, got %#v", event)
				}
				if !strings.Contains(e.Error(), "bad_voice") {
					t.Fatalf("expected error text to carry the code, got %q", e.Error())
				}
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			event, err := Decode([]byte(testCase.raw))
			if err != nil {
				t.Fatalf("expected decode to succeed, got %v", err)
			}
			testCase.check(t, event)
		})
	}
}

func TestDecodeRejectsMalformedMessages(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"delta":"x"}`,
		`{"type":"response.audio.delta"}`,
		`{"type":"response.audio_transcript.delta"}`,
		`{"type":"conversation.item.input_audio_transcription.completed","item_id":"x"}`,
	} {
		if _, err := Decode([]byte(raw)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected %q to be malformed, got %v", raw, err)
		}
	}
}

func TestDecodeReportsUnknownKinds(t *testing.T) {
	event, err := Decode([]byte(`{"type":"rate_limits.updated"}`))
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
	if event == nil || event.Kind() != "rate_limits.updated" {
		t.Fatalf("expected unknown event to carry its kind, got %#v", event)
	}
}

func TestSessionUpdateWireShape(t *testing.T) {
	raw, err := json.Marshal(NewSessionUpdate(SessionParams{
		Instructions: "be brief",
		Temperature:  0.8,
		Voice:        "alloy",
	}))
	if err != nil {
		t.Fatalf("failed to marshal session update: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("failed to unmarshal session update: %v", err)
	}

	if decoded["type"] != "session.update" {
		t.Fatalf("expected session.update type, got %v", decoded["type"])
	}
	session := decoded["session"].(map[string]any)
	if session["turn_detection"].(map[string]any)["type"] != "server_vad" {
		t.Fatalf("expected server vad turn detection, got %v", session["turn_detection"])
	}
	if session["input_audio_transcription"].(map[string]any)["model"] != "whisper-1" {
		t.Fatalf("expected whisper transcription, got %v", session["input_audio_transcription"])
	}
	if session["temperature"] != 0.8 || session["voice"] != "alloy" || session["instructions"] != "be brief" {
		t.Fatalf("expected optional settings to be present, got %v", session)
	}
}

func TestSessionUpdateOmitsNonFiniteTemperature(t *testing.T) {
	for _, temperature := range []float64{math.NaN(), math.Inf(1)} {
		raw, err := json.Marshal(NewSessionUpdate(SessionParams{Temperature: temperature}))
		if err != nil {
			t.Fatalf("failed to marshal session update: %v", err)
		}
		if strings.Contains(string(raw), "temperature") {
			t.Fatalf("expected temperature to be omitted, got %s", raw)
		}
		if strings.Contains(string(raw), "voice") || strings.Contains(string(raw), "instructions") {
			t.Fatalf("expected empty optional fields to be omitted, got %s", raw)
		}
	}
}

func TestAudioAppendWireShape(t *testing.T) {
	raw, err := json.Marshal(NewAudioAppend("AQID"))
	if err != nil {
		t.Fatalf("failed to marshal audio append: %v", err)
	}
	if got, want := string(raw), `{"type":"input_audio_buffer.append","audio":"AQID"}`; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
