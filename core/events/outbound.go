package events

import "math"

const (
	// KindSessionUpdate identifies the session configuration handshake.
	KindSessionUpdate Kind = "session.update"
	// KindAudioAppend identifies one outbound audio frame.
	KindAudioAppend Kind = "input_audio_buffer.append"
)

const (
	TurnDetectionServerVAD = "server_vad"
	TranscriptionModel     = "whisper-1"
)

// SessionParams are the user-tunable parts of the session configuration.
type SessionParams struct {
	Instructions string
	// Temperature is omitted from the handshake when it is NaN or infinite.
	Temperature float64
	Voice       string
}

// SessionUpdate is the configuration handshake sent once per session.
type SessionUpdate struct {
	Base    `json:"-"`
	Type    Kind            `json:"type"`
	Session SessionSettings `json:"session"`
}

type SessionSettings struct {
	TurnDetection           TurnDetection           `json:"turn_detection"`
	InputAudioTranscription InputAudioTranscription `json:"input_audio_transcription"`
	Instructions            string                  `json:"instructions,omitempty"`
	Temperature             *float64                `json:"temperature,omitempty"`
	Voice                   string                  `json:"voice,omitempty"`
}

type TurnDetection struct {
	Type string `json:"type"`
}

type InputAudioTranscription struct {
	Model string `json:"model"`
}

func NewSessionUpdate(params SessionParams) SessionUpdate {
	settings := SessionSettings{
		TurnDetection:           TurnDetection{Type: TurnDetectionServerVAD},
		InputAudioTranscription: InputAudioTranscription{Model: TranscriptionModel},
		Instructions:            params.Instructions,
		Voice:                   params.Voice,
	}
	if t := params.Temperature; !math.IsNaN(t) && !math.IsInf(t, 0) {
		settings.Temperature = &t
	}

	return SessionUpdate{Base: NewBase(KindSessionUpdate), Type: KindSessionUpdate, Session: settings}
}

// AudioAppend carries one base64 encoded audio frame.
type AudioAppend struct {
	Base  `json:"-"`
	Type  Kind   `json:"type"`
	Audio string `json:"audio"`
}

func NewAudioAppend(encodedFrame string) AudioAppend {
	return AudioAppend{Base: NewBase(KindAudioAppend), Type: KindAudioAppend, Audio: encodedFrame}
}
