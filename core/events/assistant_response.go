package events

const (
	// KindAssistantTranscriptDelta identifies streamed assistant transcript text.
	KindAssistantTranscriptDelta Kind = "response.audio_transcript.delta"
	// KindAssistantAudioDelta identifies streamed assistant audio.
	KindAssistantAudioDelta Kind = "response.audio.delta"
	// KindResponseDone identifies assistant response completion.
	KindResponseDone Kind = "response.done"
)

// AssistantTranscriptDelta carries a streamed piece of the assistant transcript.
type AssistantTranscriptDelta struct {
	Base
	ResponseID string
	Delta      string
}

func NewAssistantTranscriptDelta(responseID, delta string) AssistantTranscriptDelta {
	return AssistantTranscriptDelta{Base: NewBase(KindAssistantTranscriptDelta), ResponseID: responseID, Delta: delta}
}

// AssistantAudioDelta carries a streamed piece of assistant audio, base64
// encoded PCM16 as received.
type AssistantAudioDelta struct {
	Base
	ResponseID string
	Audio      string
}

func NewAssistantAudioDelta(responseID, audio string) AssistantAudioDelta {
	return AssistantAudioDelta{Base: NewBase(KindAssistantAudioDelta), ResponseID: responseID, Audio: audio}
}

// ResponseDone marks assistant response completion.
type ResponseDone struct {
	Base
	ResponseID string
	Status     string
}

func NewResponseDone(responseID, status string) ResponseDone {
	return ResponseDone{Base: NewBase(KindResponseDone), ResponseID: responseID, Status: status}
}
