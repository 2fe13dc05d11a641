package events

const (
	// KindUserSpeechStarted identifies start of user speech activity.
	KindUserSpeechStarted Kind = "input_audio_buffer.speech_started"
	// KindUserSpeechStopped identifies end of user speech activity.
	KindUserSpeechStopped Kind = "input_audio_buffer.speech_stopped"
	// KindUserTranscriptFinal identifies the final transcript for the utterance.
	KindUserTranscriptFinal Kind = "conversation.item.input_audio_transcription.completed"
)

// UserSpeechStarted marks when user speech activity starts.
type UserSpeechStarted struct {
	Base
	ItemID string
}

// NewUserSpeechStarted creates a user speech started event.
func NewUserSpeechStarted(itemID string) UserSpeechStarted {
	return UserSpeechStarted{Base: NewBase(KindUserSpeechStarted), ItemID: itemID}
}

// UserSpeechStopped marks when user speech activity ends.
type UserSpeechStopped struct {
	Base
	ItemID string
}

func NewUserSpeechStopped(itemID string) UserSpeechStopped {
	return UserSpeechStopped{Base: NewBase(KindUserSpeechStopped), ItemID: itemID}
}

// UserTranscriptFinal carries the final transcript of a user utterance.
type UserTranscriptFinal struct {
	Base
	ItemID     string
	Transcript string
}

// NewUserTranscriptFinal creates a user transcript final event.
func NewUserTranscriptFinal(itemID, transcript string) UserTranscriptFinal {
	return UserTranscriptFinal{Base: NewBase(KindUserTranscriptFinal), ItemID: itemID, Transcript: transcript}
}
