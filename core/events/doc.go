// Package events defines the subset of the realtime conversation protocol the
// session controller speaks.
//
// Kinds are the wire "type" values. Inbound messages are decoded with
// [Decode]; outbound messages are built with [NewSessionUpdate] and
// [NewAudioAppend] and serialised as JSON.
//
// Semantics used across the package:
//
//   - Delta: append-only piece of a stream, applied in arrival order.
//   - Completed/Done: terminal marker for the current item or response.
//
// session events
//
//   - SessionCreated (session.created): the backend accepted the connection;
//     audio may flow from this point.
//   - SessionUpdated (session.updated): the backend applied a configuration.
//
// user_input events
//
//   - UserSpeechStarted (input_audio_buffer.speech_started): server-side voice
//     activity detection heard the user begin speaking.
//   - UserSpeechStopped (input_audio_buffer.speech_stopped): the user stopped
//     speaking.
//   - UserTranscriptFinal (conversation.item.input_audio_transcription.completed):
//     terminal transcript of the user's utterance.
//
// assistant_response events
//
//   - AssistantTranscriptDelta (response.audio_transcript.delta): streamed text
//     of what the assistant is saying.
//   - AssistantAudioDelta (response.audio.delta): streamed base64 PCM16 audio.
//   - ResponseDone (response.done): the assistant finished the response.
//
// error events
//
//   - ServerError (error): the backend reported a problem.
//
// outbound messages
//
//   - SessionUpdate (session.update): session configuration handshake.
//   - AudioAppend (input_audio_buffer.append): one base64 audio frame.
package events
