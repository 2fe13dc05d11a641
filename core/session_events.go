package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/events"
	"github.com/koscakluka/ema-realtime/core/transcript"
)

const userTranscriptPrefix = "User: "

// handleMessage applies one inbound message. Only failures that end the
// session are returned; undecodable messages are reported and skipped.
func (c *Controller) handleMessage(ctx context.Context, s *session, raw []byte) error {
	event, err := events.Decode(raw)
	if err != nil {
		if errors.Is(err, events.ErrUnknownKind) {
			// Backends add event kinds over time; these are expected.
			logger.Debug("ignoring realtime event", "session_id", s.id, "error", err)
			if event != nil {
				c.metrics.EventReceived(string(event.Kind()))
				c.emit(event)
			}
			return nil
		}

		c.metrics.ProtocolError()
		err = fmt.Errorf("%w: %w", ErrProtocol, err)
		logger.Warn("skipping inbound message", "session_id", s.id, "error", err)
		c.callbacks.error(err)
		return nil
	}

	c.metrics.EventReceived(string(event.Kind()))
	c.emit(event)

	state := c.State()
	switch e := event.(type) {
	case events.SessionCreated:
		if state != StateConnecting {
			return nil
		}
		logger.Debug("session established", "session_id", s.id, "remote_session_id", e.SessionID)
		return c.activate(ctx, s)

	case events.ServerError:
		if state == StateConnecting {
			return fmt.Errorf("%w: backend rejected the session: %w", ErrConnection, e)
		}
		logger.Warn("backend reported an error", "session_id", s.id, "type", e.Type, "code", e.Code, "message", e.Message)
		return nil
	}

	if state != StateActive {
		logger.Debug("ignoring event before session is active", "session_id", s.id, "kind", event.Kind())
		return nil
	}

	switch e := event.(type) {
	case events.UserSpeechStarted:
		c.onUserSpeechStarted(s)
	case events.UserTranscriptFinal:
		c.onUserTranscriptFinal(s, e.Transcript)
	case events.AssistantTranscriptDelta:
		c.onAssistantTranscriptDelta(s, e.Delta)
	case events.AssistantAudioDelta:
		c.onAssistantAudioDelta(s, e.Audio)
	case events.ResponseDone:
		s.assistantEntry = c.transcript.AppendNewEntry(transcript.RoleAssistant, "")
		c.publishTranscript()
	}
	return nil
}

// onUserSpeechStarted reserves the user's entry at the current end of the
// transcript and interrupts assistant playback.
func (c *Controller) onUserSpeechStarted(s *session) {
	s.userEntry = c.transcript.AppendNewEntry(transcript.RoleUser, "")
	s.assistantEntry = -1

	c.audioOutput.Clear()
	c.metrics.BargeIn()
	c.publishTranscript()
}

func (c *Controller) onUserTranscriptFinal(s *session, text string) {
	line := userTranscriptPrefix + text
	if s.userEntry < 0 || c.transcript.AppendToEntry(s.userEntry, line) != nil {
		s.userEntry = c.transcript.AppendNewEntry(transcript.RoleUser, line)
	}
	s.userEntry = -1

	if s.assistantEntry < 0 {
		s.assistantEntry = c.transcript.AppendNewEntry(transcript.RoleAssistant, "")
	}
	c.publishTranscript()
}

func (c *Controller) onAssistantTranscriptDelta(s *session, delta string) {
	if s.assistantEntry < 0 || c.transcript.AppendToEntry(s.assistantEntry, delta) != nil {
		s.assistantEntry = c.transcript.AppendNewEntry(transcript.RoleAssistant, delta)
	}
	c.publishTranscript()
}

func (c *Controller) onAssistantAudioDelta(s *session, payload string) {
	samples, err := audio.DecodeBase64PCM16(payload)
	if err != nil {
		c.metrics.ProtocolError()
		logger.Warn("skipping undecodable assistant audio", "session_id", s.id, "error", err)
		return
	}

	if err := c.audioOutput.Play(samples); err != nil {
		logger.Warn("failed to play assistant audio", "session_id", s.id, "error", err)
		return
	}
	c.metrics.SamplesPlayed(len(samples))
}

func (c *Controller) emit(event events.Event) {
	if c.callbacks.onEvent != nil {
		c.callbacks.onEvent(event)
	}
}
