package events

const (
	// KindSessionCreated identifies the backend accepting a session.
	KindSessionCreated Kind = "session.created"
	// KindSessionUpdated identifies the backend applying a configuration.
	KindSessionUpdated Kind = "session.updated"
	// KindServerError identifies an error reported by the backend.
	KindServerError Kind = "error"
)

// SessionCreated marks that the backend accepted the session.
type SessionCreated struct {
	Base
	SessionID string
}

func NewSessionCreated(sessionID string) SessionCreated {
	return SessionCreated{Base: NewBase(KindSessionCreated), SessionID: sessionID}
}

// SessionUpdated marks that the backend applied a session configuration.
type SessionUpdated struct{ Base }

func NewSessionUpdated() SessionUpdated {
	return SessionUpdated{Base: NewBase(KindSessionUpdated)}
}

// ServerError carries an error reported by the backend.
type ServerError struct {
	Base
	Type    string
	Code    string
	Message string
}

func NewServerError(errType, code, message string) ServerError {
	return ServerError{Base: NewBase(KindServerError), Type: errType, Code: code, Message: message}
}

func (e ServerError) Error() string {
	if e.Code != "" {
		return e.Type + " (" + e.Code + "): " + e.Message
	}
	if e.Type != "" {
		return e.Type + ": " + e.Message
	}
	return e.Message
}

// Unknown is any message whose kind this package does not interpret.
type Unknown struct {
	Base
	Raw []byte
}

func NewUnknown(kind Kind, raw []byte) Unknown {
	return Unknown{Base: NewBase(kind), Raw: raw}
}
