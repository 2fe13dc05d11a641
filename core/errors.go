package realtime

import "errors"

var (
	// ErrConfiguration means required session settings are missing or
	// invalid. No session is created.
	ErrConfiguration = errors.New("configuration error")
	// ErrConnection means the transport could not be opened or the backend
	// did not accept the session.
	ErrConnection = errors.New("connection error")
	// ErrDevice means an audio device could not be started.
	ErrDevice = errors.New("device error")
	// ErrProtocol marks an inbound message that could not be interpreted. It
	// is reported but never ends a session.
	ErrProtocol = errors.New("protocol error")
	// ErrTransportClosed means the backend connection ended while the session
	// was active.
	ErrTransportClosed = errors.New("transport closed unexpectedly")

	// ErrSessionRunning is returned by Start when a session is already in
	// progress.
	ErrSessionRunning = errors.New("session already running")
)

// errorCategory names the failure category of err for logs and metrics.
func errorCategory(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrConnection):
		return "connection"
	case errors.Is(err, ErrDevice):
		return "device"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.Is(err, ErrTransportClosed):
		return "transport_closed"
	}
	return "unknown"
}
