package realtime

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}
