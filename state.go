package romflash

// State is the connection lifecycle of a Session.
type State int

const (
	StateIdle State = iota
	StateOpening
	StateConfirmingLink
	StateHandshaking
	StateRebinding
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateConfirmingLink:
		return "confirming-link"
	case StateHandshaking:
		return "handshaking"
	case StateRebinding:
		return "rebinding"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
