package entities

// Phase is the lifecycle state of a call bridge.
type Phase int32

// Lifecycle phases, in the only order a bridge moves through them.
const (
	PhaseUninitialized Phase = iota
	PhaseInitialized
	PhaseConnected
	PhaseShuttingDown
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInitialized:
		return "initialized"
	case PhaseConnected:
		return "connected"
	case PhaseShuttingDown:
		return "shutting_down"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
