package assembler

// Phase is the controller's position in the per-document state machine.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseRunning
	PhaseCheckpointing
	PhaseRollingBack
	PhaseComplete
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseRunning:
		return "running"
	case PhaseCheckpointing:
		return "checkpointing"
	case PhaseRollingBack:
		return "rolling_back"
	case PhaseComplete:
		return "complete"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}
