package session

// state is the session controller's position in the handshake, one entry
// per distinct wait-for-something step rather than a single "negotiating"
// state with an internal counter, since the two phases of the initial
// exchange genuinely wait on different things (sending our own config
// versus waiting for the peer's).
type state int

const (
	stateVersionExchange state = iota
	stateInitialExchange1
	stateInitialExchange2
	statePingMeasurement
	stateConfigNegotiation
	stateUiConfirmation
	stateReady
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateVersionExchange:
		return "versionExchange"
	case stateInitialExchange1:
		return "initialExchange1"
	case stateInitialExchange2:
		return "initialExchange2"
	case statePingMeasurement:
		return "pingMeasurement"
	case stateConfigNegotiation:
		return "configNegotiation"
	case stateUiConfirmation:
		return "uiConfirmation"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
