package relay

// State of an Engine. Exactly one session can be active per Engine.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateDisconnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDisconnecting:
		return "Disconnecting"
	case StateDisconnected:
		return "Disconnected"
	case StateFailed:
		return "Failed"
	}
	return "Unknown"
}

// 是否有一个会话正占用着 Engine; 此时 Connect 会被拒绝
func (s State) active() bool {
	switch s {
	case StateConnecting, StateConnected, StateDisconnecting:
		return true
	}
	return false
}
