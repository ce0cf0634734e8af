package session

import "fmt"

type State uint32

const (
	StateInvalid State = iota

	StateIdle          // t=Connect ->Connecting
	StateConnecting    // t=transport open ->Connected
	StateConnected     // transport open, not authenticated; watchdog sends login
	StateAuthenticated // t=settle delay ->Dumping
	StateDumping       // outbound gate held +lastConfig=Ready
	StateReady         // periodic polls running
	StateDisconnected  // peer said it is gone, transport may stay open
)

var stateNames = [...]string{
	StateInvalid:       "Invalid",
	StateIdle:          "Idle",
	StateConnecting:    "Connecting",
	StateConnected:     "Connected",
	StateAuthenticated: "Authenticated",
	StateDumping:       "Dumping",
	StateReady:         "Ready",
	StateDisconnected:  "Disconnected",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// Online reports transport is open.
func (s State) Online() bool {
	switch s {
	case StateConnected, StateAuthenticated, StateDumping, StateReady, StateDisconnected:
		return true
	}
	return false
}

// Authenticated reports device accepted login in this session.
func (s State) Authenticated() bool {
	return s == StateAuthenticated || s == StateDumping || s == StateReady
}
