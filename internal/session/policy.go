package session

import (
	"fmt"
	"time"
)

// Event is a cause of session state change.
type Event uint8

const (
	EventConnect Event = iota
	EventOpen
	EventLogin
	EventLoginError
	EventProtocolError
	EventDumpBegin
	EventDumpComplete
	EventPeerDisconnect
	EventTransportError
	EventDisconnect
	eventCount
)

var eventNames = [...]string{
	EventConnect:        "Connect",
	EventOpen:           "Open",
	EventLogin:          "Login",
	EventLoginError:     "LoginError",
	EventProtocolError:  "ProtocolError",
	EventDumpBegin:      "DumpBegin",
	EventDumpComplete:   "DumpComplete",
	EventPeerDisconnect: "PeerDisconnect",
	EventTransportError: "TransportError",
	EventDisconnect:     "Disconnect",
}

func (e Event) String() string {
	if e < eventCount {
		return eventNames[e]
	}
	return fmt.Sprintf("Event(%d)", e)
}

// Delays are the mutable timing knobs driven by Policy.
type Delays struct {
	Reconnect time.Duration // before next dial after transport loss
	DumpBegin time.Duration // settle delay after login
	DumpStep  time.Duration // between dump batches
}

type PolicyConfig struct {
	ReconnectBase  time.Duration
	ReconnectSlow  time.Duration
	SettleAfterOK  time.Duration
	StepAfterOK    time.Duration
	SettleAfterErr time.Duration
	StepAfterErr   time.Duration
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		ReconnectBase:  200 * time.Millisecond,
		ReconnectSlow:  5000 * time.Millisecond,
		SettleAfterOK:  0,
		StepAfterOK:    2 * time.Millisecond,
		SettleAfterErr: 1000 * time.Millisecond,
		StepAfterErr:   50 * time.Millisecond,
	}
}

type delayOp uint8

const (
	keep delayOp = iota
	base
	slow
	afterOK
	afterErr
)

type rule struct {
	from      []State
	next      State
	reconnect delayOp
	dumpBegin delayOp
	dumpStep  delayOp
}

var online = []State{StateConnected, StateAuthenticated, StateDumping, StateReady, StateDisconnected}

// Table of allowed transitions and their effect on delays.
var rules = [eventCount]rule{
	EventConnect:        {from: []State{StateIdle}, next: StateConnecting},
	EventOpen:           {from: []State{StateConnecting}, next: StateConnected},
	EventLogin:          {from: online, next: StateAuthenticated, reconnect: base},
	EventLoginError:     {from: online, next: StateConnected, dumpBegin: afterErr, dumpStep: afterErr},
	EventProtocolError:  {from: online, next: StateConnected, dumpBegin: afterErr, dumpStep: afterErr},
	EventDumpBegin:      {from: []State{StateAuthenticated, StateReady}, next: StateDumping},
	EventDumpComplete:   {from: []State{StateDumping}, next: StateReady, dumpBegin: afterOK, dumpStep: afterOK},
	EventPeerDisconnect: {from: online, next: StateDisconnected, reconnect: slow, dumpBegin: afterErr, dumpStep: afterErr},
	EventTransportError: {from: append([]State{StateConnecting}, online...), next: StateConnecting},
	EventDisconnect: {
		from: append([]State{StateConnecting}, online...),
		next: StateIdle, reconnect: base,
	},
}

// Policy is the reconnection and settle timing state table.
// Pure: no timers, no transport.
type Policy struct {
	c PolicyConfig
}

func NewPolicy(c PolicyConfig) *Policy { return &Policy{c: c} }

// Initial delays of a fresh session.
func (p *Policy) Initial() Delays {
	return Delays{Reconnect: p.c.ReconnectBase, DumpBegin: p.c.SettleAfterOK, DumpStep: p.c.StepAfterOK}
}

// Next returns state and delays after event. ok=false means the event
// is not valid in current state, then inputs are returned unchanged.
func (p *Policy) Next(cur State, ev Event, d Delays) (State, Delays, bool) {
	if ev >= eventCount {
		return cur, d, false
	}
	r := rules[ev]
	if !stateIn(cur, r.from) {
		return cur, d, false
	}
	d.Reconnect = p.apply(r.reconnect, d.Reconnect, p.c.ReconnectBase, p.c.ReconnectSlow)
	d.DumpBegin = p.apply(r.dumpBegin, d.DumpBegin, p.c.SettleAfterOK, p.c.SettleAfterErr)
	d.DumpStep = p.apply(r.dumpStep, d.DumpStep, p.c.StepAfterOK, p.c.StepAfterErr)
	return r.next, d, true
}

func (p *Policy) apply(op delayOp, cur, ok, bad time.Duration) time.Duration {
	switch op {
	case base, afterOK:
		return ok
	case slow, afterErr:
		return bad
	}
	return cur
}

func stateIn(s State, ss []State) bool {
	for _, x := range ss {
		if s == x {
			return true
		}
	}
	return false
}
