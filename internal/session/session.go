// Package session is the device session protocol client:
// authentication, bulk configuration sync, status polling, remote screen
// and command channel over one gateway connection.
//
// Session methods must be called from one goroutine, see Client.
package session

import (
	"time"

	"github.com/bobbycar-graz/bobbyremote/display"
	"github.com/bobbycar-graz/bobbyremote/internal/livedata"
	"github.com/bobbycar-graz/bobbyremote/internal/nvs"
	"github.com/bobbycar-graz/bobbyremote/internal/protocol"
	"github.com/bobbycar-graz/bobbyremote/log2"
	"github.com/juju/errors"
)

// Conn is one open transport to the gateway.
type Conn interface {
	Send(b []byte) error
	Close() error
}

// Link starts and stops the background dial loop which feeds
// OnOpen, OnMessage and OnTransportError.
type Link interface {
	Start()
	Stop()
}

// Credentials supplies the shared secret of a device.
type Credentials interface {
	Secret(deviceID string) (string, bool)
}

type Intervals struct {
	Reauth         time.Duration
	Refresh        time.Duration
	RefreshStagger time.Duration
	Info           time.Duration
	Ota            time.Duration
	// extra delay of dump start after info request
	DumpLag time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{
		Reauth:         3 * time.Second,
		Refresh:        1250 * time.Millisecond,
		RefreshStagger: 20 * time.Millisecond,
		Info:           2 * time.Second,
		Ota:            5 * time.Second,
		DumpLag:        100 * time.Millisecond,
	}
}

// Hooks are called on the dispatcher goroutine and must not block.
// Pointer arguments are valid only during the call.
type Hooks struct {
	State    func(State)
	Alert    func(title, message string)
	Snapshot func(Snapshot)
	Progress func(nvs.Progress)
	Ready    func(entries []nvs.Entry)
	Entry    func(nvs.Entry)
	Livedata func(rows []livedata.Row, created []string)
	Screen   func(*display.Display)
}

type Options struct {
	DeviceID    string
	Credentials Credentials
	Scheduler   Scheduler
	Link        Link
	Policy      PolicyConfig
	Intervals   Intervals
	Hooks       Hooks
	ScreenSink  display.Sink
	VisibleKeys []string
}

type Session struct { //nolint:maligned
	log    *log2.Log
	opt    Options
	policy *Policy
	iv     Intervals

	state     State
	delays    Delays
	conn      Conn
	blockSend bool
	lastRx    time.Time

	snap     *Snapshot
	dump     *nvs.Dump
	store    *nvs.Store
	keyCount int
	mirror   *livedata.Mirror
	screen   *display.Display
	visible  []string

	timers   timerGroup
	watchdog timerGroup
}

var _ protocol.Handler = (*Session)(nil)

func New(log *log2.Log, opt Options) *Session {
	if opt.Scheduler == nil {
		panic("code error session.Options.Scheduler=nil")
	}
	if opt.Policy == (PolicyConfig{}) {
		opt.Policy = DefaultPolicyConfig()
	}
	if opt.Intervals == (Intervals{}) {
		opt.Intervals = DefaultIntervals()
	}
	p := NewPolicy(opt.Policy)
	return &Session{
		log:      log,
		opt:      opt,
		policy:   p,
		iv:       opt.Intervals,
		state:    StateIdle,
		delays:   p.Initial(),
		keyCount: -1,
		visible:  append([]string(nil), opt.VisibleKeys...),
		timers:   newTimerGroup(opt.Scheduler),
		watchdog: newTimerGroup(opt.Scheduler),
	}
}

func (s *Session) State() State     { return s.state }
func (s *Session) Delays() Delays   { return s.delays }
func (s *Session) GateHeld() bool   { return s.blockSend }
func (s *Session) DeviceID() string { return s.opt.DeviceID }

// ReconnectDelay is how long the dial loop waits before next attempt.
func (s *Session) ReconnectDelay() time.Duration { return s.delays.Reconnect }

// LastReceived is time of last inbound frame, zero if none.
func (s *Session) LastReceived() time.Time { return s.lastRx }

func (s *Session) Snapshot() (Snapshot, bool) {
	if s.snap == nil {
		return Snapshot{}, false
	}
	return s.snap.clone(), true
}

// Entries of the published configuration, nil until dump completes.
func (s *Session) Entries() []nvs.Entry {
	if s.store == nil {
		return nil
	}
	return s.store.Entries()
}

func (s *Session) Entry(key string) (nvs.Entry, bool) {
	if s.store == nil {
		return nvs.Entry{}, false
	}
	return s.store.Get(key)
}

// ExportConfig is name -> value JSON of the published configuration.
func (s *Session) ExportConfig() ([]byte, error) {
	if s.store == nil {
		return nil, errors.NotFoundf("configuration not loaded")
	}
	return s.store.ExportJSON()
}

func (s *Session) Progress() nvs.Progress {
	p := nvs.Progress{Total: s.keyCount}
	switch {
	case s.dump != nil:
		p.Received = s.dump.Len()
	case s.store != nil:
		p.Received = s.store.Len()
	}
	return p
}

func (s *Session) Livedata() []livedata.Row {
	if s.mirror == nil {
		return nil
	}
	return s.mirror.Rows()
}

func (s *Session) Screen() *display.Display { return s.screen }

// Connect is no-op unless idle. Starts dial loop and login watchdog.
func (s *Session) Connect() {
	if !s.transition(EventConnect) {
		s.log.Debugf("session connect ignored state=%s", s.state)
		return
	}
	s.watchdog.every(s.iv.Reauth, s.reauth)
	if s.opt.Link != nil {
		s.opt.Link.Start()
	}
}

// Disconnect closes transport and forgets it, Connect may be called again.
func (s *Session) Disconnect() {
	if s.state == StateIdle {
		return
	}
	if s.opt.Link != nil {
		s.opt.Link.Stop()
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Debugf("session close err=%v", err)
		}
		s.conn = nil
	}
	s.watchdog.cancel()
	s.reset()
	s.transition(EventDisconnect)
}

// Retry is the manual recovery: connect when idle, login when unauthenticated.
func (s *Session) Retry() {
	switch s.state {
	case StateIdle:
		s.Connect()
	case StateConnected, StateDisconnected:
		s.login()
	default:
		s.log.Debugf("session retry nothing to do state=%s", s.state)
	}
}

func (s *Session) OnOpen(conn Conn) {
	if s.conn != nil {
		s.log.Errorf("code error session OnOpen with live connection")
		_ = conn.Close()
		return
	}
	if !s.transition(EventOpen) {
		s.log.Debugf("session late open state=%s, closing", s.state)
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.log.Infof("connected")
	s.login()
}

func (s *Session) OnMessage(conn Conn, b []byte) {
	if conn == nil || conn != s.conn {
		s.log.Debugf("session drop frame from stale connection")
		return
	}
	s.lastRx = time.Now()
	f, err := protocol.Decode(b)
	if err != nil {
		s.log.Errorf("session decode err=%v frame=%s", err, b)
		return
	}
	if s.log.Enabled(log2.LDebug) {
		s.log.Debugf("rx %s", b)
	}
	if err = f.Dispatch(s); err != nil {
		s.log.Errorf("session handle type=%s err=%s", f.Type(), errors.ErrorStack(err))
	}
}

// OnTransportError resets the session, dial loop redials after ReconnectDelay.
func (s *Session) OnTransportError(conn Conn, err error) {
	if conn == nil || conn != s.conn {
		s.log.Debugf("session stale transport err=%v", err)
		return
	}
	s.log.Errorf("transport err=%v", err)
	_ = s.conn.Close()
	s.conn = nil
	s.reset()
	s.transition(EventTransportError)
}

func (s *Session) reauth() {
	if s.state == StateConnected {
		s.login()
	}
}

func (s *Session) login() {
	var secret string
	ok := false
	if s.opt.Credentials != nil && s.opt.DeviceID != "" {
		secret, ok = s.opt.Credentials.Secret(s.opt.DeviceID)
	}
	if !ok {
		s.log.Debugf("no credential for device=%q, login skipped", s.opt.DeviceID)
		return
	}
	s.keyCount = -1
	s.sendRaw(protocol.LoginRequest{User: s.opt.DeviceID, Pass: secret})
}

// reset drops everything of authenticated session, keeps transport and watchdog.
func (s *Session) reset() {
	s.timers.cancel()
	s.blockSend = false
	s.snap = nil
	s.dump = nil
	s.store = nil
	s.keyCount = -1
	s.mirror = nil
	s.screen = nil
}

func (s *Session) transition(ev Event) bool {
	next, d, ok := s.policy.Next(s.state, ev, s.delays)
	if !ok {
		s.log.Debugf("session event=%s ignored state=%s", ev, s.state)
		return false
	}
	prev := s.state
	s.state, s.delays = next, d
	if prev != next {
		s.log.Debugf("session state %s -> %s on %s", prev, next, ev)
		if s.opt.Hooks.State != nil {
			s.opt.Hooks.State(next)
		}
	}
	return true
}

// sendRaw bypasses the gate, used by login, dump and initScreen.
func (s *Session) sendRaw(r protocol.Request) bool {
	if s.conn == nil {
		s.log.Debugf("not connected, drop type=%s", r.Type())
		return false
	}
	b, err := protocol.Encode(r)
	if err != nil {
		s.log.Errorf("session %v", err)
		return false
	}
	if err = s.conn.Send(b); err != nil {
		s.log.Errorf("session send type=%s err=%v", r.Type(), err)
		return false
	}
	if s.log.Enabled(log2.LDebug) && r.Type() != "login" {
		s.log.Debugf("tx %s", b)
	}
	return true
}

// sendGated silently drops while bulk dump holds the gate.
func (s *Session) sendGated(r protocol.Request) bool {
	if s.blockSend {
		s.log.Debugf("gate held, drop type=%s", r.Type())
		return false
	}
	return s.sendRaw(r)
}

func (s *Session) alert(title, message string) {
	if s.opt.Hooks.Alert != nil {
		s.opt.Hooks.Alert(title, message)
	}
}

func (s *Session) emitSnapshot() {
	if s.snap != nil && s.opt.Hooks.Snapshot != nil {
		s.opt.Hooks.Snapshot(s.snap.clone())
	}
}

func (s *Session) emitProgress() {
	if s.dump != nil && s.opt.Hooks.Progress != nil {
		s.opt.Hooks.Progress(s.Progress())
	}
}
