package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/bobbycar-graz/bobbyremote/display"
	"github.com/bobbycar-graz/bobbyremote/internal/livedata"
	"github.com/bobbycar-graz/bobbyremote/internal/nvs"
	"github.com/bobbycar-graz/bobbyremote/log2"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

// fakeScheduler runs callbacks synchronously inside Advance, like a dispatcher would.
type fakeScheduler struct {
	now    time.Duration
	seq    int
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.seq++
	t := &fakeTimer{at: s.now + d, seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Advance(d time.Duration) {
	end := s.now + d
	for {
		var next *fakeTimer
		for _, t := range s.timers {
			if t.stopped || t.fired || t.at > end {
				continue
			}
			if next == nil || t.at < next.at || (t.at == next.at && t.seq < next.seq) {
				next = t
			}
		}
		if next == nil {
			break
		}
		s.now = next.at
		next.fired = true
		next.f()
	}
	s.now = end
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	s.timers = live
}

func (s *fakeScheduler) Pending() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type mockConn struct {
	sent   []string
	closed bool
}

func (c *mockConn) Send(b []byte) error {
	if c.closed {
		return fmt.Errorf("send on closed connection")
	}
	c.sent = append(c.sent, string(b))
	return nil
}

func (c *mockConn) Close() error {
	c.closed = true
	return nil
}

// Take returns sent frames and forgets them.
func (c *mockConn) Take() []string {
	s := c.sent
	c.sent = nil
	return s
}

// TakeTypes is Take reduced to message types.
func (c *mockConn) TakeTypes() []string {
	frames := c.Take()
	types := make([]string, len(frames))
	for i, f := range frames {
		types[i] = jsoniter.Get([]byte(f), "type").ToString()
	}
	return types
}

type mockLink struct{ starts, stops int }

func (l *mockLink) Start() { l.starts++ }
func (l *mockLink) Stop()  { l.stops++ }

type mockCredentials map[string]string

func (m mockCredentials) Secret(id string) (string, bool) {
	s, ok := m[id]
	return s, ok
}

type tenv struct {
	t        testing.TB
	s        *Session
	sched    *fakeScheduler
	conn     *mockConn
	link     *mockLink
	alerts   []string
	states   []State
	progress []nvs.Progress
	entries  []nvs.Entry
	readies  [][]nvs.Entry
	screens  int
	rows     []livedata.Row
	created  []string
	snaps    int
}

const testDevice = "bobby1"

func newTenv(t testing.TB, mods ...func(*Options)) *tenv {
	env := &tenv{
		t:     t,
		sched: &fakeScheduler{},
		conn:  &mockConn{},
		link:  &mockLink{},
	}
	opt := Options{
		DeviceID:    testDevice,
		Credentials: mockCredentials{testDevice: "s3cret"},
		Scheduler:   env.sched,
		Link:        env.link,
		Hooks: Hooks{
			State:    func(s State) { env.states = append(env.states, s) },
			Alert:    func(title, msg string) { env.alerts = append(env.alerts, title+": "+msg) },
			Snapshot: func(Snapshot) { env.snaps++ },
			Progress: func(p nvs.Progress) { env.progress = append(env.progress, p) },
			Ready:    func(es []nvs.Entry) { env.readies = append(env.readies, es) },
			Entry:    func(e nvs.Entry) { env.entries = append(env.entries, e) },
			Livedata: func(rows []livedata.Row, created []string) {
				env.rows = rows
				env.created = append(env.created, created...)
			},
			Screen: func(*display.Display) { env.screens++ },
		},
	}
	for _, m := range mods {
		m(&opt)
	}
	env.s = New(log2.NewTest(t, log2.LDebug), opt)
	return env
}

func (e *tenv) recv(frame string) { e.s.OnMessage(e.conn, []byte(frame)) }

func (e *tenv) requireState(expect State) {
	e.t.Helper()
	require.Equal(e.t, expect, e.s.State(), "state %s != %s", expect, e.s.State())
}

// open connects and returns frames sent on open.
func (e *tenv) open() []string {
	e.s.Connect()
	e.s.OnOpen(e.conn)
	return e.conn.Take()
}

// authenticate runs through login up to first dump request.
func (e *tenv) authenticate() {
	e.t.Helper()
	e.open()
	e.recv(`{"type":"login","name":"bobby1","ip":"10.0.0.5","res":"8x6"}`)
	e.sched.Advance(e.s.Delays().DumpBegin + 100*time.Millisecond)
	e.requireState(StateDumping)
	e.conn.Take()
}

func configJSON(entries ...string) string {
	out := "["
	for i, e := range entries {
		if i > 0 {
			out += ","
		}
		out += e
	}
	return out + "]"
}

func intEntry(name string, v, d int, touched bool) string {
	return fmt.Sprintf(`{"v":%d,"d":%d,"n":%q,"t":%t,"T":"int16_t"}`, v, d, name, touched)
}

// ready runs a dump with given entries in a single terminal batch.
func (e *tenv) ready(entries ...string) {
	e.t.Helper()
	e.authenticate()
	e.recv(`{"type":"lastConfig","configs":` + configJSON(entries...) + `}`)
	e.requireState(StateReady)
	e.conn.Take()
}
