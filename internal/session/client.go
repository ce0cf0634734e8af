package session

import (
	"context"
	"image"
	"time"

	"github.com/bobbycar-graz/bobbyremote/helpers"
	"github.com/bobbycar-graz/bobbyremote/internal/livedata"
	"github.com/bobbycar-graz/bobbyremote/internal/nvs"
	"github.com/bobbycar-graz/bobbyremote/log2"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
)

const (
	DialBackoffFactor = 1.5
	DialBackoffMax    = 30 * time.Second

	eventQueueLen = 64
)

var ErrStopped = errors.New("session client stopped")

// Transport is a Conn which also reads inbound frames.
// Receive blocks and returns error after Close.
type Transport interface {
	Conn
	Receive() ([]byte, error)
}

type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}

type DialFunc func(ctx context.Context) (Transport, error)

func (f DialFunc) Dial(ctx context.Context) (Transport, error) { return f(ctx) }

// Client runs a Session on its own dispatcher goroutine.
// Transport reads, timers and public calls are all serialized as events.
// Exported methods are safe for concurrent use.
type Client struct {
	log    *log2.Log
	id     string
	alive  *alive.Alive
	events chan func()
	dialer Dialer
	s      *Session

	// dispatcher only
	linkCancel context.CancelFunc
}

func NewClient(log *log2.Log, dialer Dialer, opt Options) *Client {
	id := uuid.New().String()[:8]
	c := &Client{
		log:    log.WithPrefix("session=" + id + " "),
		id:     id,
		alive:  alive.NewAlive(),
		events: make(chan func(), eventQueueLen),
		dialer: dialer,
	}
	opt.Scheduler = loopScheduler{c}
	opt.Link = clientLink{c}
	c.s = New(c.log, opt)
	return c
}

// ID identifies this client in logs.
func (c *Client) ID() string { return c.id }

// Run dispatches events until ctx is done or Stop.
// Client can not be restarted.
func (c *Client) Run(ctx context.Context) error {
	if !c.alive.Add(1) {
		return ErrStopped
	}
	defer c.alive.Done()
	for {
		select {
		case f := <-c.events:
			f()
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-c.alive.StopChan():
			c.shutdown()
			return nil
		}
	}
}

// Stop disconnects and waits for dispatcher and dial loop to finish.
func (c *Client) Stop() {
	c.alive.Stop()
	c.alive.Wait()
}

func (c *Client) shutdown() {
	c.alive.Stop()
	c.s.Disconnect()
	c.linkStop()
}

func (c *Client) post(f func()) bool {
	select {
	case c.events <- f:
		return true
	case <-c.alive.StopChan():
		return false
	}
}

// call runs f on dispatcher and waits.
func (c *Client) call(f func()) error {
	done := make(chan struct{})
	if !c.post(func() { f(); close(done) }) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-c.alive.StopChan():
		return ErrStopped
	}
}

func (c *Client) Connect() { c.post(c.s.Connect) }

func (c *Client) Disconnect() { _ = c.call(c.s.Disconnect) }

func (c *Client) Retry() { c.post(c.s.Retry) }

func (c *Client) PressButton(b Button)    { c.post(func() { c.s.PressButton(b) }) }
func (c *Client) PressRawButton(b Button) { c.post(func() { c.s.PressRawButton(b) }) }
func (c *Client) Popup(message string)    { c.post(func() { c.s.Popup(message) }) }
func (c *Client) RefreshConfig(key string) {
	c.post(func() { c.s.RefreshConfig(key) })
}
func (c *Client) Reload() { c.post(c.s.Reload) }

func (c *Client) SetConfig(key, input string) error {
	var err error
	if e := c.call(func() { err = c.s.SetConfig(key, input) }); e != nil {
		return e
	}
	return err
}

func (c *Client) ResetConfig(key string) error {
	var err error
	if e := c.call(func() { err = c.s.ResetConfig(key) }); e != nil {
		return e
	}
	return err
}

func (c *Client) SetVisibleKeys(keys []string) {
	keys = append([]string(nil), keys...)
	c.post(func() { c.s.SetVisibleKeys(keys) })
}

func (c *Client) State() State {
	s := StateInvalid
	_ = c.call(func() { s = c.s.State() })
	return s
}

func (c *Client) Snapshot() (snap Snapshot, ok bool) {
	_ = c.call(func() { snap, ok = c.s.Snapshot() })
	return
}

func (c *Client) Entries() (es []nvs.Entry) {
	_ = c.call(func() { es = c.s.Entries() })
	return
}

func (c *Client) Entry(key string) (e nvs.Entry, ok bool) {
	_ = c.call(func() { e, ok = c.s.Entry(key) })
	return
}

func (c *Client) Progress() (p nvs.Progress) {
	_ = c.call(func() { p = c.s.Progress() })
	return
}

func (c *Client) Livedata() (rows []livedata.Row) {
	_ = c.call(func() { rows = c.s.Livedata() })
	return
}

func (c *Client) ExportConfig() (b []byte, err error) {
	if e := c.call(func() { b, err = c.s.ExportConfig() }); e != nil {
		return nil, e
	}
	return
}

// ScreenImage is a copy of remote screen, nil before login.
func (c *Client) ScreenImage() (img *image.RGBA) {
	_ = c.call(func() {
		if d := c.s.Screen(); d != nil {
			img = d.Image()
		}
	})
	return
}

// ScreenString is a text picture of remote screen, see display.String2.
func (c *Client) ScreenString(step int) (s string) {
	_ = c.call(func() {
		if d := c.s.Screen(); d != nil {
			s = d.String2(step)
		}
	})
	return
}

func (c *Client) LastReceived() (t time.Time) {
	_ = c.call(func() { t = c.s.LastReceived() })
	return
}

func (c *Client) linkStart() {
	if c.linkCancel != nil {
		return
	}
	if !c.alive.Add(1) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.linkCancel = cancel
	go c.dialLoop(ctx)
}

func (c *Client) linkStop() {
	if c.linkCancel != nil {
		c.linkCancel()
		c.linkCancel = nil
	}
}

// dialLoop keeps one transport open until ctx is canceled.
// Redial waits the session reconnect delay, raised by
// DialBackoffFactor after each consecutive dial failure.
func (c *Client) dialLoop(ctx context.Context) {
	defer c.alive.Done()
	bo := helpers.Backoff{K: DialBackoffFactor, Max: DialBackoffMax}
	for {
		t, err := c.dialer.Dial(ctx)
		if err == nil {
			c.serve(ctx, t)
		}
		if ctx.Err() != nil {
			return
		}

		var base time.Duration
		if c.call(func() { base = c.s.ReconnectDelay() }) != nil {
			return
		}
		var delay time.Duration
		if err == nil {
			bo = helpers.Backoff{K: DialBackoffFactor, Max: DialBackoffMax}
			delay = base
		} else {
			bo.Min = base
			bo.Failure()
			delay = bo.Next()
			c.log.Errorf("dial err=%v retry in %v", err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// serve feeds one transport into dispatcher until it fails.
func (c *Client) serve(ctx context.Context, t Transport) {
	// linkStop runs on dispatcher, so ctx checked there is final
	opened := false
	err := c.call(func() {
		if ctx.Err() == nil {
			c.s.OnOpen(t)
			opened = true
		}
	})
	if err != nil || !opened {
		_ = t.Close()
		return
	}
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = t.Close()
		case <-stop:
		}
	}()

	for {
		b, err := t.Receive()
		if err != nil {
			if ctx.Err() == nil {
				c.post(func() { c.s.OnTransportError(t, err) })
			}
			return
		}
		if !c.post(func() { c.s.OnMessage(t, b) }) {
			return
		}
	}
}

type clientLink struct{ c *Client }

func (l clientLink) Start() { l.c.linkStart() }
func (l clientLink) Stop()  { l.c.linkStop() }

// loopScheduler fires timers as dispatcher events.
type loopScheduler struct{ c *Client }

func (l loopScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() { l.c.post(f) })
}
