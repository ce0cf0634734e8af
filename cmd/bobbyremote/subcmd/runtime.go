package subcmd

import (
	"context"
	"sync"

	"github.com/bobbycar-graz/bobbyremote/display"
	"github.com/bobbycar-graz/bobbyremote/display/framebuffer"
	"github.com/bobbycar-graz/bobbyremote/internal/config"
	"github.com/bobbycar-graz/bobbyremote/internal/credential"
	"github.com/bobbycar-graz/bobbyremote/internal/session"
	"github.com/bobbycar-graz/bobbyremote/internal/tele"
	"github.com/bobbycar-graz/bobbyremote/internal/transport"
	"github.com/bobbycar-graz/bobbyremote/log2"
	"github.com/juju/errors"
)

// Runtime is everything one device session needs, wired from config.
type Runtime struct {
	Log         *log2.Log
	Config      *config.Config
	Credentials *credential.Store
	Tele        *tele.Tele
	Client      *session.Client

	fb        *framebuffer.Framebuffer
	closeOnce sync.Once
}

func OpenCredentials(log *log2.Log, c *config.Config) (*credential.Store, error) {
	cs := credential.New(log, c.Credential.Dir)
	if err := cs.Load(); err != nil {
		return nil, errors.Annotate(err, "credentials")
	}
	if c.Device.Secret != "" {
		cs.SetStatic(c.Device.ID, c.Device.Secret)
	}
	return cs, nil
}

// NewRuntime validates config and builds the session client.
// hooks receive session events after telemetry forwarding.
func NewRuntime(ctx context.Context, c *config.Config, hooks session.Hooks) (*Runtime, error) {
	log := log2.ContextValueLogger(ctx)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	r := &Runtime{Log: log, Config: c}

	var err error
	if r.Credentials, err = OpenCredentials(log, c); err != nil {
		return nil, err
	}
	dialer, err := transport.NewDialer(log, c.Transport())
	if err != nil {
		return nil, errors.Annotate(err, "gateway")
	}

	var sink display.Sink
	if c.Display.Framebuffer != "" {
		if r.fb, err = framebuffer.New(c.Display.Framebuffer); err != nil {
			return nil, errors.Annotatef(err, "display framebuffer=%s", c.Display.Framebuffer)
		}
		sink = r.fb
	}

	teleLog := log.Clone(log2.LInfo)
	if c.LogDebug {
		teleLog.SetLevel(log2.LDebug)
	}
	r.Tele = tele.New()
	if err = r.Tele.Init(ctx, teleLog, c.Tele, c.Device.ID); err != nil {
		r.closeDisplay()
		return nil, errors.Annotate(err, "tele")
	}

	opt := session.Options{
		DeviceID:    c.Device.ID,
		Credentials: r.Credentials,
		Intervals:   c.Intervals(),
		Hooks:       r.Tele.Hooks(hooks),
		ScreenSink:  sink,
		VisibleKeys: c.Session.VisibleKeys,
	}
	dial := session.DialFunc(func(ctx context.Context) (session.Transport, error) {
		conn, err := dialer.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
	r.Client = session.NewClient(log, dial, opt)
	return r, nil
}

// Close stops session client, then telemetry, then releases display.
// Safe to call more than once.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		r.Client.Stop()
		r.Tele.Close()
		r.closeDisplay()
	})
}

func (r *Runtime) closeDisplay() {
	if r.fb == nil {
		return
	}
	if err := r.fb.Close(); err != nil {
		r.Log.Errorf("framebuffer close err=%v", err)
	}
	r.fb = nil
}
