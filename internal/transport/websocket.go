// Package transport is the gateway connection: one websocket
// carrying JSON text frames in both directions.
package transport

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bobbycar-graz/bobbyremote/helpers"
	"github.com/bobbycar-graz/bobbyremote/log2"
	"github.com/gorilla/websocket"
	"github.com/juju/errors"
)

const (
	DefaultDialTimeout  = 10 * time.Second
	DefaultWriteTimeout = 5 * time.Second
	MaxFrameSize        = 1 << 20
)

type Config struct {
	URL             string
	DialTimeoutSec  int
	WriteTimeoutSec int
	// TLS verification off, for gateways with self signed certificate
	Insecure bool
	Header   http.Header
}

type Dialer struct {
	log *log2.Log
	url string
	hdr http.Header
	ws  websocket.Dialer

	dialTimeout  time.Duration
	writeTimeout time.Duration
}

func NewDialer(log *log2.Log, c Config) (*Dialer, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, errors.Annotatef(err, "gateway url=%q", c.URL)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, errors.NotValidf("gateway url=%q scheme, expected ws or wss", c.URL)
	}
	d := &Dialer{
		log:          log,
		url:          u.String(),
		hdr:          c.Header,
		dialTimeout:  helpers.IntSecondDefault(c.DialTimeoutSec, DefaultDialTimeout),
		writeTimeout: helpers.IntSecondDefault(c.WriteTimeoutSec, DefaultWriteTimeout),
	}
	d.ws = websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.dialTimeout,
	}
	if c.Insecure {
		d.ws.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return d, nil
}

func (d *Dialer) URL() string { return d.url }

func (d *Dialer) Dial(ctx context.Context) (*Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, d.dialTimeout)
	defer cancel()
	ws, resp, err := d.ws.DialContext(ctx, d.url, d.hdr)
	if err != nil {
		if resp != nil {
			return nil, errors.Annotatef(err, "dial %s status=%s", d.url, resp.Status)
		}
		return nil, errors.Annotatef(err, "dial %s", d.url)
	}
	ws.SetReadLimit(MaxFrameSize)
	d.log.Debugf("transport connected %s", d.url)
	return &Conn{log: d.log, ws: ws, writeTimeout: d.writeTimeout}, nil
}

// Conn is safe for one reader and many writers.
type Conn struct {
	log          *log2.Log
	ws           *websocket.Conn
	writeTimeout time.Duration

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *Conn) Send(b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return errors.Annotate(err, "transport send")
	}
	return errors.Annotate(c.ws.WriteMessage(websocket.TextMessage, b), "transport send")
}

// Receive returns next data frame. Control frames are handled inside.
func (c *Conn) Receive() ([]byte, error) {
	for {
		typ, b, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, errors.Annotate(err, "transport closed by gateway")
			}
			return nil, errors.Annotate(err, "transport receive")
		}
		switch typ {
		case websocket.TextMessage, websocket.BinaryMessage:
			return b, nil
		}
	}
}

// Close sends close frame best effort and closes socket. Safe to call many times.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		deadline := time.Now().Add(time.Second)
		if err := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			c.log.Debugf("transport close frame err=%v", err)
		}
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
