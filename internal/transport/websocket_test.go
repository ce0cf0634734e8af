package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bobbycar-graz/bobbyremote/log2"
	"github.com/gorilla/websocket"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEchoServer(t *testing.T, onConn func(*websocket.Conn)) string {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade err=%v", err)
			return
		}
		defer ws.Close()
		onConn(ws)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestNewDialer(t *testing.T) {
	t.Parallel()
	cases := []struct {
		url   string
		valid bool
	}{
		{"ws://localhost:8080/ws", true},
		{"wss://gateway.example/ws", true},
		{"http://gateway.example/ws", false},
		{"gateway", false},
		{"ws://%zz", false},
	}
	for _, c := range cases {
		c := c
		t.Run(c.url, func(t *testing.T) {
			_, err := NewDialer(log2.NewTest(t, log2.LDebug), Config{URL: c.url})
			if c.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
	_, err := NewDialer(nil, Config{URL: "tcp://x"})
	assert.True(t, errors.IsNotValid(err))
}

func TestEcho(t *testing.T) {
	t.Parallel()
	url := newEchoServer(t, func(ws *websocket.Conn) {
		for {
			typ, b, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if err = ws.WriteMessage(typ, b); err != nil {
				return
			}
		}
	})
	d, err := NewDialer(log2.NewTest(t, log2.LDebug), Config{URL: url})
	require.NoError(t, err)
	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Send([]byte(`{"type":"login"}`)))
	b, err := conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"login"}`, string(b))

	require.NoError(t, conn.Close())
	assert.NoError(t, conn.Close(), "second close")
	_, err = conn.Receive()
	assert.Error(t, err)
}

func TestGatewayClose(t *testing.T) {
	t.Parallel()
	url := newEchoServer(t, func(ws *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	})
	d, err := NewDialer(log2.NewTest(t, log2.LDebug), Config{URL: url})
	require.NoError(t, err)
	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Receive()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed by gateway")
}

func TestDialRefused(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()
	d, err := NewDialer(log2.NewTest(t, log2.LDebug), Config{URL: url, DialTimeoutSec: 1})
	require.NoError(t, err)
	_, err = d.Dial(context.Background())
	assert.Error(t, err)
}

func TestDialBadStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	d, err := NewDialer(log2.NewTest(t, log2.LDebug), Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http")})
	require.NoError(t, err)
	_, err = d.Dial(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
