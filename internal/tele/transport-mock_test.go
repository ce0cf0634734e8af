package tele

import (
	"context"
	"testing"
	"time"

	"github.com/bobbycar-graz/bobbyremote/log2"
)

type sent struct {
	topic   string
	payload []byte
}

type transportMock struct {
	t              testing.TB
	networkTimeout time.Duration
	outBuffer      int
	out            chan sent
	// first failures Send calls return false
	failures int
	closed   bool
}

func (self *transportMock) Init(ctx context.Context, log *log2.Log, c Config, t Topics) error {
	if self.networkTimeout == 0 {
		self.networkTimeout = 5 * time.Second
	}
	self.out = make(chan sent, self.outBuffer)
	return nil
}

func (self *transportMock) Send(topic string, payload []byte) bool {
	if self.failures > 0 {
		self.failures--
		self.t.Logf("mock network failure topic=%s", topic)
		return false
	}
	select {
	case self.out <- sent{topic, payload}:
		self.t.Logf("mock delivered topic=%s payload=%s", topic, payload)
	case <-time.After(self.networkTimeout):
		self.t.Logf("mock network timeout")
		return false
	}
	return true
}

func (self *transportMock) Close() { self.closed = true }

func (self *transportMock) expect(t testing.TB) sent {
	t.Helper()
	select {
	case s := <-self.out:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("mock: no message delivered")
		return sent{}
	}
}

func newTestTele(t testing.TB, mock *transportMock, c Config) *Tele {
	c.Enabled = true
	if c.PersistPath == "" {
		c.PersistPath = spqMemory
	}
	tl := NewWithTransporter(mock)
	if err := tl.Init(context.Background(), log2.NewTest(t, log2.LDebug), c, "bobby1"); err != nil {
		t.Fatal(err)
	}
	return tl
}
