// Package tele forwards device session status and live data
// to an MQTT broker through a persistent queue.
package tele

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bobbycar-graz/bobbyremote/helpers"
	"github.com/bobbycar-graz/bobbyremote/internal/livedata"
	"github.com/bobbycar-graz/bobbyremote/internal/session"
	"github.com/bobbycar-graz/bobbyremote/log2"
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/atomic_clock"
	"github.com/temoto/spq"
)

const (
	DefaultNetworkTimeout = 30 * time.Second
	DefaultTopicPrefix    = "bobby"
	DefaultMinInterval    = time.Second

	FormatJSON  = "json"
	FormatProto = "proto"
)

// Tele contract:
// - Init fails only with invalid config, network issues ignored
// - State/Livedata/Info block at most for disk write,
//   delivery happens in background
// - Close stops delivery, undelivered records stay on disk for next run
// - records delivered at least once, in order of kind queue
type Tele struct { //nolint:maligned
	config    Config
	log       *log2.Log
	transport Transporter
	topics    Topics
	q         *spq.Queue
	alive     *alive.Alive
	backoff   helpers.Backoff

	minInterval  time.Duration
	lastLivedata atomic_clock.Clock
	lastInfo     atomic_clock.Clock
	stat         Stat
}

type Stat struct {
	Queued    uint32
	Sent      uint32
	Throttled uint32
	Retried   uint32
}

// denote value type in persistent queue bytes form
const (
	qState    byte = 1
	qLivedata byte = 2
	qInfo     byte = 3
)

func New() *Tele { return &Tele{} }

func NewWithTransporter(trans Transporter) *Tele {
	return &Tele{transport: trans}
}

func (self *Tele) Init(ctx context.Context, log *log2.Log, c Config, deviceID string) error {
	self.config = c
	self.log = log
	if !c.Enabled {
		return nil
	}
	if c.LogDebug {
		self.log.SetLevel(log2.LDebug)
	}
	switch c.PayloadFormat {
	case "", FormatJSON, FormatProto:
	default:
		return errors.NotValidf("tele payload_format=%q", c.PayloadFormat)
	}
	if deviceID == "" {
		return errors.NotValidf("tele empty device id")
	}
	if c.PersistPath == "" {
		return errors.NotValidf("tele enabled but persist_path empty")
	}
	self.minInterval = helpers.IntMillisecondDefault(c.MinIntervalMillis, DefaultMinInterval)
	self.topics = NewTopics(c.TopicPrefix, deviceID)
	self.backoff = helpers.Backoff{Min: 100 * time.Millisecond, Max: DefaultNetworkTimeout, K: 2}

	// test code sets .transport
	if self.transport == nil { // production path
		self.transport = &transportMqtt{}
	}
	if err := self.transport.Init(ctx, log, c, self.topics); err != nil {
		return errors.Annotate(err, "tele transport")
	}

	var err error
	self.q, err = spq.Open(c.PersistPath)
	if err != nil {
		return errors.Annotate(err, "tele queue")
	}
	self.alive = alive.NewAlive()
	self.alive.Add(1)
	go self.qworker()
	return nil
}

func (self *Tele) Enabled() bool { return self.q != nil }

func (self *Tele) Close() {
	if self.q == nil {
		return
	}
	self.alive.Stop()
	if err := self.q.Close(); err != nil {
		self.log.Errorf("tele queue close err=%v", err)
	}
	self.alive.Wait()
	self.transport.Close()
}

func (self *Tele) Stat() Stat {
	return Stat{
		Queued:    atomic.LoadUint32(&self.stat.Queued),
		Sent:      atomic.LoadUint32(&self.stat.Sent),
		Throttled: atomic.LoadUint32(&self.stat.Throttled),
		Retried:   atomic.LoadUint32(&self.stat.Retried),
	}
}

func (self *Tele) State(s session.State) error {
	return self.push(qState, map[string]interface{}{"state": s.String()})
}

// Livedata queues current values, dropped when called again within min interval.
func (self *Tele) Livedata(rows []livedata.Row) error {
	if !self.throttle(&self.lastLivedata) {
		return nil
	}
	return self.push(qLivedata, rowsData(rows))
}

// Info queues device snapshot, throttled like Livedata.
func (self *Tele) Info(snap session.Snapshot) error {
	if !self.throttle(&self.lastInfo) {
		return nil
	}
	return self.push(qInfo, snapshotData(snap))
}

// Hooks forwards session events then calls next.
func (self *Tele) Hooks(next session.Hooks) session.Hooks {
	if !self.Enabled() {
		return next
	}
	h := next
	h.State = func(s session.State) {
		if err := self.State(s); err != nil {
			self.log.Error(err)
		}
		if next.State != nil {
			next.State(s)
		}
	}
	h.Snapshot = func(snap session.Snapshot) {
		if err := self.Info(snap); err != nil {
			self.log.Error(err)
		}
		if next.Snapshot != nil {
			next.Snapshot(snap)
		}
	}
	h.Livedata = func(rows []livedata.Row, created []string) {
		if err := self.Livedata(rows); err != nil {
			self.log.Error(err)
		}
		if next.Livedata != nil {
			next.Livedata(rows, created)
		}
	}
	return h
}

func (self *Tele) throttle(last *atomic_clock.Clock) bool {
	if self.q == nil {
		return false
	}
	if !last.IsZero() && atomic_clock.Since(last) < self.minInterval {
		atomic.AddUint32(&self.stat.Throttled, 1)
		return false
	}
	last.SetNow()
	return true
}

func (self *Tele) push(tag byte, data map[string]interface{}) error {
	if self.q == nil {
		return nil
	}
	rec := toStruct(map[string]interface{}{
		"device": self.topics.Device,
		"time":   time.Now().UnixNano() / int64(time.Millisecond),
		"data":   data,
	})
	err := self.qpushTagProto(tag, rec)
	if err == nil {
		atomic.AddUint32(&self.stat.Queued, 1)
	}
	return errors.Annotate(err, "tele push")
}

func (self *Tele) qpushTagProto(tag byte, pb proto.Message) error {
	buf := proto.NewBuffer(make([]byte, 0, 1024))
	if err := buf.EncodeVarint(uint64(tag)); err != nil {
		return err
	}
	if err := buf.Marshal(pb); err != nil {
		return err
	}
	return self.q.Push(buf.Bytes())
}

func (self *Tele) qworker() {
	defer self.alive.Done()
	for {
		box, err := self.q.Peek()
		switch err {
		case nil:
			// success path
			b := box.Bytes()
			del, err := self.qhandle(b)
			if err != nil {
				self.log.Errorf("tele qhandle b=%x err=%v", b, err)
			}
			if del {
				if err = self.q.Delete(box); err != nil {
					self.log.Errorf("tele qhandle Delete b=%x err=%v", b, err)
				}
				self.backoff.Reset()
				continue
			}
			if err = self.q.DeletePush(box); err != nil {
				self.log.Errorf("tele qhandle DeletePush b=%x err=%v", b, err)
			}
			atomic.AddUint32(&self.stat.Retried, 1)
			self.backoff.Failure()
			select {
			case <-time.After(self.backoff.Next()):
			case <-self.alive.StopChan():
				return
			}

		case spq.ErrClosed:
			if !self.alive.IsRunning() { // success path
				return
			}
			self.log.Errorf("CRITICAL tele spq closed unexpectedly")
			return

		default:
			self.log.Errorf("CRITICAL tele spq err=%v", err)
			select {
			case <-time.After(time.Second):
			case <-self.alive.StopChan():
				return
			}
		}
	}
}

// qhandle returns true when record is done (delivered or broken).
func (self *Tele) qhandle(b []byte) (bool, error) {
	if len(b) == 0 {
		return true, errors.Errorf("tele spq peek=empty")
	}
	var topic string
	switch b[0] {
	case qState:
		topic = self.topics.State
	case qLivedata:
		topic = self.topics.Livedata
	case qInfo:
		topic = self.topics.Info
	default:
		return true, errors.Errorf("unknown kind=%d", b[0])
	}

	var rec structpb.Struct
	if err := proto.Unmarshal(b[1:], &rec); err != nil {
		return true, err
	}
	payload, err := encodeWire(self.config.PayloadFormat, &rec)
	if err != nil {
		return true, errors.Annotate(err, "retry will not help")
	}
	if !self.transport.Send(topic, payload) {
		return false, nil
	}
	atomic.AddUint32(&self.stat.Sent, 1)
	return true, nil
}
