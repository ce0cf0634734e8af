package tele

import (
	"context"
	"testing"
	"time"

	"github.com/bobbycar-graz/bobbyremote/internal/livedata"
	"github.com/bobbycar-graz/bobbyremote/internal/protocol"
	"github.com/bobbycar-graz/bobbyremote/internal/session"
	"github.com/bobbycar-graz/bobbyremote/log2"
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
	jsoniter "github.com/json-iterator/go"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/spq"
)

const spqMemory = spq.OnlyForTesting

func TestInitConfig(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		c     Config
		valid bool
	}{
		{"disabled", Config{}, true},
		{"memory", Config{Enabled: true, PersistPath: spqMemory}, true},
		{"proto", Config{Enabled: true, PersistPath: spqMemory, PayloadFormat: "proto"}, true},
		{"no-path", Config{Enabled: true}, false},
		{"bad-format", Config{Enabled: true, PersistPath: spqMemory, PayloadFormat: "xml"}, false},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			tl := NewWithTransporter(&transportMock{t: t})
			err := tl.Init(context.Background(), log2.NewTest(t, log2.LDebug), c.c, "bobby1")
			defer tl.Close()
			if c.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.IsNotValid(err), "err=%v", err)
			}
		})
	}
}

func TestDisabledIsNoop(t *testing.T) {
	t.Parallel()
	tl := New()
	require.NoError(t, tl.Init(context.Background(), log2.NewTest(t, log2.LDebug), Config{}, "bobby1"))
	assert.False(t, tl.Enabled())
	assert.NoError(t, tl.State(session.StateReady))
	assert.NoError(t, tl.Livedata(nil))
	h := session.Hooks{}
	assert.Nil(t, tl.Hooks(h).State)
	tl.Close()
}

func TestForwardJSON(t *testing.T) {
	t.Parallel()
	mock := &transportMock{t: t}
	tl := newTestTele(t, mock, Config{TopicPrefix: "car"})
	defer tl.Close()

	require.NoError(t, tl.State(session.StateReady))
	s := mock.expect(t)
	assert.Equal(t, "car/bobby1/state", s.topic)
	assert.Equal(t, "Ready", jsoniter.Get(s.payload, "data", "state").ToString())
	assert.Equal(t, "bobby1", jsoniter.Get(s.payload, "device").ToString())

	require.NoError(t, tl.Livedata([]livedata.Row{{Key: "spd", Value: 12.5}, {Key: "mot", Value: true}}))
	s = mock.expect(t)
	assert.Equal(t, "car/bobby1/livedata", s.topic)
	assert.Equal(t, 12.5, jsoniter.Get(s.payload, "data", "spd").ToFloat64())
	assert.True(t, jsoniter.Get(s.payload, "data", "mot").ToBool())

	pct := 77.0
	snap := session.Snapshot{Name: "bobby1", IP: "10.0.0.5", PingMillis: 12,
		Info: &protocol.DeviceInfo{Uptime: 5, Percentage: &pct},
		Ota:  &protocol.OtaInfo{Progress: 5, TotalSize: 10, Status: "updating"}}
	require.NoError(t, tl.Info(snap))
	s = mock.expect(t)
	assert.Equal(t, "car/bobby1/info", s.topic)
	assert.Equal(t, 77.0, jsoniter.Get(s.payload, "data", "percentage").ToFloat64())
	assert.Equal(t, "updating", jsoniter.Get(s.payload, "data", "ota_status").ToString())
	assert.Nil(t, jsoniter.Get(s.payload, "data", "voltage").GetInterface())

	st := tl.Stat()
	assert.Equal(t, uint32(3), st.Queued)
}

func TestForwardProto(t *testing.T) {
	t.Parallel()
	mock := &transportMock{t: t}
	tl := newTestTele(t, mock, Config{PayloadFormat: FormatProto})
	defer tl.Close()

	require.NoError(t, tl.State(session.StateDumping))
	s := mock.expect(t)
	assert.Equal(t, "bobby/bobby1/state", s.topic)
	var rec structpb.Struct
	require.NoError(t, proto.Unmarshal(s.payload, &rec))
	data := rec.Fields["data"].GetStructValue()
	require.NotNil(t, data)
	assert.Equal(t, "Dumping", data.Fields["state"].GetStringValue())
}

func TestThrottle(t *testing.T) {
	t.Parallel()
	mock := &transportMock{t: t, outBuffer: 10}
	tl := newTestTele(t, mock, Config{MinIntervalMillis: 50})
	defer tl.Close()

	rows := []livedata.Row{{Key: "spd", Value: 1}}
	for i := 0; i < 5; i++ {
		require.NoError(t, tl.Livedata(rows))
	}
	mock.expect(t)
	assert.Equal(t, uint32(4), tl.Stat().Throttled)
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, tl.Livedata(rows))
	mock.expect(t)
}

func TestRetryKeepsRecord(t *testing.T) {
	t.Parallel()
	mock := &transportMock{t: t, failures: 2}
	tl := newTestTele(t, mock, Config{})
	defer tl.Close()

	require.NoError(t, tl.State(session.StateConnecting))
	s := mock.expect(t)
	assert.Equal(t, "Connecting", jsoniter.Get(s.payload, "data", "state").ToString())
	require.Eventually(t, func() bool { return tl.Stat().Sent == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, uint32(2), tl.Stat().Retried)
}

func TestHooksChain(t *testing.T) {
	t.Parallel()
	mock := &transportMock{t: t, outBuffer: 10}
	tl := newTestTele(t, mock, Config{})

	var states []session.State
	var created []string
	h := tl.Hooks(session.Hooks{
		State:    func(s session.State) { states = append(states, s) },
		Livedata: func(rows []livedata.Row, c []string) { created = append(created, c...) },
	})
	h.State(session.StateIdle)
	h.Livedata([]livedata.Row{{Key: "bat", Value: 40}}, []string{"bat"})
	h.Snapshot(session.Snapshot{Name: "bobby1", PingMillis: -1})

	assert.Equal(t, []session.State{session.StateIdle}, states)
	assert.Equal(t, []string{"bat"}, created)
	topics := map[string]bool{}
	for i := 0; i < 3; i++ {
		topics[mock.expect(t).topic] = true
	}
	assert.Len(t, topics, 3)
	tl.Close()
	assert.True(t, mock.closed)
}
