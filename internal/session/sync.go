package session

import (
	"time"

	"github.com/bobbycar-graz/bobbyremote/internal/nvs"
	"github.com/bobbycar-graz/bobbyremote/internal/protocol"
)

// beginDump takes the outbound gate and requests the first batch.
func (s *Session) beginDump() {
	if s.conn == nil || s.blockSend {
		return
	}
	from := s.state
	if !s.transition(EventDumpBegin) {
		return
	}
	if from == StateReady {
		s.timers.cancel()
	}
	s.blockSend = true
	s.dump = nvs.NewDump()
	s.store = nil
	s.log.Debugf("config dump begin")
	s.emitProgress()
	s.sendRaw(protocol.GetConfig{ID: 0})
}

func (s *Session) appendBatch(f *protocol.ConfigBatch) {
	if s.dump == nil || s.state != StateDumping {
		s.log.Debugf("config batch outside of dump ignored len=%d", len(f.Configs))
		return
	}
	dump := s.dump
	dump.Append(f.Configs)
	s.emitProgress()
	s.timers.after(s.delays.DumpStep, func() {
		if s.dump != dump {
			return
		}
		s.sendRaw(protocol.GetConfig{ID: dump.Len()})
	})
}

func (s *Session) completeDump(f *protocol.ConfigComplete) {
	if s.dump == nil || s.state != StateDumping {
		s.log.Debugf("config final batch outside of dump ignored len=%d", len(f.Configs))
		return
	}
	batches := s.dump.Batches() + 1
	s.store = s.dump.Finish(f.Configs)
	s.dump = nil
	s.blockSend = false
	s.transition(EventDumpComplete)
	if s.snap != nil {
		s.snap.AccessPoint = accessPointFromStore(s.store)
	}
	s.log.Infof("config loaded keys=%d batches=%d", s.store.Len(), batches)
	if s.opt.Hooks.Progress != nil {
		s.opt.Hooks.Progress(s.Progress())
	}
	if s.opt.Hooks.Ready != nil {
		s.opt.Hooks.Ready(s.store.Entries())
	}
	s.startPolling()
}

func (s *Session) startPolling() {
	s.timers.every(s.iv.Refresh, func() {
		s.refreshVisible()
		s.RequestUptime()
		s.timers.after(s.iv.Refresh/2, s.RequestUptime)
	})
	s.timers.every(s.iv.Info, s.RequestInfo)
	s.timers.every(s.iv.Ota, s.RequestOtaStatus)
}

// refreshVisible asks for fresh values of keys the operator is looking at,
// spaced apart to avoid bursts.
func (s *Session) refreshVisible() {
	if s.store == nil {
		return
	}
	i := 0
	for _, key := range s.visible {
		if _, ok := s.store.Get(key); !ok {
			continue
		}
		key := key
		s.timers.after(time.Duration(i)*s.iv.RefreshStagger, func() { s.RefreshConfig(key) })
		i++
	}
}
