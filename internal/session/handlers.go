package session

import (
	"image"
	"strings"

	"github.com/bobbycar-graz/bobbyremote/display"
	"github.com/bobbycar-graz/bobbyremote/internal/livedata"
	"github.com/bobbycar-graz/bobbyremote/internal/protocol"
)

func (s *Session) OnLogin(f *protocol.Login) error {
	res, err := parseResolution(f.Res)
	if err != nil {
		s.log.Errorf("login %v, remote screen disabled", err)
		res = image.Point{}
	}
	if !s.transition(EventLogin) {
		return nil
	}
	s.reset()
	s.snap = &Snapshot{Name: f.Name, IP: f.IP, Resolution: res, PingMillis: -1}
	s.mirror = livedata.New()
	s.screen = display.New(s.log, res)
	if s.opt.ScreenSink != nil {
		s.screen.SetSink(s.opt.ScreenSink)
	}
	s.log.Infof("authenticated device=%s ip=%s res=%s", f.Name, f.IP, f.Res)
	s.emitSnapshot()

	s.sendRaw(protocol.InitScreen{})
	settle := s.delays.DumpBegin
	s.timers.after(settle, func() {
		s.RequestInfo()
		s.RequestOtaStatus()
	})
	s.timers.after(settle+s.iv.DumpLag, s.beginDump)
	return nil
}

func (s *Session) OnLoginError(f *protocol.LoginError) error {
	s.failure(EventLoginError, "Login error", f.Message)
	return nil
}

func (s *Session) OnError(f *protocol.Error) error {
	s.failure(EventProtocolError, "Error", f.Message)
	return nil
}

// failure drops authentication, watchdog logs in again with widened delays.
func (s *Session) failure(ev Event, title, message string) {
	s.log.Errorf("%s: %s", strings.ToLower(title), message)
	s.alert(title, message)
	if !s.transition(ev) {
		return
	}
	s.reset()
}

func (s *Session) OnDisconnect(*protocol.Disconnect) error {
	s.log.Infof("device disconnected")
	if !s.transition(EventPeerDisconnect) {
		return nil
	}
	s.reset()
	return nil
}

func (s *Session) OnConfigBatch(f *protocol.ConfigBatch) error {
	s.appendBatch(f)
	return nil
}

func (s *Session) OnConfigComplete(f *protocol.ConfigComplete) error {
	s.completeDump(f)
	return nil
}

// Total may arrive any time, after completion it is kept but not reported.
func (s *Session) OnConfigCount(f *protocol.ConfigCount) error {
	s.keyCount = f.Count
	s.emitProgress()
	return nil
}

func (s *Session) OnSingleConfig(f *protocol.SingleConfig) error {
	if s.store == nil {
		s.log.Debugf("singleConfig key=%s before configuration loaded", f.Config.Name)
		return nil
	}
	u := f.Config.Normalize()
	r := s.store.Update(u)
	if !r.Known {
		s.log.Debugf("singleConfig unknown key=%s ignored", u.Name)
		return nil
	}
	if r.Added {
		s.log.Infof("config key=%s added by device", u.Name)
	}
	if strings.HasPrefix(u.Name, "wifiAp") && s.snap != nil {
		s.snap.AccessPoint = accessPointFromStore(s.store)
	}
	if s.opt.Hooks.Entry != nil {
		e, _ := s.store.Get(u.Name)
		s.opt.Hooks.Entry(e)
	}
	return nil
}

func (s *Session) OnInfo(f *protocol.Info) error {
	if s.snap == nil {
		return nil
	}
	info := f.Info
	s.snap.Info = &info
	s.emitSnapshot()
	return nil
}

func (s *Session) OnUptime(f *protocol.Uptime) error {
	if s.snap == nil {
		return nil
	}
	if s.snap.Info == nil {
		s.snap.Info = &protocol.DeviceInfo{}
	}
	s.snap.Info.Uptime = f.Micros
	s.emitSnapshot()
	return nil
}

func (s *Session) OnOtaStatus(f *protocol.OtaStatus) error {
	if s.snap == nil {
		return nil
	}
	ota := f.Info
	s.snap.Ota = &ota
	s.emitSnapshot()
	return nil
}

func (s *Session) OnPing(f *protocol.Ping) error {
	if s.snap == nil {
		return nil
	}
	s.snap.PingMillis = f.Millis
	s.emitSnapshot()
	return nil
}

func (s *Session) OnScreenCtrl(f *protocol.ScreenCtrl) error {
	if s.screen == nil {
		return nil
	}
	if skipped := s.screen.Render(f.Data); skipped != 0 {
		s.log.Debugf("screen skipped %d/%d primitives", skipped, len(f.Data))
	}
	if err := s.screen.Flush(); err != nil {
		s.log.Errorf("screen flush err=%v", err)
	}
	if s.opt.Hooks.Screen != nil {
		s.opt.Hooks.Screen(s.screen)
	}
	return nil
}

func (s *Session) OnLivedata(f *protocol.Livedata) error {
	if s.mirror == nil {
		return nil
	}
	created := s.mirror.Update(f.Data)
	if s.opt.Hooks.Livedata != nil {
		s.opt.Hooks.Livedata(s.mirror.Rows(), created)
	}
	return nil
}

func (s *Session) OnUnknown(f *protocol.Unknown) error {
	s.log.Infof("unknown message type=%s", f.Kind)
	return nil
}
