package session

import (
	"strconv"
	"strings"

	"github.com/bobbycar-graz/bobbyremote/internal/nvs"
	"github.com/bobbycar-graz/bobbyremote/internal/protocol"
	"github.com/juju/errors"
)

type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonUp
	ButtonDown
)

var buttonNames = map[string]Button{
	"left":  ButtonLeft,
	"right": ButtonRight,
	"up":    ButtonUp,
	"down":  ButtonDown,
}

// ParseButton accepts direction name or raw button number.
func ParseButton(s string) (Button, error) {
	if b, ok := buttonNames[strings.ToLower(s)]; ok {
		return b, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, errors.NotValidf("button=%q", s)
	}
	return Button(i), nil
}

// Commands below are silently dropped while the gate is held or transport is down.

func (s *Session) PressButton(b Button) {
	s.sendGated(protocol.ButtonPressed{Button: int(b)})
}

func (s *Session) PressRawButton(b Button) {
	s.sendGated(protocol.RawButtonPressed{Button: int(b)})
}

func (s *Session) Popup(message string) {
	s.sendGated(protocol.Popup{Message: message})
}

func (s *Session) RequestInfo()      { s.poll(protocol.GetInformation{}) }
func (s *Session) RequestUptime()    { s.poll(protocol.GetUptime{}) }
func (s *Session) RequestOtaStatus() { s.poll(protocol.GetOtaStatus{}) }

func (s *Session) RefreshConfig(key string) {
	s.poll(protocol.GetSingleConfig{Key: key})
}

// poll is for timer driven requests that may outlive their session.
func (s *Session) poll(r protocol.Request) {
	if !s.state.Authenticated() {
		return
	}
	s.sendGated(r)
}

// SetConfig coerces operator input by entry type and sends it.
// Malformed input or unknown key is an error and nothing is sent.
// Confirmation arrives later as singleConfig.
func (s *Session) SetConfig(key, input string) error {
	e, err := s.editable(key)
	if e == nil {
		return err
	}
	value, err := nvs.ParseInput(e, input)
	if err != nil {
		return err
	}
	s.sendGated(protocol.SetConfig{Key: key, Value: value})
	return nil
}

// ResetConfig asks device to restore default, confirmation arrives as singleConfig.
func (s *Session) ResetConfig(key string) error {
	e, err := s.editable(key)
	if e == nil {
		return err
	}
	s.sendGated(protocol.ResetConfig{Key: key})
	return nil
}

// Reload repeats the bulk dump of a ready session.
func (s *Session) Reload() {
	if s.state != StateReady {
		s.log.Debugf("reload ignored state=%s", s.state)
		return
	}
	s.beginDump()
}

// SetVisibleKeys replaces keys refreshed periodically.
func (s *Session) SetVisibleKeys(keys []string) {
	s.visible = append(s.visible[:0], keys...)
}

func (s *Session) VisibleKeys() []string { return append([]string(nil), s.visible...) }

// editable returns nil entry and nil error when the command must be dropped silently.
func (s *Session) editable(key string) (*nvs.Entry, error) {
	if s.blockSend {
		s.log.Debugf("gate held, drop config edit key=%s", key)
		return nil, nil
	}
	if s.conn == nil {
		s.log.Debugf("not connected, drop config edit key=%s", key)
		return nil, nil
	}
	if s.store == nil {
		return nil, errors.NotFoundf("configuration not loaded, key=%s", key)
	}
	e, ok := s.store.Get(key)
	if !ok {
		return nil, errors.NotFoundf("config key=%s", key)
	}
	return &e, nil
}
