package protocol

import (
	"github.com/bobbycar-graz/bobbyremote/display"
	"github.com/bobbycar-graz/bobbyremote/internal/nvs"
)

// Frame is one decoded inbound message.
// Dispatch calls the Handler method of the concrete variant,
// so every Handler implementation covers the whole vocabulary.
type Frame interface {
	Type() string
	Dispatch(h Handler) error
}

type Handler interface {
	OnLogin(*Login) error
	OnLoginError(*LoginError) error
	OnError(*Error) error
	OnDisconnect(*Disconnect) error
	OnConfigBatch(*ConfigBatch) error
	OnConfigComplete(*ConfigComplete) error
	OnConfigCount(*ConfigCount) error
	OnSingleConfig(*SingleConfig) error
	OnInfo(*Info) error
	OnUptime(*Uptime) error
	OnOtaStatus(*OtaStatus) error
	OnScreenCtrl(*ScreenCtrl) error
	OnLivedata(*Livedata) error
	OnPing(*Ping) error
	OnUnknown(*Unknown) error
}

var inbound = map[string]func() Frame{
	"login":         func() Frame { return new(Login) },
	"loginError":    func() Frame { return new(LoginError) },
	"error":         func() Frame { return new(Error) },
	"disconnect":    func() Frame { return new(Disconnect) },
	"config":        func() Frame { return new(ConfigBatch) },
	"lastConfig":    func() Frame { return new(ConfigComplete) },
	"configCount":   func() Frame { return new(ConfigCount) },
	"singleConfig":  func() Frame { return new(SingleConfig) },
	"info":          func() Frame { return new(Info) },
	"uptime":        func() Frame { return new(Uptime) },
	"otaStatus":     func() Frame { return new(OtaStatus) },
	"screenCtrl":    func() Frame { return new(ScreenCtrl) },
	"udpmessage":    func() Frame { return new(Livedata) },
	"bobbycar-ping": func() Frame { return new(Ping) },
}

// Login is authentication success.
type Login struct {
	Name string `json:"name"`
	IP   string `json:"ip"`
	// "WxH"
	Res string `json:"res"`
}

type LoginError struct {
	Message string `json:"error"`
}

// Error is a protocol level error reported by gateway or device.
type Error struct {
	Message string `json:"error"`
}

// Disconnect means the device went away, transport stays open.
type Disconnect struct{}

type ConfigBatch struct {
	Configs []nvs.RawEntry `json:"configs"`
}

type ConfigComplete struct {
	Configs []nvs.RawEntry `json:"configs"`
}

type ConfigCount struct {
	Count int `json:"count"`
}

type SingleConfig struct {
	Config nvs.RawEntry `json:"config"`
}

type Info struct {
	Info DeviceInfo `json:"info"`
}

// Uptime in microseconds.
type Uptime struct {
	Micros int64 `json:"info"`
}

type OtaStatus struct {
	Info OtaInfo `json:"info"`
}

type ScreenCtrl struct {
	Data []display.Primitive `json:"data"`
}

// Livedata is a flat telemetry push, "udpmessage" on the wire.
type Livedata struct {
	Data map[string]interface{} `json:"data"`
}

// Ping carries milliseconds since the device was last heard by the gateway.
type Ping struct {
	Millis int64 `json:"time"`
}

type Unknown struct {
	Kind string
	Raw  []byte
}

type DeviceInfo struct {
	// microseconds
	Uptime     int64    `json:"uptime"`
	Percentage *float64 `json:"percentage"`
	Voltage    *float64 `json:"voltage"`
	Current    *float64 `json:"current"`
	TempFront  *float64 `json:"tempFront"`
	TempBack   *float64 `json:"tempBack"`
	Display    struct {
		Name string `json:"name"`
	} `json:"display"`
	Git struct {
		Branch string `json:"branch"`
		Commit string `json:"commit"`
	} `json:"git"`
	Wifi WifiInfo `json:"wifi"`
}

type WifiInfo struct {
	IP      string `json:"ip"`
	Mask    string `json:"mask"`
	Gateway string `json:"gw"`
	SSID    string `json:"ssid"`
	BSSID   string `json:"bssid"`
	Channel int    `json:"channel"`
	RSSI    int    `json:"rssi"`
}

type OtaInfo struct {
	Progress  int64  `json:"progress"`
	TotalSize int64  `json:"totalSize"`
	Status    string `json:"status"`
}

// Percent is progress of total, -1 when total is unknown.
func (o OtaInfo) Percent() float64 {
	if o.TotalSize <= 0 {
		return -1
	}
	return 100 * float64(o.Progress) / float64(o.TotalSize)
}

func (*Login) Type() string          { return "login" }
func (*LoginError) Type() string     { return "loginError" }
func (*Error) Type() string          { return "error" }
func (*Disconnect) Type() string     { return "disconnect" }
func (*ConfigBatch) Type() string    { return "config" }
func (*ConfigComplete) Type() string { return "lastConfig" }
func (*ConfigCount) Type() string    { return "configCount" }
func (*SingleConfig) Type() string   { return "singleConfig" }
func (*Info) Type() string           { return "info" }
func (*Uptime) Type() string         { return "uptime" }
func (*OtaStatus) Type() string      { return "otaStatus" }
func (*ScreenCtrl) Type() string     { return "screenCtrl" }
func (*Livedata) Type() string       { return "udpmessage" }
func (*Ping) Type() string           { return "bobbycar-ping" }
func (self *Unknown) Type() string   { return self.Kind }

func (self *Login) Dispatch(h Handler) error          { return h.OnLogin(self) }
func (self *LoginError) Dispatch(h Handler) error     { return h.OnLoginError(self) }
func (self *Error) Dispatch(h Handler) error          { return h.OnError(self) }
func (self *Disconnect) Dispatch(h Handler) error     { return h.OnDisconnect(self) }
func (self *ConfigBatch) Dispatch(h Handler) error    { return h.OnConfigBatch(self) }
func (self *ConfigComplete) Dispatch(h Handler) error { return h.OnConfigComplete(self) }
func (self *ConfigCount) Dispatch(h Handler) error    { return h.OnConfigCount(self) }
func (self *SingleConfig) Dispatch(h Handler) error   { return h.OnSingleConfig(self) }
func (self *Info) Dispatch(h Handler) error           { return h.OnInfo(self) }
func (self *Uptime) Dispatch(h Handler) error         { return h.OnUptime(self) }
func (self *OtaStatus) Dispatch(h Handler) error      { return h.OnOtaStatus(self) }
func (self *ScreenCtrl) Dispatch(h Handler) error     { return h.OnScreenCtrl(self) }
func (self *Livedata) Dispatch(h Handler) error       { return h.OnLivedata(self) }
func (self *Ping) Dispatch(h Handler) error           { return h.OnPing(self) }
func (self *Unknown) Dispatch(h Handler) error        { return h.OnUnknown(self) }
