package protocol

// Request is any message sent to the device.
type Request interface {
	Type() string
}

type LoginRequest struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// GetConfig asks for the next dump batch starting at ID.
type GetConfig struct {
	ID int `json:"id"`
}

// SetConfig Value is the coerced operator input, see nvs.ParseInput.
type SetConfig struct {
	Key   string      `json:"nvskey"`
	Value interface{} `json:"value"`
}

type ResetConfig struct {
	Key string `json:"nvskey"`
}

type GetSingleConfig struct {
	Key string `json:"nvskey"`
}

type GetInformation struct{}
type GetUptime struct{}
type GetOtaStatus struct{}
type InitScreen struct{}

type ButtonPressed struct {
	Button int `json:"btn"`
}

type RawButtonPressed struct {
	Button int `json:"btn"`
}

type Popup struct {
	Message string `json:"msg"`
}

func (LoginRequest) Type() string     { return "login" }
func (GetConfig) Type() string        { return "getConfig" }
func (SetConfig) Type() string        { return "setConfig" }
func (ResetConfig) Type() string      { return "resetConfig" }
func (GetSingleConfig) Type() string  { return "getSingleConfig" }
func (GetInformation) Type() string   { return "getInformation" }
func (GetUptime) Type() string        { return "getUptime" }
func (GetOtaStatus) Type() string     { return "getOtaStatus" }
func (InitScreen) Type() string       { return "initScreen" }
func (ButtonPressed) Type() string    { return "btnPressed" }
func (RawButtonPressed) Type() string { return "rawBtnPrssd" }
func (Popup) Type() string            { return "popup" }
