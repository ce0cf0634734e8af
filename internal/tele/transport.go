package tele

import (
	"context"

	"github.com/bobbycar-graz/bobbyremote/log2"
)

// Tele transport contract:
// - Init fails only with invalid config, ignores network errors
// - Send delivers within network timeout or fails, success includes broker ack
// - application may start without network available
type Transporter interface {
	Init(ctx context.Context, log *log2.Log, c Config, t Topics) error
	Send(topic string, payload []byte) bool
	Close()
}

type Topics struct {
	Device   string
	Connect  string
	State    string
	Livedata string
	Info     string
}

func NewTopics(prefix, deviceID string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	base := prefix + "/" + deviceID + "/"
	return Topics{
		Device:   deviceID,
		Connect:  base + "c",
		State:    base + "state",
		Livedata: base + "livedata",
		Info:     base + "info",
	}
}
