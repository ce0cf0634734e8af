package session

import (
	"encoding/json"
	"image"
	"strconv"
	"strings"

	"github.com/bobbycar-graz/bobbyremote/internal/nvs"
	"github.com/bobbycar-graz/bobbyremote/internal/protocol"
	"github.com/juju/errors"
)

// Snapshot is device status of one authenticated session.
type Snapshot struct {
	Name       string
	IP         string
	Resolution image.Point
	Info       *protocol.DeviceInfo
	Ota        *protocol.OtaInfo
	// milliseconds since gateway last heard the device, -1 unknown
	PingMillis int64
	// nil until configuration store is published
	AccessPoint *AccessPoint
}

type AccessPoint struct {
	Enabled  bool
	Hidden   bool
	Name     string
	Key      string
	IP       string
	Channel  int
	AuthMode string
}

func (s *Snapshot) clone() Snapshot {
	c := *s
	if s.Info != nil {
		info := *s.Info
		c.Info = &info
	}
	if s.Ota != nil {
		ota := *s.Ota
		c.Ota = &ota
	}
	if s.AccessPoint != nil {
		ap := *s.AccessPoint
		c.AccessPoint = &ap
	}
	return c
}

func parseResolution(s string) (image.Point, error) {
	parts := strings.SplitN(s, "x", 2)
	if len(parts) != 2 {
		return image.Point{}, errors.NotValidf("resolution=%q", s)
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return image.Point{}, errors.NotValidf("resolution=%q", s)
	}
	return image.Point{X: w, Y: h}, nil
}

func accessPointFromStore(store *nvs.Store) *AccessPoint {
	ap := &AccessPoint{}
	found := false
	str := func(key string) string {
		e, ok := store.Get(key)
		if !ok {
			return ""
		}
		found = true
		if name, ok := e.EnumName(); ok {
			return name
		}
		if e.Value == nil {
			return ""
		}
		return nvs.FormatValue(e.Value)
	}
	ap.Name = str("wifiApName")
	ap.Key = str("wifiApKey")
	ap.IP = str("wifiApIp")
	ap.AuthMode = str("wifiApAuthmode")
	ap.Enabled = truthy(str("wifiApEnabled"))
	ap.Hidden = truthy(str("wifiApHidden"))
	if e, ok := store.Get("wifiApChannel"); ok {
		found = true
		switch v := e.Value.(type) {
		case json.Number:
			if i, err := v.Int64(); err == nil {
				ap.Channel = int(i)
			}
		case int:
			ap.Channel = v
		}
	}
	if !found {
		return nil
	}
	return ap
}

func truthy(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
