package tele

import (
	"encoding/json"
	"fmt"

	"github.com/bobbycar-graz/bobbyremote/internal/livedata"
	"github.com/bobbycar-graz/bobbyremote/internal/session"
	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
)

func toStruct(m map[string]interface{}) *structpb.Struct {
	s := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(m))}
	for k, v := range m {
		s.Fields[k] = toValue(v)
	}
	return s
}

func toValue(v interface{}) *structpb.Value {
	switch x := v.(type) {
	case nil:
		return &structpb.Value{Kind: &structpb.Value_NullValue{}}
	case bool:
		return &structpb.Value{Kind: &structpb.Value_BoolValue{BoolValue: x}}
	case string:
		return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: x}}
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return number(f)
		}
		return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: x.String()}}
	case float64:
		return number(x)
	case float32:
		return number(float64(x))
	case int:
		return number(float64(x))
	case int64:
		return number(float64(x))
	case uint32:
		return number(float64(x))
	case map[string]interface{}:
		return &structpb.Value{Kind: &structpb.Value_StructValue{StructValue: toStruct(x)}}
	case []interface{}:
		list := &structpb.ListValue{Values: make([]*structpb.Value, len(x))}
		for i, item := range x {
			list.Values[i] = toValue(item)
		}
		return &structpb.Value{Kind: &structpb.Value_ListValue{ListValue: list}}
	}
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: fmt.Sprint(v)}}
}

func number(f float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: f}}
}

// encodeWire renders queued record for the broker.
func encodeWire(format string, s *structpb.Struct) ([]byte, error) {
	if format == FormatProto {
		return proto.Marshal(s)
	}
	m := jsonpb.Marshaler{OrigName: true}
	str, err := m.MarshalToString(s)
	return []byte(str), err
}

func rowsData(rows []livedata.Row) map[string]interface{} {
	m := make(map[string]interface{}, len(rows))
	for _, r := range rows {
		m[r.Key] = r.Value
	}
	return m
}

func snapshotData(snap session.Snapshot) map[string]interface{} {
	m := map[string]interface{}{
		"name":   snap.Name,
		"ip":     snap.IP,
		"screen": fmt.Sprintf("%dx%d", snap.Resolution.X, snap.Resolution.Y),
	}
	if snap.PingMillis >= 0 {
		m["ping_ms"] = snap.PingMillis
	}
	if info := snap.Info; info != nil {
		m["uptime_us"] = info.Uptime
		optional := map[string]*float64{
			"percentage": info.Percentage,
			"voltage":    info.Voltage,
			"current":    info.Current,
			"temp_front": info.TempFront,
			"temp_back":  info.TempBack,
		}
		for k, p := range optional {
			if p != nil {
				m[k] = *p
			}
		}
		if info.Git.Commit != "" {
			m["git"] = info.Git.Branch + "@" + info.Git.Commit
		}
		if info.Wifi.SSID != "" {
			m["wifi_ssid"] = info.Wifi.SSID
			m["wifi_rssi"] = info.Wifi.RSSI
		}
	}
	if ota := snap.Ota; ota != nil {
		m["ota_status"] = ota.Status
		m["ota_percent"] = ota.Percent()
	}
	return m
}
