// Package nvs models the device configuration store as it is mirrored
// on the operator side: entries, the bulk dump buffer and operator input coercion.
package nvs

import (
	encjson "encoding/json"
	"fmt"
	"reflect"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Decoding is case sensitive: raw records use both "t" (touched) and "T" (type).
var json = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
	CaseSensitive:          true,
}.Froze()

// RawEntry is the wire form of one configuration record.
type RawEntry struct {
	Value       interface{} `json:"v"`
	Default     interface{} `json:"d"`
	Name        string      `json:"n"`
	Touched     bool        `json:"t"`
	Type        string      `json:"T"`
	ForceUpdate bool        `json:"f,omitempty"`
	Enum        []string    `json:"e,omitempty"`
}

type Entry struct {
	Name        string
	Value       interface{}
	Default     interface{}
	Type        string
	Touched     bool
	ForceUpdate bool
	EnumValues  []string
	// member name -> index, nil unless EnumValues present
	EnumMapping map[string]int
}

func (r RawEntry) Normalize() Entry {
	e := Entry{
		Name:        r.Name,
		Value:       r.Value,
		Default:     r.Default,
		Type:        r.Type,
		Touched:     r.Touched,
		ForceUpdate: r.ForceUpdate,
	}
	if r.Enum != nil {
		e.EnumValues = append([]string(nil), r.Enum...)
		e.EnumMapping = make(map[string]int, len(r.Enum))
		for i, name := range r.Enum {
			e.EnumMapping[name] = i
		}
	}
	return e
}

func NormalizeAll(raws []RawEntry) []Entry {
	es := make([]Entry, len(raws))
	for i, r := range raws {
		es[i] = r.Normalize()
	}
	return es
}

type Kind uint8

const (
	KindText Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindEnum:
		return "enum"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

const optionalPrefix = "std::optional<"

// Optional reports whether entry accepts null.
func (e *Entry) Optional() bool { return strings.HasPrefix(e.Type, optionalPrefix) }

// Kind maps C++ type tag to input kind.
// Integer bit size is returned for KindInt/KindUint, default 64.
func (e *Entry) Kind() (Kind, int) {
	if e.EnumValues != nil {
		return KindEnum, 0
	}
	t := e.Type
	if e.Optional() {
		t = strings.TrimSuffix(strings.TrimPrefix(t, optionalPrefix), ">")
	}
	t = strings.TrimPrefix(t, "std::")
	switch {
	case strings.HasPrefix(t, "bool"):
		return KindBool, 0
	case strings.HasPrefix(t, "uint"):
		return KindUint, bitSize(t[len("uint"):])
	case strings.HasPrefix(t, "int"):
		return KindInt, bitSize(t[len("int"):])
	case t == "float" || t == "double":
		return KindFloat, 64
	}
	return KindText, 0
}

func bitSize(suffix string) int {
	for _, n := range []string{"8", "16", "32", "64"} {
		if strings.HasPrefix(suffix, n) {
			switch n {
			case "8":
				return 8
			case "16":
				return 16
			case "32":
				return 32
			}
		}
	}
	return 64
}

// EnumName returns member name for current value, if any.
func (e *Entry) EnumName() (string, bool) {
	if e.EnumValues == nil {
		return "", false
	}
	i, ok := toIndex(e.Value)
	if !ok || i < 0 || i >= len(e.EnumValues) {
		return "", false
	}
	return e.EnumValues[i], true
}

// FormatValue renders a value for humans: nil as null, empty string as ''.
func FormatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		if x == "" {
			return "''"
		}
		return x
	}
	return fmt.Sprint(v)
}

func valuesEqual(a, b interface{}) bool { return reflect.DeepEqual(a, b) }

func toIndex(v interface{}) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		if x == float64(int(x)) {
			return int(x), true
		}
	case encjson.Number:
		if i, err := x.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}
