// Package protocol is the JSON wire vocabulary spoken with a device
// through the relay gateway. Every message is an object with "type" discriminator.
package protocol

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/juju/errors"
)

var json = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
	CaseSensitive:          true,
}.Froze()

type envelope struct {
	Type string `json:"type"`
}

// Decode parses one inbound message into its frame variant.
// Types missing from the registry decode to *Unknown.
func Decode(b []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, errors.Annotate(err, "protocol envelope")
	}
	if env.Type == "" {
		return nil, errors.NotValidf("message without type")
	}
	newFrame, ok := inbound[env.Type]
	if !ok {
		return &Unknown{Kind: env.Type, Raw: append([]byte(nil), b...)}, nil
	}
	f := newFrame()
	if err := json.Unmarshal(b, f); err != nil {
		return nil, errors.Annotatef(err, "protocol type=%s", env.Type)
	}
	return f, nil
}

// Encode produces {"type":...} followed by request fields.
func Encode(r Request) ([]byte, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Annotatef(err, "protocol encode type=%s", r.Type())
	}
	typ, err := json.Marshal(r.Type())
	if err != nil {
		return nil, errors.Annotatef(err, "protocol encode type=%s", r.Type())
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, errors.Errorf("code error protocol request type=%s must encode as object", r.Type())
	}
	buf := make([]byte, 0, len(body)+len(typ)+9)
	buf = append(buf, `{"type":`...)
	buf = append(buf, typ...)
	if len(body) > 2 {
		buf = append(buf, ',')
		buf = append(buf, body[1:]...)
	} else {
		buf = append(buf, '}')
	}
	return buf, nil
}
