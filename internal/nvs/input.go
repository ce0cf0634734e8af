package nvs

import (
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// ParseInput converts operator text into the value carried by setConfig.
// Booleans and numbers travel as their JSON literal text ("true", "42"),
// enum members as their index, null for optional entries.
// Text entries take a JSON value, bare text is accepted as a string
// unless it starts like a JSON string, object or array.
// So text input 42 or true goes out as JSON number or bool, "42" as string.
func ParseInput(e *Entry, input string) (interface{}, error) {
	s := strings.TrimSpace(input)
	if e.Optional() && s == "null" {
		return nil, nil
	}

	kind, bits := e.Kind()
	switch kind {
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, errors.NotValidf("key=%s bool input=%q", e.Name, input)
		}
		return strconv.FormatBool(b), nil

	case KindInt:
		i, err := strconv.ParseInt(s, 10, bits)
		if err != nil {
			return nil, errors.NotValidf("key=%s %s input=%q", e.Name, e.Type, input)
		}
		return strconv.FormatInt(i, 10), nil

	case KindUint:
		u, err := strconv.ParseUint(s, 10, bits)
		if err != nil {
			return nil, errors.NotValidf("key=%s %s input=%q", e.Name, e.Type, input)
		}
		return strconv.FormatUint(u, 10), nil

	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.NotValidf("key=%s %s input=%q", e.Name, e.Type, input)
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil

	case KindEnum:
		if i, ok := e.EnumMapping[s]; ok {
			return i, nil
		}
		if i, err := strconv.Atoi(s); err == nil && i >= 0 && i < len(e.EnumValues) {
			return i, nil
		}
		return nil, errors.NotValidf("key=%s enum input=%q, expected one of %s",
			e.Name, input, strings.Join(e.EnumValues, ","))
	}

	var v interface{}
	if err := json.UnmarshalFromString(s, &v); err == nil {
		return v, nil
	}
	if s != "" && strings.ContainsRune(`"{[`, rune(s[0])) {
		return nil, errors.NotValidf("key=%s JSON input=%q", e.Name, input)
	}
	return input, nil
}
