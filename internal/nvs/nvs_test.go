package nvs

import (
	encjson "encoding/json"
	"fmt"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawEntryDecode(t *testing.T) {
	t.Parallel()

	const input = `{"v":3,"d":1,"n":"dpad_debounce","t":true,"T":"uint8_t","f":true,"e":["a","b","c","d"]}`
	var r RawEntry
	require.NoError(t, json.UnmarshalFromString(input, &r))
	e := r.Normalize()
	assert.Equal(t, "dpad_debounce", e.Name)
	assert.Equal(t, encjson.Number("3"), e.Value)
	assert.Equal(t, encjson.Number("1"), e.Default)
	assert.Equal(t, "uint8_t", e.Type)
	assert.True(t, e.Touched)
	assert.True(t, e.ForceUpdate)
	assert.Equal(t, []string{"a", "b", "c", "d"}, e.EnumValues)
	assert.Equal(t, map[string]int{"a": 0, "b": 1, "c": 2, "d": 3}, e.EnumMapping)
	name, ok := e.EnumName()
	assert.True(t, ok)
	assert.Equal(t, "d", name)

	var plain RawEntry
	require.NoError(t, json.UnmarshalFromString(`{"v":"bobby","d":"","n":"hostname","t":false,"T":"std::string"}`, &plain))
	pe := plain.Normalize()
	assert.False(t, pe.ForceUpdate)
	assert.Nil(t, pe.EnumValues)
	assert.Nil(t, pe.EnumMapping)
	assert.False(t, pe.Touched)
	assert.Equal(t, "std::string", pe.Type)
}

func TestEntryKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		typ      string
		kind     Kind
		bits     int
		optional bool
	}{
		{"bool", KindBool, 0, false},
		{"int8_t", KindInt, 8, false},
		{"int16_t", KindInt, 16, false},
		{"uint32_t", KindUint, 32, false},
		{"uint64_t", KindUint, 64, false},
		{"float", KindFloat, 64, false},
		{"double", KindFloat, 64, false},
		{"std::string", KindText, 0, false},
		{"std::optional<int16_t>", KindInt, 16, true},
		{"std::optional<bool>", KindBool, 0, true},
		{"wifi_stack::ip_address_t", KindText, 0, false},
	}
	for _, c := range cases {
		e := Entry{Type: c.typ}
		kind, bits := e.Kind()
		assert.Equal(t, c.kind, kind, c.typ)
		assert.Equal(t, c.bits, bits, c.typ)
		assert.Equal(t, c.optional, e.Optional(), c.typ)
	}
}

func makeBatch(prefix string, n int) []RawEntry {
	rs := make([]RawEntry, n)
	for i := range rs {
		rs[i] = RawEntry{Name: fmt.Sprintf("%s%03d", prefix, i), Type: "int32_t", Value: i, Default: 0}
	}
	return rs
}

func TestDumpBatches(t *testing.T) {
	t.Parallel()

	d := NewDump()
	sizes := []int{7, 13, 1, 0, 20}
	sum := 0
	for i, size := range sizes[:len(sizes)-1] {
		next := d.Append(makeBatch(fmt.Sprintf("b%d_", i), size))
		sum += size
		assert.Equal(t, sum, next, "continuation id is buffer length")
		assert.Equal(t, d.Len(), next)
	}
	last := sizes[len(sizes)-1]
	s := d.Finish(makeBatch("last_", last))
	sum += last
	assert.Equal(t, len(sizes), d.Batches())
	require.Equal(t, sum, s.Len())

	seen := map[string]bool{}
	for _, name := range s.Names() {
		assert.False(t, seen[name], "duplicate name=%s", name)
		seen[name] = true
		e, ok := s.Get(name)
		require.True(t, ok)
		assert.Equal(t, name, e.Name)
	}
	assert.Equal(t, "b0_000", s.Entries()[0].Name)
	assert.Equal(t, "last_019", s.Entries()[sum-1].Name)
}

func TestStoreDuplicateReplaces(t *testing.T) {
	t.Parallel()

	s := NewStore([]Entry{{Name: "a", Value: 1}, {Name: "b", Value: 2}, {Name: "a", Value: 3}})
	assert.Equal(t, 2, s.Len())
	e, _ := s.Get("a")
	assert.Equal(t, 3, e.Value)
	assert.Equal(t, []string{"a", "b"}, s.Names())
}

func TestStoreUpdate(t *testing.T) {
	t.Parallel()

	num := func(s string) interface{} { return encjson.Number(s) }
	base := func() *Store {
		return NewStore([]Entry{
			{Name: "maxPwm", Type: "int16_t", Value: num("800"), Default: num("1000"), Touched: true},
			{Name: "hostname", Type: "std::string", Value: "bobby", Default: "bobby"},
		})
	}

	t.Run("reset-confirmation", func(t *testing.T) {
		s := base()
		r := s.Update(Entry{Name: "maxPwm", Value: num("1000"), Default: num("1000"), Touched: false})
		assert.Equal(t, UpdateResult{Known: true, ValueChanged: true}, r)
		e, _ := s.Get("maxPwm")
		assert.False(t, e.Touched)
		assert.Equal(t, e.Default, e.Value)
		assert.Equal(t, "int16_t", e.Type)
		assert.Equal(t, e, s.Entries()[0], "sequence and index agree")
	})

	t.Run("unchanged", func(t *testing.T) {
		s := base()
		r := s.Update(Entry{Name: "hostname", Value: "bobby", Default: "bobby", Touched: true})
		assert.Equal(t, UpdateResult{Known: true}, r)
		e, _ := s.Get("hostname")
		assert.True(t, e.Touched)
	})

	t.Run("unknown-ignored", func(t *testing.T) {
		s := base()
		r := s.Update(Entry{Name: "ghost", Value: 1})
		assert.Equal(t, UpdateResult{}, r)
		assert.Equal(t, 2, s.Len())
		_, ok := s.Get("ghost")
		assert.False(t, ok)
	})

	t.Run("unknown-forced", func(t *testing.T) {
		s := base()
		r := s.Update(Entry{Name: "ghost", Value: 1, ForceUpdate: true})
		assert.Equal(t, UpdateResult{Known: true, Added: true, ValueChanged: true}, r)
		assert.Equal(t, 3, s.Len())
		assert.Equal(t, "ghost", s.Entries()[2].Name)
	})

	t.Run("forced-same-value", func(t *testing.T) {
		s := base()
		r := s.Update(Entry{Name: "hostname", Value: "bobby", Default: "bobby", ForceUpdate: true})
		assert.True(t, r.ValueChanged)
	})
}

func TestExportJSON(t *testing.T) {
	t.Parallel()

	s := NewStore([]Entry{{Name: "z", Value: encjson.Number("1")}, {Name: "a", Value: nil}, {Name: "m", Value: "x"}})
	b, err := s.ExportJSON()
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": null,\n  \"m\": \"x\",\n  \"z\": 1\n}", string(b))
}

func TestParseInput(t *testing.T) {
	t.Parallel()

	enum := RawEntry{Name: "mode", Type: "DrivingMode", Enum: []string{"Default", "Tempomat", "Larsm"}}.Normalize()
	cases := []struct {
		name   string
		entry  Entry
		input  string
		expect interface{}
		err    bool
	}{
		{"bool/true", Entry{Type: "bool"}, "true", "true", false},
		{"bool/1", Entry{Type: "bool"}, "1", "true", false},
		{"bool/bad", Entry{Type: "bool"}, "yes", nil, true},
		{"int/ok", Entry{Type: "int16_t"}, " -42 ", "-42", false},
		{"int/overflow", Entry{Type: "int8_t"}, "300", nil, true},
		{"int/float", Entry{Type: "int32_t"}, "1.5", nil, true},
		{"uint/negative", Entry{Type: "uint16_t"}, "-1", nil, true},
		{"uint/ok", Entry{Type: "uint32_t"}, "4000000000", "4000000000", false},
		{"float/ok", Entry{Type: "float"}, "1.50", "1.5", false},
		{"float/bad", Entry{Type: "float"}, "abc", nil, true},
		{"optional/null", Entry{Type: "std::optional<int16_t>"}, "null", nil, false},
		{"optional/value", Entry{Type: "std::optional<int16_t>"}, "12", "12", false},
		{"not-optional/null", Entry{Type: "int16_t"}, "null", nil, true},
		{"enum/name", enum, "Tempomat", 1, false},
		{"enum/index", enum, "2", 2, false},
		{"enum/out-of-range", enum, "3", nil, true},
		{"enum/unknown", enum, "Fast", nil, true},
		{"text/json-string", Entry{Type: "std::string"}, `"bobby car"`, "bobby car", false},
		{"text/bare", Entry{Type: "std::string"}, "bobby", "bobby", false},
		{"text/empty", Entry{Type: "std::string"}, "", "", false},
		{"text/number-literal", Entry{Type: "std::string"}, "42", encjson.Number("42"), false},
		{"text/quoted-number", Entry{Type: "std::string"}, `"42"`, "42", false},
		{"text/broken-json", Entry{Type: "std::string"}, `"unterminated`, nil, true},
		{"text/broken-object", Entry{Type: "std::string"}, `{"a":`, nil, true},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			c.entry.Name = "k"
			v, err := ParseInput(&c.entry, c.input)
			if c.err {
				require.Error(t, err)
				assert.True(t, errors.IsNotValid(err), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.expect, v)
		})
	}
}

func TestFormatValue(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "null", FormatValue(nil))
	assert.Equal(t, "''", FormatValue(""))
	assert.Equal(t, "42", FormatValue(encjson.Number("42")))
	assert.Equal(t, "true", FormatValue(true))
}
