// Package livedata mirrors the flat telemetry pushes of a device
// as a table of rows, one per key.
package livedata

import "sort"

type Row struct {
	Key   string
	Label string
	Value interface{}
}

// Mirror keeps rows in order of first observation.
// Rows are never removed, a new session starts with a new Mirror.
type Mirror struct {
	rows  []Row
	index map[string]int
}

func New() *Mirror {
	return &Mirror{index: make(map[string]int)}
}

// Update applies one push. Keys are applied in sorted order.
// Returns keys seen for the first time.
func (m *Mirror) Update(data map[string]interface{}) (created []string) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if i, ok := m.index[k]; ok {
			m.rows[i].Value = data[k]
			m.rows[i].Label = Label(k)
			continue
		}
		m.index[k] = len(m.rows)
		m.rows = append(m.rows, Row{Key: k, Label: Label(k), Value: data[k]})
		created = append(created, k)
	}
	return created
}

func (m *Mirror) Len() int { return len(m.rows) }

func (m *Mirror) Get(key string) (Row, bool) {
	i, ok := m.index[key]
	if !ok {
		return Row{}, false
	}
	return m.rows[i], true
}

func (m *Mirror) Rows() []Row { return append([]Row(nil), m.rows...) }

// Values is a copy of current key -> value.
func (m *Mirror) Values() map[string]interface{} {
	vs := make(map[string]interface{}, len(m.rows))
	for _, r := range m.rows {
		vs[r.Key] = r.Value
	}
	return vs
}
