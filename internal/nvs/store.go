package nvs

// Store is the published configuration: ordered entries plus name index.
// Index holds positions into the slice so both views share every write.
// Not safe for concurrent use, owned by session dispatcher.
type Store struct {
	entries []Entry
	index   map[string]int
}

// NewStore keeps arrival order. A repeated name replaces the earlier entry in place.
func NewStore(entries []Entry) *Store {
	s := &Store{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if i, ok := s.index[e.Name]; ok {
			s.entries[i] = e
			continue
		}
		s.add(e)
	}
	return s
}

func (s *Store) Len() int { return len(s.entries) }

func (s *Store) Get(name string) (Entry, bool) {
	i, ok := s.index[name]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Entries returns a copy in arrival order.
func (s *Store) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

func (s *Store) Names() []string {
	ns := make([]string, len(s.entries))
	for i := range s.entries {
		ns[i] = s.entries[i].Name
	}
	return ns
}

type UpdateResult struct {
	Known        bool
	Added        bool
	ValueChanged bool
}

// Update applies a singleConfig confirmation.
// Unknown names are ignored unless ForceUpdate is set, then appended.
// Touched and default always follow the device; value changes only
// when it differs or ForceUpdate is set.
func (s *Store) Update(u Entry) UpdateResult {
	i, ok := s.index[u.Name]
	if !ok {
		if !u.ForceUpdate {
			return UpdateResult{}
		}
		s.add(u)
		return UpdateResult{Known: true, Added: true, ValueChanged: true}
	}
	e := &s.entries[i]
	e.Touched = u.Touched
	e.Default = u.Default
	if u.Type != "" {
		e.Type = u.Type
	}
	if u.EnumValues != nil {
		e.EnumValues = u.EnumValues
		e.EnumMapping = u.EnumMapping
	}
	r := UpdateResult{Known: true}
	if u.ForceUpdate || !valuesEqual(e.Value, u.Value) {
		e.Value = u.Value
		r.ValueChanged = true
	}
	return r
}

// Export returns name -> value of all entries.
func (s *Store) Export() map[string]interface{} {
	m := make(map[string]interface{}, len(s.entries))
	for _, e := range s.entries {
		m[e.Name] = e.Value
	}
	return m
}

// ExportJSON is Export encoded as indented JSON with sorted keys.
func (s *Store) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(s.Export(), "", "  ")
}

func (s *Store) add(e Entry) {
	s.index[e.Name] = len(s.entries)
	s.entries = append(s.entries, e)
}
