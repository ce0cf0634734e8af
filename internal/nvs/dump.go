package nvs

// Dump accumulates batches of a bulk configuration transfer.
// Next continuation id is always the number of records received so far.
type Dump struct {
	entries []Entry
	batches int
}

func NewDump() *Dump { return &Dump{} }

// Append normalizes a batch and returns the next continuation id.
func (d *Dump) Append(raws []RawEntry) int {
	d.entries = append(d.entries, NormalizeAll(raws)...)
	d.batches++
	return len(d.entries)
}

func (d *Dump) Len() int     { return len(d.entries) }
func (d *Dump) Batches() int { return d.batches }

// Finish appends the final batch and publishes the buffer.
// Dump must not be used afterwards.
func (d *Dump) Finish(raws []RawEntry) *Store {
	d.Append(raws)
	s := NewStore(d.entries)
	d.entries = nil
	return s
}

// Progress of a dump. Total is -1 until the device announced it.
type Progress struct {
	Received int
	Total    int
}

func (p Progress) Known() bool { return p.Total >= 0 }
