package types

import "strings"

// Record is one row of a tabular stream: an ordered sequence of string
// fields indexed by global column position.
type Record []string

// Len returns the number of fields in the record.
func (r Record) Len() int {
	return len(r)
}

// Get returns the field at the global index.
func (r Record) Get(index int) (string, bool) {
	if index < 0 || index >= len(r) {
		return "", false
	}
	return r[index], true
}

// Clone returns a copy of the record whose fields share no memory with the
// receiver's backing buffers.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for i, f := range r {
		out[i] = strings.Clone(f)
	}
	return out
}

// Slice extracts the fields covered by rng into a freshly allocated slice.
// Each field is cloned so the result stays valid after the stream reuses
// its read buffer. Fields missing from a short record are returned empty,
// keeping the result length equal to rng.Len().
func (r Record) Slice(rng Range) []string {
	out := make([]string, rng.Len())
	for i := range out {
		if g := rng.lower + i; g < len(r) {
			out[i] = strings.Clone(r[g])
		}
	}
	return out
}
