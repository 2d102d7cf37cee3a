package archive

import "io"

// Memory is an artifact held in memory.
type Memory struct {
	ID      string
	Entries []Entry
	// Err, when set, is returned by Next after the entries are exhausted
	// instead of io.EOF.
	Err error
}

// Name returns the artifact identity.
func (m *Memory) Name() string {
	return m.ID
}

// Open starts a pass over the entries.
func (m *Memory) Open() (EntryReader, error) {
	return &memoryReader{m: m}, nil
}

type memoryReader struct {
	m   *Memory
	pos int
}

func (r *memoryReader) Next() (*Entry, error) {
	if r.pos >= len(r.m.Entries) {
		if r.m.Err != nil {
			return nil, r.m.Err
		}
		return nil, io.EOF
	}
	e := r.m.Entries[r.pos]
	r.pos++
	return &e, nil
}

func (r *memoryReader) Close() error {
	return nil
}
