package proc

import "fmt"

// MemoryReader is the interface through which the resolver reads the
// debuggee's memory.
type MemoryReader interface {
	// ReadMemory reads up to len(buf) bytes starting at addr. Partial
	// reads are allowed: when the tail of the range is unmapped it
	// returns the number of bytes that could be read with a nil
	// error. It returns n == 0 and a non-nil error when not even the
	// first byte is readable.
	ReadMemory(buf []byte, addr uint64) (n int, err error)

	// Peek reports whether at least one byte at addr is readable.
	Peek(addr uint64) bool
}

type memRegion struct {
	addr uint64
	data []byte
}

// RegionMemory is a MemoryReader backed by in-memory regions. Reads
// crossing the end of a region are truncated, addresses outside any
// region are unreadable.
type RegionMemory struct {
	regions []memRegion
}

// AddRegion maps data at addr.
func (m *RegionMemory) AddRegion(addr uint64, data []byte) {
	m.regions = append(m.regions, memRegion{addr: addr, data: data})
}

func (m *RegionMemory) find(addr uint64) *memRegion {
	for i := range m.regions {
		r := &m.regions[i]
		if addr >= r.addr && addr < r.addr+uint64(len(r.data)) {
			return r
		}
	}
	return nil
}

// ReadMemory reads up to len(buf) bytes at addr from the containing
// region, truncating at the region's end.
func (m *RegionMemory) ReadMemory(buf []byte, addr uint64) (int, error) {
	r := m.find(addr)
	if r == nil {
		return 0, fmt.Errorf("could not read memory at %#x", addr)
	}
	n := copy(buf, r.data[addr-r.addr:])
	return n, nil
}

// Peek reports whether addr falls inside a mapped region.
func (m *RegionMemory) Peek(addr uint64) bool {
	return m.find(addr) != nil
}
