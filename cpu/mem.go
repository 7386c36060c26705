package cpu

const (
	pageBits = 12
	pageSize = 1 << pageBits
)

// Memory is the byte-addressable space, allocated in pages on first
// write. Any address may be read, written, or fetched from; untouched
// addresses read as zero.
type Memory struct {
	pages map[uint32]*[pageSize]byte
}

func (m *Memory) page(addr uint32, create bool) *[pageSize]byte {
	index := addr >> pageBits
	pg, ok := m.pages[index]
	if !ok && create {
		if m.pages == nil {
			m.pages = map[uint32]*[pageSize]byte{}
		}
		pg = &[pageSize]byte{}
		m.pages[index] = pg
	}
	return pg
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint32) byte {
	pg := m.page(addr, false)
	if pg == nil {
		return 0
	}
	return pg[addr&(pageSize-1)]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint32, value byte) {
	m.page(addr, true)[addr&(pageSize-1)] = value
}

// Read32 reads a little-endian word; the access may cross pages.
func (m *Memory) Read32(addr uint32) (value uint32) {
	for n := uint32(0); n < 4; n++ {
		value |= uint32(m.Read8(addr+n)) << (8 * n)
	}
	return
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint32, value uint32) {
	for n := uint32(0); n < 4; n++ {
		m.Write8(addr+n, byte(value>>(8*n)))
	}
}

// Reset drops all pages.
func (m *Memory) Reset() {
	m.pages = nil
}
