package mmio

import "io"

var _ Region = (*Memory)(nil)

// Memory is a heap-backed Region. It behaves like plain RAM: stores land
// directly in the backing slice.
type Memory struct {
	data []byte
}

// NewMemory returns a zero-filled Memory of size bytes.
func NewMemory(size int) *Memory {
	return &Memory{data: make([]byte, size)}
}

// NewMemoryFrom wraps buf without copying it.
func NewMemoryFrom(buf []byte) *Memory {
	return &Memory{data: buf}
}

func (m *Memory) Size() int { return len(m.data) }

func (m *Memory) Load(off int) byte { return m.data[off] }

func (m *Memory) Store(off int, v byte) { m.data[off] = v }

func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Bytes returns the backing slice.
func (m *Memory) Bytes() []byte { return m.data }

func (m *Memory) Close() error { return nil }

// MemoryMapper hands out fresh Memory regions for any physical range.
type MemoryMapper struct{}

func (MemoryMapper) Map(phys uint64, size int) (Region, error) {
	if size <= 0 {
		return nil, &Error{Op: "map", Phys: phys, Size: size, Err: errInvalidSize}
	}
	return NewMemory(size), nil
}
