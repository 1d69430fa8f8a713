//go:build linux

package mmio

import (
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// mapping is a window onto physical memory obtained with mmap(2).
type mapping struct {
	mem  []byte // whole page-aligned mapping
	base int    // offset of the requested address inside mem
	size int
	phys uint64
}

func mapPhysical(path string, phys uint64, size int) (*mapping, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// The mapping keeps its own reference to the file.
	defer unix.Close(fd)

	pageSize := uint64(unix.Getpagesize())
	pageOff := phys % pageSize
	mem, err := unix.Mmap(fd, int64(phys-pageOff), size+int(pageOff),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return &mapping{mem: mem, base: int(pageOff), size: size, phys: phys}, nil
}

func (m *mapping) Size() int { return m.size }

// Load and Store must stay out of line so that every call performs exactly
// one access to the device; a poll loop relies on seeing fresh values.

//go:noinline
func (m *mapping) Load(off int) byte {
	if off < 0 || off >= m.size {
		panic(fmt.Sprintf("mmio: load at 0x%X outside window of 0x%X bytes", off, m.size))
	}
	return m.mem[m.base+off]
}

//go:noinline
func (m *mapping) Store(off int, v byte) {
	if off < 0 || off >= m.size {
		panic(fmt.Sprintf("mmio: store at 0x%X outside window of 0x%X bytes", off, m.size))
	}
	m.mem[m.base+off] = v
}

func (m *mapping) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(m.size) {
		return 0, io.EOF
	}
	n := copy(p, m.mem[m.base+int(off):m.base+m.size])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *mapping) Close() error {
	if m.mem == nil {
		return nil
	}
	err := unix.Munmap(m.mem)
	m.mem = nil
	if err != nil {
		return &Error{Op: "unmap", Phys: m.phys, Size: m.size, Err: err}
	}
	return nil
}
