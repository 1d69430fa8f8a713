package chipsim

import (
	"errors"
	"io"

	"github.com/moffa90/go-fwhub/chip"
	"github.com/moffa90/go-fwhub/mmio"
)

var (
	_ mmio.Region = (*dataWindow)(nil)
	_ mmio.Region = (*regWindow)(nil)
)

// Data returns the flash array window.
func (c *Chip) Data() mmio.Region { return &dataWindow{c: c} }

// Registers returns the register window holding the block lock registers
// and, on SST parts, the identifier registers.
func (c *Chip) Registers() mmio.Region { return &regWindow{c: c} }

type dataWindow struct {
	c *Chip
}

func (w *dataWindow) Size() int { return len(w.c.array) }

func (w *dataWindow) Load(off int) byte {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	return w.c.load(off)
}

func (w *dataWindow) Store(off int, v byte) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	w.c.counters.Stores++
	switch w.c.family {
	case chip.FamilyIntel:
		w.c.intelStore(off, v)
	case chip.FamilySST:
		w.c.sstStore(off, v)
	}
}

func (w *dataWindow) ReadAt(p []byte, off int64) (int, error) {
	return readAt(w.Size(), w.Load, p, off)
}

func (w *dataWindow) Close() error { return nil }

func (c *Chip) load(off int) byte {
	switch c.family {
	case chip.FamilyIntel:
		return c.intelLoad(off)
	case chip.FamilySST:
		return c.sstLoad(off)
	default:
		return c.array[off]
	}
}

type regWindow struct {
	c *Chip
}

func (w *regWindow) Size() int { return len(w.c.array) }

func (w *regWindow) Load(off int) byte {
	c := w.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.family == chip.FamilySST {
		switch off {
		case chip.SSTIDOffset:
			return chip.SSTManufacturerID
		case chip.SSTIDOffset + 1:
			return chip.SSTDeviceID
		}
	}
	if off%c.blockSize == chip.LockRegisterOffset {
		return c.locks[off/c.blockSize]
	}
	return 0xFF
}

func (w *regWindow) Store(off int, v byte) {
	c := w.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if off%c.blockSize != chip.LockRegisterOffset {
		return
	}
	if v&chip.LockLocked != 0 {
		c.counters.Locks++
	} else {
		c.counters.Unlocks++
	}
	block := off - chip.LockRegisterOffset
	if c.stuckLocks[block] {
		return
	}
	// Write-lock, lock-down and read-lock bits.
	c.locks[off/c.blockSize] = v & 0x07
}

func (w *regWindow) ReadAt(p []byte, off int64) (int, error) {
	return readAt(w.Size(), w.Load, p, off)
}

func (w *regWindow) Close() error { return nil }

func readAt(size int, load func(int) byte, p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(size) {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) && int(off)+n < size {
		p[n] = load(int(off) + n)
		n++
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

var errNoWindow = errors.New("no simulated window at this address")

// Mapper returns an mmio.Mapper that serves the data window at dataPhys and
// the register window at regsPhys.
func (c *Chip) Mapper(dataPhys, regsPhys uint64) mmio.Mapper {
	return &mapper{c: c, dataPhys: dataPhys, regsPhys: regsPhys}
}

type mapper struct {
	c        *Chip
	dataPhys uint64
	regsPhys uint64
}

func (m *mapper) Map(phys uint64, size int) (mmio.Region, error) {
	if size <= 0 || size > m.c.Size() {
		return nil, &mmio.Error{Op: "map", Phys: phys, Size: size, Err: errors.New("size does not match simulated chip")}
	}
	switch phys {
	case m.dataPhys:
		return m.c.Data(), nil
	case m.regsPhys:
		return m.c.Registers(), nil
	}
	return nil, &mmio.Error{Op: "map", Phys: phys, Size: size, Err: errNoWindow}
}
