package mmio

import (
	"errors"
	"fmt"
)

// Region is a contiguous byte-addressable window.
type Region interface {
	// Size returns the window length in bytes.
	Size() int

	// Load reads the byte at off.
	Load(off int) byte

	// Store writes v to the byte at off.
	Store(off int, v byte)

	// ReadAt copies bytes starting at off into p.
	ReadAt(p []byte, off int64) (int, error)

	// Close releases the window. The Region must not be used afterwards.
	Close() error
}

// Mapper establishes Regions over physical address ranges.
type Mapper interface {
	Map(phys uint64, size int) (Region, error)
}

// ErrMapFailed is wrapped by every error returned from a Mapper in this package.
var ErrMapFailed = errors.New("mmio: map failed")

// Error describes a failed mapping operation.
type Error struct {
	Op   string
	Phys uint64
	Size int
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mmio: %s 0x%08X+0x%X: %v", e.Op, e.Phys, e.Size, e.Err)
	}
	return fmt.Sprintf("mmio: %s 0x%08X+0x%X", e.Op, e.Phys, e.Size)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports map failures as ErrMapFailed.
func (e *Error) Is(target error) bool {
	return target == ErrMapFailed && e.Op == "map"
}
