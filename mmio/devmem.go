package mmio

import "errors"

// DefaultDevMem is the character device exposing physical memory on Linux.
const DefaultDevMem = "/dev/mem"

var (
	errInvalidSize = errors.New("invalid size")
	errUnsupported = errors.New("physical mapping not supported on this platform")
)

// DevMem maps physical address ranges through a memory device file.
type DevMem struct {
	// Path is the device to map, DefaultDevMem when empty. Any regular file
	// works as well, which is handy for testing.
	Path string
}

func (m DevMem) path() string {
	if m.Path == "" {
		return DefaultDevMem
	}
	return m.Path
}

func (m DevMem) Map(phys uint64, size int) (Region, error) {
	if size <= 0 {
		return nil, &Error{Op: "map", Phys: phys, Size: size, Err: errInvalidSize}
	}
	r, err := mapPhysical(m.path(), phys, size)
	if err != nil {
		return nil, &Error{Op: "map", Phys: phys, Size: size, Err: err}
	}
	return r, nil
}
