//go:build !linux

package mmio

func mapPhysical(path string, phys uint64, size int) (Region, error) {
	return nil, errUnsupported
}
