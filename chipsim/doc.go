// Package chipsim simulates firmware hub flash parts.
//
// A Chip models the cell array, the command state machine of an Intel 82802AC
// or SST 49LF008A, and the block lock registers, and exposes them as the two
// mmio.Region windows a real part occupies. It counts the commands it receives
// and can be told to fail specific operations, which makes it suitable both
// as a test harness and as an image-file backed stand-in for hardware:
//
//	sim := chipsim.New(chip.FamilySST, 1<<20, 64<<10, chipsim.WithImage(rom))
//	dev, err := fwhub.Open(sim.Mapper(fwhub.DefaultDataPhys, fwhub.DefaultLockPhys))
package chipsim
