package chip

import (
	"fmt"

	"github.com/moffa90/go-fwhub/mmio"
)

// Family identifies a supported chip family.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyIntel
	FamilySST
)

func (f Family) String() string {
	switch f {
	case FamilyIntel:
		return "Intel 82802AC"
	case FamilySST:
		return "SST 49LF008A"
	default:
		return "unknown"
	}
}

// ID is the identifier pair read from a chip.
type ID struct {
	Manufacturer byte
	Device       byte
}

func (id ID) String() string {
	return fmt.Sprintf("mfr=0x%02X dev=0x%02X", id.Manufacturer, id.Device)
}

// Protocol is the command set of one chip family.
type Protocol interface {
	// Family returns the chip family this protocol drives.
	Family() Family

	// Detect reads the identifier codes and reports whether they match this
	// family. The chip is left in read-array mode either way.
	Detect() (ID, bool)

	// EraseBlock erases the block at the block-aligned address addr.
	EraseBlock(addr int) error

	// ProgramBlock programs data into the erased block at addr.
	ProgramBlock(addr int, data []byte) error
}

// Detect probes data and regs (the register window holding lock registers
// and, on SST parts, the identifier registers) for a supported chip. SST is
// tried first because probing it issues no commands.
func Detect(data, regs mmio.Region, t Timing) (Protocol, ID, error) {
	candidates := []Protocol{
		NewSST(data, regs, t),
		NewIntel(data, t),
	}

	var id ID
	for _, p := range candidates {
		var ok bool
		if id, ok = p.Detect(); ok {
			return p, id, nil
		}
	}
	return nil, id, fmt.Errorf("%w (last read %v)", ErrNoSupportedChip, id)
}
