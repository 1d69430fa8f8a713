package chip

import "github.com/moffa90/go-fwhub/mmio"

var _ Protocol = (*SST)(nil)

// SST drives the SST 49LF008A firmware hub. The part has no status register:
// completion is read from bit 7 of the data being erased or programmed.
type SST struct {
	data   mmio.Region
	regs   mmio.Region
	timing Timing
}

// NewSST returns an SST protocol over the data window and the register
// window holding its identifier registers.
func NewSST(data, regs mmio.Region, t Timing) *SST {
	return &SST{data: data, regs: regs, timing: t}
}

func (c *SST) Family() Family { return FamilySST }

// Detect reads the identifier registers. They live in the register window,
// so the array never leaves read mode.
func (c *SST) Detect() (ID, bool) {
	if c.regs.Size() < SSTIDOffset+2 {
		return ID{}, false
	}
	id := ID{
		Manufacturer: c.regs.Load(SSTIDOffset),
		Device:       c.regs.Load(SSTIDOffset + 1),
	}
	return id, id.Manufacturer == SSTManufacturerID && id.Device == SSTDeviceID
}

// EraseBlock issues the six cycle block erase sequence. Bit 7 of the block
// reads 0 until the erase is done. An erase failure is not reported by the
// part; it can only surface as ErrTimeout.
func (c *SST) EraseBlock(addr int) error {
	c.unlock()
	c.data.Store(SSTUnlockAddr1, SSTEraseSetup)
	c.unlock()
	c.data.Store(addr, SSTBlockErase)

	dl := c.timing.start()
	for {
		v := c.data.Load(addr)
		if v&SSTDataPoll != 0 {
			return nil
		}
		if dl.expired() {
			return &StatusError{Op: "erase", Block: addr, Offset: addr, Status: v, Err: ErrTimeout}
		}
		sleep(c.timing.SSTEraseInterval)
	}
}

// ProgramBlock programs every byte of data that is not ErasedByte. While a
// byte is programming, bit 7 reads as the complement of the value written.
func (c *SST) ProgramBlock(addr int, data []byte) error {
	for boffs, b := range data {
		if b == ErasedByte {
			continue
		}
		off := addr + boffs

		c.unlock()
		c.data.Store(SSTUnlockAddr1, SSTByteProgram)
		c.data.Store(off, b)

		dl := c.timing.start()
		for {
			v := c.data.Load(off)
			if v&SSTDataPoll == b&SSTDataPoll {
				break
			}
			if dl.expired() {
				return &StatusError{Op: "program", Block: addr, Offset: off, Status: v, Err: ErrTimeout}
			}
		}
	}
	return nil
}

func (c *SST) unlock() {
	c.data.Store(SSTUnlockAddr1, SSTUnlockData1)
	c.data.Store(SSTUnlockAddr2, SSTUnlockData2)
}
