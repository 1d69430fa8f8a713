package chip

import "github.com/moffa90/go-fwhub/mmio"

var _ Protocol = (*Intel)(nil)

// Intel drives the Intel 82802AC firmware hub.
type Intel struct {
	data   mmio.Region
	timing Timing
}

// NewIntel returns an Intel protocol over the data window.
func NewIntel(data mmio.Region, t Timing) *Intel {
	return &Intel{data: data, timing: t}
}

func (c *Intel) Family() Family { return FamilyIntel }

func (c *Intel) Detect() (ID, bool) {
	c.data.Store(0, CmdReadID)
	id := ID{
		Manufacturer: c.data.Load(0),
		Device:       c.data.Load(1),
	}
	c.data.Store(0, CmdReadArray)

	return id, id.Manufacturer == IntelManufacturerID && id.Device == IntelDeviceID
}

// EraseBlock issues block erase + confirm to addr and sleeps between status
// reads; a block erase takes about 130 ms.
func (c *Intel) EraseBlock(addr int) error {
	c.data.Store(0, CmdClearStatus)
	c.data.Store(addr, CmdBlockErase)
	c.data.Store(addr, CmdEraseConfirm)

	dl := c.timing.start()
	var status byte
	for {
		sleep(c.timing.EraseInterval)
		status = c.readStatus()
		if status&StatusReady != 0 {
			break
		}
		if dl.expired() {
			c.data.Store(0, CmdReadArray)
			return &StatusError{Op: "erase", Block: addr, Offset: addr, Status: status, Err: ErrTimeout}
		}
	}

	c.data.Store(0, CmdReadArray)
	if status&StatusErrorMask != 0 {
		return &StatusError{Op: "erase", Block: addr, Offset: addr, Status: status, Err: ErrEraseFailed}
	}
	return nil
}

// ProgramBlock programs every byte of data that is not ErasedByte. A byte
// program takes a few microseconds, so the status register is polled without
// sleeping. The first failing byte aborts the block.
func (c *Intel) ProgramBlock(addr int, data []byte) error {
	for boffs, b := range data {
		if b == ErasedByte {
			continue
		}
		off := addr + boffs

		c.data.Store(0, CmdClearStatus)
		c.data.Store(off, CmdProgram)
		c.data.Store(off, b)

		dl := c.timing.start()
		var status byte
		for {
			status = c.readStatus()
			if status&StatusReady != 0 {
				break
			}
			if dl.expired() {
				c.data.Store(0, CmdReadArray)
				return &StatusError{Op: "program", Block: addr, Offset: off, Status: status, Err: ErrTimeout}
			}
		}
		if status&StatusErrorMask != 0 {
			c.data.Store(0, CmdReadArray)
			return &StatusError{Op: "program", Block: addr, Offset: off, Status: status, Err: ErrProgramFailed}
		}
	}

	c.data.Store(0, CmdReadArray)
	return nil
}

func (c *Intel) readStatus() byte {
	c.data.Store(0, CmdReadStatus)
	return c.data.Load(0)
}
