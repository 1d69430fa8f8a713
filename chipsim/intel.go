package chipsim

import "github.com/moffa90/go-fwhub/chip"

func (c *Chip) intelStore(off int, v byte) {
	switch c.mode {
	case modeProgramSetup:
		c.intelProgram(off, v)
		return
	case modeEraseSetup:
		c.intelConfirmErase(off, v)
		return
	}

	switch v {
	case chip.CmdReadArray:
		c.mode = modeReadArray
	case chip.CmdReadID:
		c.counters.IDReads++
		c.mode = modeReadID
	case chip.CmdReadStatus:
		c.mode = modeReadStatus
	case chip.CmdClearStatus:
		c.status &^= chip.StatusErrorMask
	case chip.CmdProgram, 0x10:
		c.mode = modeProgramSetup
	case chip.CmdBlockErase:
		c.eraseAddr = off
		c.mode = modeEraseSetup
	default:
		// Invalid command sequence.
		c.status |= chip.StatusEraseError | chip.StatusProgramError
		c.mode = modeReadStatus
	}
}

func (c *Chip) intelProgram(off int, v byte) {
	c.counters.Programs++
	c.mode = modeReadStatus

	switch {
	case c.locked(off):
		c.status = chip.StatusReady | chip.StatusProgramError | chip.StatusBlockLocked
	case c.programFaults[off]:
		c.status = chip.StatusReady | chip.StatusProgramError
	default:
		c.programCell(off, v)
		c.status = chip.StatusReady
	}
	c.busy = pending{active: true, polls: c.cfg.programPolls}
}

func (c *Chip) intelConfirmErase(off int, v byte) {
	c.mode = modeReadStatus
	if v != chip.CmdEraseConfirm || c.blockOf(off) != c.blockOf(c.eraseAddr) {
		c.status = chip.StatusReady | chip.StatusEraseError | chip.StatusProgramError
		return
	}

	c.counters.Erases++
	switch {
	case c.locked(off):
		c.status = chip.StatusReady | chip.StatusEraseError | chip.StatusBlockLocked
	case c.eraseFaults[c.blockOf(off)]:
		c.status = chip.StatusReady | chip.StatusEraseError
	default:
		c.eraseBlock(off)
		c.status = chip.StatusReady
	}
	c.busy = pending{active: true, erase: true, polls: c.cfg.erasePolls}
}

func (c *Chip) intelLoad(off int) byte {
	switch c.mode {
	case modeReadID:
		if off%2 == 0 {
			return chip.IntelManufacturerID
		}
		return chip.IntelDeviceID
	case modeReadStatus:
		if c.busy.active && c.busy.polls > 0 {
			c.busy.polls--
			return c.status &^ chip.StatusReady
		}
		c.busy = pending{}
		return c.status
	default:
		return c.array[off]
	}
}
