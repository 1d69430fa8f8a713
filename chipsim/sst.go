package chipsim

import "github.com/moffa90/go-fwhub/chip"

// sstReset is the software reset (exit) command.
const sstReset = 0xF0

func (c *Chip) sstStore(off int, v byte) {
	if c.programArmed {
		c.programArmed = false
		c.sstProgram(off, v)
		return
	}
	if v == sstReset {
		c.step = 0
		return
	}

	switch {
	case c.step == 0 && off == chip.SSTUnlockAddr1 && v == chip.SSTUnlockData1:
		c.step = 1
	case c.step == 1 && off == chip.SSTUnlockAddr2 && v == chip.SSTUnlockData2:
		c.step = 2
	case c.step == 2 && off == chip.SSTUnlockAddr1 && v == chip.SSTByteProgram:
		c.step = 0
		c.programArmed = true
	case c.step == 2 && off == chip.SSTUnlockAddr1 && v == chip.SSTEraseSetup:
		c.step = 3
	case c.step == 3 && off == chip.SSTUnlockAddr1 && v == chip.SSTUnlockData1:
		c.step = 4
	case c.step == 4 && off == chip.SSTUnlockAddr2 && v == chip.SSTUnlockData2:
		c.step = 5
	case c.step == 5 && v == chip.SSTBlockErase:
		c.step = 0
		c.sstErase(off)
	default:
		c.step = 0
	}
}

// A write-locked block ignores program and erase; the array keeps its data.
func (c *Chip) sstProgram(off int, v byte) {
	c.counters.Programs++
	if c.locked(off) {
		return
	}
	if c.programFaults[off] {
		c.busy = pending{active: true, value: v, polls: -1}
		return
	}
	c.programCell(off, v)
	c.busy = pending{active: true, value: v, polls: c.cfg.programPolls}
}

func (c *Chip) sstErase(off int) {
	c.counters.Erases++
	if c.locked(off) {
		return
	}
	if c.eraseFaults[c.blockOf(off)] {
		c.busy = pending{active: true, erase: true, polls: -1}
		return
	}
	c.eraseBlock(off)
	c.busy = pending{active: true, erase: true, polls: c.cfg.erasePolls}
}

func (c *Chip) sstLoad(off int) byte {
	if c.busy.active {
		if c.busy.polls == 0 {
			c.busy = pending{}
		} else {
			if c.busy.polls > 0 {
				c.busy.polls--
			}
			if c.busy.erase {
				return 0x00
			}
			return c.array[off]&^chip.SSTDataPoll | ^c.busy.value&chip.SSTDataPoll
		}
	}
	return c.array[off]
}
