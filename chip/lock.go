package chip

import "github.com/moffa90/go-fwhub/mmio"

// LockController sets and clears the write-lock bit of firmware hub blocks.
// The register layout is common to both supported families.
type LockController struct {
	regs mmio.Region
}

// NewLockController returns a LockController over the register window.
func NewLockController(regs mmio.Region) *LockController {
	return &LockController{regs: regs}
}

// Unlock clears the write-lock of the block at addr.
func (l *LockController) Unlock(addr int) error {
	return l.set(addr, LockUnlocked)
}

// Lock sets the write-lock of the block at addr.
func (l *LockController) Lock(addr int) error {
	return l.set(addr, LockLocked)
}

// Locked reports whether the write-lock bit of the block at addr is set.
func (l *LockController) Locked(addr int) bool {
	return l.regs.Load(addr+LockRegisterOffset)&LockLocked != 0
}

// set writes v and reads it back; a mismatch is a LockError.
func (l *LockController) set(addr int, v byte) error {
	reg := addr + LockRegisterOffset
	l.regs.Store(reg, v)
	if got := l.regs.Load(reg); got != v {
		return &LockError{Block: addr, Want: v, Got: got}
	}
	return nil
}
