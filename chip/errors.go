package chip

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSupportedChip is returned by Detect when neither family answers.
	ErrNoSupportedChip = errors.New("no supported firmware hub detected")

	// ErrEraseFailed reports error bits in the status register after an erase.
	ErrEraseFailed = errors.New("erase failed")

	// ErrProgramFailed reports error bits in the status register after a program.
	ErrProgramFailed = errors.New("program failed")

	// ErrLockIO reports a lock register that did not take the written value.
	ErrLockIO = errors.New("lock register mismatch")

	// ErrTimeout reports a completion poll that ran past Timing.PollTimeout.
	ErrTimeout = errors.New("timed out waiting for chip")
)

// StatusError is returned when an erase or program does not complete cleanly.
// It wraps ErrEraseFailed, ErrProgramFailed or ErrTimeout.
type StatusError struct {
	// Op is "erase" or "program"
	Op string

	// Block is the block address the operation targeted
	Block int

	// Offset is the failing byte address (equal to Block for erase)
	Offset int

	// Status is the last status (Intel) or data (SST) byte read from the chip
	Status byte

	Err error
}

func (e *StatusError) Error() string {
	if errors.Is(e.Err, ErrTimeout) {
		return fmt.Sprintf("%s at 0x%08X: %v (last read 0x%02X)", e.Op, e.Offset, e.Err, e.Status)
	}
	return fmt.Sprintf("%s at 0x%08X: %v: status 0x%02X (%s)",
		e.Op, e.Offset, e.Err, e.Status, describeStatus(e.Status))
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// LockError is returned when a lock register reads back a different value
// than the one written.
type LockError struct {
	Block int
	Want  byte
	Got   byte
}

func (e *LockError) Error() string {
	return fmt.Sprintf("%v at block 0x%08X: wrote 0x%02X, read 0x%02X", ErrLockIO, e.Block, e.Want, e.Got)
}

func (e *LockError) Unwrap() error {
	return ErrLockIO
}

// describeStatus returns the names of the error bits set in an Intel status byte.
func describeStatus(status byte) string {
	var names []string
	if status&StatusEraseSuspended != 0 {
		names = append(names, "erase suspended")
	}
	if status&StatusEraseError != 0 {
		names = append(names, "erase error")
	}
	if status&StatusProgramError != 0 {
		names = append(names, "program error")
	}
	if status&StatusVppLow != 0 {
		names = append(names, "Vpp low")
	}
	if status&StatusProgramSuspended != 0 {
		names = append(names, "program suspended")
	}
	if status&StatusBlockLocked != 0 {
		names = append(names, "block locked")
	}
	if status&0x01 != 0 {
		names = append(names, "reserved bit 0")
	}
	if len(names) == 0 {
		return "no error bits"
	}
	return strings.Join(names, ", ")
}
