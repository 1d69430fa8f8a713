package fwhub

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-fwhub/chip"
	"github.com/moffa90/go-fwhub/mmio"
)

var (
	// ErrBusy is returned by OpenSession while another session is open.
	ErrBusy = errors.New("device busy: a session is already open")

	// ErrInterrupted is returned when the context ends while waiting for the device.
	ErrInterrupted = errors.New("interrupted while waiting for device")

	// ErrOutOfMemory reports a failed buffer allocation.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrMisaligned is returned for writes that do not start on a block boundary.
	ErrMisaligned = errors.New("offset is not block aligned")

	// ErrOutOfRange is returned for writes that extend past the end of the device.
	ErrOutOfRange = errors.New("write exceeds device size")

	// ErrVerifyFailed is wrapped by VerifyError.
	ErrVerifyFailed = errors.New("verify failed")

	// ErrCopyFault is wrapped by CopyError.
	ErrCopyFault = errors.New("copy fault")

	// ErrSessionClosed is returned by operations on a released session.
	ErrSessionClosed = errors.New("session released")

	// ErrDeviceClosed is returned by operations on a closed device.
	ErrDeviceClosed = errors.New("device closed")
)

// Errors raised below this package, re-exported so callers need only fwhub.
var (
	ErrNoSupportedChip = chip.ErrNoSupportedChip
	ErrLockIO          = chip.ErrLockIO
	ErrEraseFailed     = chip.ErrEraseFailed
	ErrProgramFailed   = chip.ErrProgramFailed
	ErrTimeout         = chip.ErrTimeout
	ErrMapFailed       = mmio.ErrMapFailed
)

// ErrorKind classifies device errors.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindBusy
	KindInterrupted
	KindOutOfMemory
	KindNoSupportedChip
	KindMisaligned
	KindOutOfRange
	KindLockIO
	KindEraseFailed
	KindProgramFailed
	KindVerifyFailed
	KindCopyFault
	KindMapFailed
	KindTimeout
	KindOther
)

var kindNames = map[ErrorKind]string{
	KindNone:            "none",
	KindBusy:            "busy",
	KindInterrupted:     "interrupted",
	KindOutOfMemory:     "out of memory",
	KindNoSupportedChip: "no supported chip",
	KindMisaligned:      "misaligned",
	KindOutOfRange:      "out of range",
	KindLockIO:          "lock i/o error",
	KindEraseFailed:     "erase failed",
	KindProgramFailed:   "program failed",
	KindVerifyFailed:    "verify failed",
	KindCopyFault:       "copy fault",
	KindMapFailed:       "map failed",
	KindTimeout:         "timeout",
	KindOther:           "other",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// kindOrder is checked first to last. CopyFault and Interrupted come first
// because they wrap the error that caused them.
var kindOrder = []struct {
	kind ErrorKind
	err  error
}{
	{KindCopyFault, ErrCopyFault},
	{KindInterrupted, ErrInterrupted},
	{KindBusy, ErrBusy},
	{KindOutOfMemory, ErrOutOfMemory},
	{KindNoSupportedChip, ErrNoSupportedChip},
	{KindMisaligned, ErrMisaligned},
	{KindOutOfRange, ErrOutOfRange},
	{KindLockIO, ErrLockIO},
	{KindTimeout, ErrTimeout},
	{KindEraseFailed, ErrEraseFailed},
	{KindProgramFailed, ErrProgramFailed},
	{KindVerifyFailed, ErrVerifyFailed},
	{KindMapFailed, ErrMapFailed},
}

// KindOf returns the kind of err. It returns KindNone for a nil error and
// KindOther for errors that did not come from a device operation.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindOther
}

// VerifyError indicates that a block did not read back as written.
type VerifyError struct {
	// Block is the address of the block being verified
	Block int

	// Offset is the address of the first mismatching byte
	Offset int

	Want byte
	Got  byte
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("%v: block 0x%08X: byte 0x%08X reads 0x%02X, expected 0x%02X",
		ErrVerifyFailed, e.Block, e.Offset, e.Got, e.Want)
}

func (e *VerifyError) Unwrap() error {
	return ErrVerifyFailed
}

// CopyError indicates that data could not be moved between the caller and
// the device. The chip is not touched for the block being copied.
type CopyError struct {
	// Op is "copy in" or "copy out"
	Op string

	// Offset is the device address of the block being copied
	Offset int64

	Err error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("%v: %s at 0x%08X: %v", ErrCopyFault, e.Op, e.Offset, e.Err)
}

// Unwrap exposes both ErrCopyFault and the underlying error.
func (e *CopyError) Unwrap() []error {
	return []error{ErrCopyFault, e.Err}
}
