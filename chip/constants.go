package chip

// Identifier codes of the supported parts.
const (
	// IntelManufacturerID is reported by the Intel 82802AC in read-identifier mode
	IntelManufacturerID = 0x89

	// IntelDeviceID identifies the 8 Mbit 82802AC
	IntelDeviceID = 0xAC

	// SSTManufacturerID is reported by the SST 49LF008A identifier registers
	SSTManufacturerID = 0xBF

	// SSTDeviceID identifies the 8 Mbit 49LF008A
	SSTDeviceID = 0x5A
)

// Intel 82802 command codes. Commands are written to offset 0 of the data
// window unless they take an address, in which case they go to that address.
const (
	// CmdReadArray returns the chip to normal read mode
	CmdReadArray = 0xFF

	// CmdReadID switches reads to the identifier codes (offset 0 = manufacturer, 1 = device)
	CmdReadID = 0x90

	// CmdReadStatus switches reads to the status register
	CmdReadStatus = 0x70

	// CmdClearStatus clears the error bits of the status register
	CmdClearStatus = 0x50

	// CmdBlockErase starts a block erase; must be followed by CmdEraseConfirm
	CmdBlockErase = 0x20

	// CmdEraseConfirm confirms a block erase at the same block address
	CmdEraseConfirm = 0xD0

	// CmdProgram arms a single byte program; the next write carries the data
	CmdProgram = 0x40
)

// Intel status register bits.
const (
	// StatusReady (SR.7) is set when the write state machine is idle
	StatusReady = 1 << 7

	// StatusEraseSuspended (SR.6) is set while an erase is suspended
	StatusEraseSuspended = 1 << 6

	// StatusEraseError (SR.5) reports a failed erase
	StatusEraseError = 1 << 5

	// StatusProgramError (SR.4) reports a failed program
	StatusProgramError = 1 << 4

	// StatusVppLow (SR.3) reports the programming voltage was out of range
	StatusVppLow = 1 << 3

	// StatusProgramSuspended (SR.2) is set while a program is suspended
	StatusProgramSuspended = 1 << 2

	// StatusBlockLocked (SR.1) reports an operation was attempted on a locked block
	StatusBlockLocked = 1 << 1

	// StatusErrorMask covers every bit that must be clear after a successful operation
	StatusErrorMask = 0x7F
)

// SST 49LF008A software command sequence.
const (
	SSTUnlockAddr1 = 0x5555
	SSTUnlockAddr2 = 0x2AAA

	SSTUnlockData1 = 0xAA
	SSTUnlockData2 = 0x55

	// SSTEraseSetup precedes the second unlock cycle of an erase
	SSTEraseSetup = 0x80

	// SSTBlockErase is written to the block address to start the erase
	SSTBlockErase = 0x50

	// SSTByteProgram arms a byte program; the next write carries the data
	SSTByteProgram = 0xA0

	// SSTIDOffset locates the identifier registers inside the register window
	SSTIDOffset = 0xC0000

	// SSTDataPoll is the data bit that reports completion
	SSTDataPoll = 1 << 7
)

// Firmware hub block lock registers live in the register window at the
// block address plus LockRegisterOffset.
const (
	LockRegisterOffset = 2

	// LockUnlocked clears the write-lock bit
	LockUnlocked = 0x00

	// LockLocked sets the write-lock bit
	LockLocked = 0x01
)

// ErasedByte is the value of every cell after an erase. Programming only
// clears bits, so writing it is a no-op.
const ErasedByte = 0xFF
