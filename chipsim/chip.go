package chipsim

import (
	"sync"

	"github.com/moffa90/go-fwhub/chip"
)

// Counters records the operations a Chip has performed.
type Counters struct {
	// Stores is the number of writes to the data window
	Stores int

	// Programs is the number of byte program operations started
	Programs int

	// Erases is the number of block erase operations started
	Erases int

	// Locks and Unlocks count lock register writes setting or clearing the write-lock
	Locks   int
	Unlocks int

	// IDReads is the number of read-identifier commands
	IDReads int
}

type intelMode int

const (
	modeReadArray intelMode = iota
	modeReadID
	modeReadStatus
	modeProgramSetup
	modeEraseSetup
)

// pending is an erase or program that is still reporting busy.
type pending struct {
	active bool
	erase  bool
	value  byte
	polls  int // busy reads left; negative never completes
}

// Chip is a simulated firmware hub. It is safe for concurrent use.
type Chip struct {
	mu        sync.Mutex
	family    chip.Family
	blockSize int
	array     []byte
	locks     []byte
	cfg       config

	// Intel state machine
	mode      intelMode
	status    byte
	eraseAddr int

	// SST state machine
	step         int
	programArmed bool

	busy     pending
	counters Counters

	eraseFaults   map[int]bool
	programFaults map[int]bool
	corrupt       map[int]byte
	stuckLocks    map[int]bool
}

// New returns a simulated chip of the given family. The array starts erased
// and every block starts write-locked, as the parts do at power-on.
// A family other than Intel or SST behaves like an unprogrammed bus: stores
// are ignored and no identifier matches.
func New(family chip.Family, size, blockSize int, opts ...Option) *Chip {
	if size <= 0 || blockSize <= 0 || size%blockSize != 0 {
		panic("chipsim: size must be a positive multiple of blockSize")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Chip{
		family:        family,
		blockSize:     blockSize,
		array:         make([]byte, size),
		locks:         make([]byte, size/blockSize),
		cfg:           cfg,
		status:        chip.StatusReady,
		eraseFaults:   make(map[int]bool),
		programFaults: make(map[int]bool),
		corrupt:       make(map[int]byte),
		stuckLocks:    make(map[int]bool),
	}
	for i := range c.array {
		c.array[i] = chip.ErasedByte
	}
	copy(c.array, cfg.image)
	for i := range c.locks {
		c.locks[i] = cfg.initialLock
	}
	return c
}

// Family returns the simulated chip family.
func (c *Chip) Family() chip.Family { return c.family }

// Size returns the array size in bytes.
func (c *Chip) Size() int { return len(c.array) }

// Image returns a copy of the cell array.
func (c *Chip) Image() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.array))
	copy(out, c.array)
	return out
}

// Locked reports whether the write-lock of the block at addr is set.
func (c *Chip) Locked(addr int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locked(addr)
}

// Counters returns a snapshot of the operation counters.
func (c *Chip) Counters() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters
}

// ResetCounters zeroes the operation counters.
func (c *Chip) ResetCounters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = Counters{}
}

// FailErase makes erases of the block at addr fail. Intel parts report an
// erase error; SST parts never complete.
func (c *Chip) FailErase(addr int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eraseFaults[c.blockOf(addr)] = true
}

// FailProgram makes programming the byte at off fail. Intel parts report a
// program error; SST parts never complete.
func (c *Chip) FailProgram(off int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programFaults[off] = true
}

// CorruptProgram silently clears the mask bits whenever the byte at off is
// programmed.
func (c *Chip) CorruptProgram(off int, mask byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.corrupt[off] = mask
}

// StickLock makes the lock register of the block at addr ignore writes.
func (c *Chip) StickLock(addr int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stuckLocks[c.blockOf(addr)] = true
}

func (c *Chip) blockOf(addr int) int {
	return addr - addr%c.blockSize
}

func (c *Chip) locked(addr int) bool {
	return c.locks[addr/c.blockSize]&chip.LockLocked != 0
}

func (c *Chip) eraseBlock(addr int) {
	base := c.blockOf(addr)
	for i := base; i < base+c.blockSize; i++ {
		c.array[i] = chip.ErasedByte
	}
}

func (c *Chip) programCell(off int, v byte) {
	c.array[off] &= v &^ c.corrupt[off]
}
