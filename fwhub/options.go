package fwhub

import (
	"time"

	"github.com/moffa90/go-fwhub/chip"
)

// Physical layout of an 8 Mbit firmware hub decoded at the top of the 4 GiB
// address space.
const (
	// DefaultDataPhys is the physical address of the flash array window
	DefaultDataPhys = 0xFFF00000

	// DefaultLockPhys is the physical address of the register window
	DefaultLockPhys = 0xFFB00000

	// DefaultSize is the size of the flash array
	DefaultSize = 1 << 20

	// DefaultBlockSize is the erase block size
	DefaultBlockSize = 64 << 10
)

// Config holds the device configuration.
type Config struct {
	// ProgressCallback is called during writes to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// DataPhys and LockPhys are the physical addresses Open maps
	DataPhys uint64
	LockPhys uint64

	// Size is the size of the flash array and of each mapped window
	Size int

	// BlockSize is the erase block size; Size must be a multiple of it
	BlockSize int

	// Timing controls erase and program completion polling
	Timing chip.Timing
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		DataPhys:  DefaultDataPhys,
		LockPhys:  DefaultLockPhys,
		Size:      DefaultSize,
		BlockSize: DefaultBlockSize,
		Timing:    chip.DefaultTiming(),
	}
}

// Option is a functional option for configuring the Device.
type Option func(*Config)

// WithProgressCallback sets a callback function to track write progress.
//
// Example:
//
//	dev, err := fwhub.Open(mapper,
//	    fwhub.WithProgressCallback(func(p fwhub.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for device operations.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithWindows sets the physical addresses of the data and register windows.
//
// Example:
//
//	dev, err := fwhub.Open(mmio.DevMem{}, fwhub.WithWindows(0xFFF80000, 0xFFB80000))
func WithWindows(dataPhys, lockPhys uint64) Option {
	return func(c *Config) {
		c.DataPhys = dataPhys
		c.LockPhys = lockPhys
	}
}

// WithSize sets the flash array size.
func WithSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.Size = size
		}
	}
}

// WithBlockSize sets the erase block size.
func WithBlockSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.BlockSize = size
		}
	}
}

// WithTiming replaces the poll timing.
func WithTiming(t chip.Timing) Option {
	return func(c *Config) {
		c.Timing = t
	}
}

// WithPollTimeout bounds erase and program completion polls. Zero polls
// until the chip answers.
//
// Example:
//
//	dev, err := fwhub.Open(mapper, fwhub.WithPollTimeout(30*time.Second))
func WithPollTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.Timing.PollTimeout = timeout
		}
	}
}
