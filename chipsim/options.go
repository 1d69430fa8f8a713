package chipsim

import "github.com/moffa90/go-fwhub/chip"

type config struct {
	image        []byte
	erasePolls   int
	programPolls int
	initialLock  byte
}

func defaultConfig() config {
	return config{
		erasePolls:   2,
		programPolls: 1,
		initialLock:  chip.LockLocked,
	}
}

// Option configures a simulated Chip.
type Option func(*config)

// WithImage preloads the array. Bytes past len(image) stay erased.
func WithImage(image []byte) Option {
	return func(c *config) {
		c.image = image
	}
}

// WithBusyPolls sets how many completion polls read busy before an erase or
// a byte program finishes.
func WithBusyPolls(erase, program int) Option {
	return func(c *config) {
		if erase >= 0 {
			c.erasePolls = erase
		}
		if program >= 0 {
			c.programPolls = program
		}
	}
}

// WithUnlockedBlocks starts every block with its write-lock cleared.
func WithUnlockedBlocks() Option {
	return func(c *config) {
		c.initialLock = chip.LockUnlocked
	}
}
