package fwhub

import "time"

// Progress phases.
const (
	PhaseErasing     = "erasing"
	PhaseProgramming = "programming"
	PhaseVerifying   = "verifying"
	PhaseComplete    = "complete"
)

// Progress contains information about the write progress.
// Passed to ProgressCallback during block writes.
type Progress struct {
	// Phase describes the current operation phase:
	//   "erasing"     - Erasing the current block
	//   "programming" - Programming the current block
	//   "verifying"   - Reading the current block back
	//   "complete"    - All blocks written and verified
	Phase string

	// Block is the address of the current block
	Block int

	// CurrentBlock is the index of the current block within the write (0-based)
	CurrentBlock int

	// TotalBlocks is the number of blocks in the write
	TotalBlocks int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// BytesWritten is the number of bytes written and verified so far
	BytesWritten int

	// ElapsedTime is the time elapsed since the write started
	ElapsedTime time.Duration
}

// ProgressCallback is called during writes to report progress. The device
// is held for the duration of the call, so implementations should return
// quickly.
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the device.
// This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	dev, err := fwhub.Open(mapper, fwhub.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
