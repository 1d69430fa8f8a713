package chip

import "time"

// Timing controls how completion of erase and program operations is polled.
type Timing struct {
	// EraseInterval is the sleep between Intel erase status reads (~130 ms erase)
	EraseInterval time.Duration

	// SSTEraseInterval is the sleep between SST erase data polls
	SSTEraseInterval time.Duration

	// PollTimeout bounds every completion poll. Zero polls forever, which is
	// how the chips are specified; a stuck chip then hangs the caller.
	PollTimeout time.Duration
}

// DefaultTiming returns the intervals the parts are specified for and a
// 10 second poll bound.
func DefaultTiming() Timing {
	return Timing{
		EraseInterval:    150 * time.Millisecond,
		SSTEraseInterval: 5 * time.Millisecond,
		PollTimeout:      10 * time.Second,
	}
}

// deadline tracks the poll bound of a single operation.
type deadline struct {
	at time.Time
}

func (t Timing) start() deadline {
	if t.PollTimeout <= 0 {
		return deadline{}
	}
	return deadline{at: time.Now().Add(t.PollTimeout)}
}

func (d deadline) expired() bool {
	return !d.at.IsZero() && time.Now().After(d.at)
}

func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
