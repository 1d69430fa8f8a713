package fwhub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-fwhub/chip"
	"github.com/moffa90/go-fwhub/chipsim"
	"github.com/moffa90/go-fwhub/mmio"
)

const (
	testSize  = DefaultSize
	testBlock = DefaultBlockSize
)

var testTiming = chip.Timing{PollTimeout: time.Second}

// newTestDevice opens a Device over a simulated chip of the given family.
func newTestDevice(t *testing.T, family chip.Family, opts ...Option) (*Device, *chipsim.Chip) {
	t.Helper()
	sim := chipsim.New(family, testSize, testBlock)
	opts = append([]Option{WithTiming(testTiming)}, opts...)

	d, err := Open(sim.Mapper(DefaultDataPhys, DefaultLockPhys), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	sim.ResetCounters()
	return d, sim
}

func openSession(t *testing.T, d *Device) *Session {
	t.Helper()
	s, err := d.OpenSession(testContext(t))
	require.NoError(t, err)
	return s
}

// pattern returns n bytes that are never 0xFF.
func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

// MockLogger records log messages.
type MockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (l *MockLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugMsgs = append(l.debugMsgs, msg)
}

func (l *MockLogger) Info(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoMsgs = append(l.infoMsgs, msg)
}

func (l *MockLogger) Error(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorMsgs = append(l.errorMsgs, msg)
}

// trackingMapper records which regions it handed out and which were closed.
type trackingMapper struct {
	next    mmio.Mapper
	failAt  uint64
	regions []*trackedRegion
}

type trackedRegion struct {
	mmio.Region
	closed bool
}

func (r *trackedRegion) Close() error {
	r.closed = true
	return r.Region.Close()
}

var errNoBus = errors.New("no bus")

func (m *trackingMapper) Map(phys uint64, size int) (mmio.Region, error) {
	if m.failAt != 0 && phys == m.failAt {
		return nil, errNoBus
	}
	r, err := m.next.Map(phys, size)
	if err != nil {
		return nil, err
	}
	tr := &trackedRegion{Region: r}
	m.regions = append(m.regions, tr)
	return tr, nil
}

// testContext returns a context that is cancelled when the test finishes,
// standing in for testing.T.Context on toolchains older than Go 1.24.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
