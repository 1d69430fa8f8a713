package fwhub

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-fwhub/chip"
	"github.com/moffa90/go-fwhub/chipsim"
)

func TestOpenSessionBusy(t *testing.T) {
	d, _ := newTestDevice(t, chip.FamilySST)

	s, err := d.OpenSession(testContext(t))
	require.NoError(t, err)

	_, err = d.OpenSession(testContext(t))
	require.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, KindBusy, KindOf(err))

	require.NoError(t, s.Release())

	s2, err := d.OpenSession(testContext(t))
	require.NoError(t, err)
	assert.NotSame(t, s, s2)
}

func TestReleaseTwice(t *testing.T) {
	d, _ := newTestDevice(t, chip.FamilySST)
	s := openSession(t, d)

	require.NoError(t, s.Release())
	require.NoError(t, s.Close())
	assert.Zero(t, d.users)

	// A stale handle must not free the next session.
	s2 := openSession(t, d)
	require.NoError(t, s.Release())
	assert.Equal(t, 1, d.users)
	assert.Same(t, s2, d.active)

	_, err := d.OpenSession(testContext(t))
	assert.ErrorIs(t, err, ErrBusy)
}

func TestReleaseClampsAtZero(t *testing.T) {
	d, _ := newTestDevice(t, chip.FamilySST)

	d.releaseLocked(nil)
	d.releaseLocked(nil)
	assert.Zero(t, d.users)

	openSession(t, d)
	assert.Equal(t, 1, d.users)
}

func TestReleasedSessionRejectsOperations(t *testing.T) {
	d, sim := newTestDevice(t, chip.FamilySST)
	s := openSession(t, d)
	require.NoError(t, s.Release())

	_, err := s.ReadAt(testContext(t), make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrSessionClosed)

	_, err = s.WriteAt(testContext(t), pattern(testBlock), 0)
	assert.ErrorIs(t, err, ErrSessionClosed)

	_, err = s.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrSessionClosed)

	assert.Zero(t, sim.Counters().Stores)
}

func TestWaitInterrupted(t *testing.T) {
	d, _ := newTestDevice(t, chip.FamilySST)
	s := openSession(t, d)

	// Hold the device as a long write would.
	require.NoError(t, d.gate.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(testContext(t), 20*time.Millisecond)
	defer cancel()

	_, err := s.ReadAt(ctx, make([]byte, 1), 0)
	require.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, KindInterrupted, KindOf(err))

	ctx2, cancel2 := context.WithTimeout(testContext(t), 20*time.Millisecond)
	defer cancel2()
	_, err = d.OpenSession(ctx2)
	assert.ErrorIs(t, err, ErrInterrupted)

	d.gate.Release(1)

	// The abandoned waits left nothing held.
	_, err = s.ReadAt(testContext(t), make([]byte, 1), 0)
	assert.NoError(t, err)
}

func TestWaitCompletesAfterRelease(t *testing.T) {
	d, _ := newTestDevice(t, chip.FamilySST)
	s := openSession(t, d)

	require.NoError(t, d.gate.Acquire(context.Background(), 1))

	done := make(chan error, 1)
	go func() {
		_, err := s.WriteAt(context.Background(), pattern(testBlock), 0)
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("write finished while the device was held: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	d.gate.Release(1)
	require.NoError(t, <-done)
}

func TestReadWriteSeek(t *testing.T) {
	d, sim := newTestDevice(t, chip.FamilyIntel)
	s := openSession(t, d)

	first := pattern(100)
	n, err := s.Write(first)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Zero(t, sim.Counters().Erases, "partial block is held")

	pos, err := s.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(100), pos)

	// Seek wrote the held bytes out padded with 0xFF.
	img := sim.Image()
	assert.Equal(t, first, img[:100])
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, testBlock-100), img[100:testBlock])

	_, err = s.Seek(testBlock, io.SeekStart)
	require.NoError(t, err)
	second := bytes.Repeat([]byte{0x5A}, testBlock)
	n, err = s.Write(second)
	require.NoError(t, err)
	assert.Equal(t, testBlock, n)
	assert.Equal(t, second, sim.Image()[testBlock:2*testBlock])

	_, err = s.Seek(0, io.SeekStart)
	require.NoError(t, err)
	got := make([]byte, 100)
	_, err = io.ReadFull(s, got)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	pos, err = s.Seek(-4, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(testSize-4), pos)

	tail, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Len(t, tail, 4)

	_, err = s.Seek(-1, io.SeekStart)
	assert.Error(t, err)
	_, err = s.Seek(0, 42)
	assert.Error(t, err)
}

func TestCopyIntoSession(t *testing.T) {
	d, sim := newTestDevice(t, chip.FamilySST)
	s := openSession(t, d)

	// io.Copy hands Write 32 KiB at a time, half a block.
	data := pattern(2 * testBlock)
	src := &io.LimitedReader{R: bytes.NewReader(data), N: int64(len(data))}
	n, err := io.Copy(s, src)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	require.NoError(t, s.Release())

	img := sim.Image()
	assert.Equal(t, []byte{0x8A, 0x8B, 0x8C, 0x8D}, img[32<<10:32<<10+4])
	assert.Equal(t, []byte{0x19, 0x1A, 0x1B, 0x1C}, img[64<<10:64<<10+4])
	assert.Equal(t, data, img[:len(data)])
	assert.Equal(t, 2, sim.Counters().Erases)
}

func TestWriteHeldTailFlushedOnRelease(t *testing.T) {
	tests := []struct {
		name    string
		release func(*Device, *Session) error
	}{
		{"release", func(_ *Device, s *Session) error { return s.Release() }},
		{"flush", func(_ *Device, s *Session) error { return s.Flush(context.Background()) }},
		{"device close", func(d *Device, _ *Session) error { return d.Close() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, sim := newTestDevice(t, chip.FamilyIntel)
			s := openSession(t, d)

			data := pattern(testBlock + 300)
			for _, chunk := range [][]byte{data[:1000], data[1000 : testBlock+10], data[testBlock+10:]} {
				_, err := s.Write(chunk)
				require.NoError(t, err)
			}
			assert.Equal(t, 1, sim.Counters().Erases)

			require.NoError(t, tt.release(d, s))

			img := sim.Image()
			assert.Equal(t, data, img[:len(data)])
			assert.Equal(t, bytes.Repeat([]byte{0xFF}, testBlock-300), img[len(data):2*testBlock])
			assert.Equal(t, 2, sim.Counters().Erases)
		})
	}
}

func TestWriteHeldTailFailure(t *testing.T) {
	d, sim := newTestDevice(t, chip.FamilyIntel)
	s := openSession(t, d)

	n, err := s.Write(pattern(testBlock / 2))
	require.NoError(t, err)
	assert.Equal(t, testBlock/2, n)

	sim.FailErase(0)
	n, err = s.Write(pattern(testBlock))
	require.ErrorIs(t, err, ErrEraseFailed)
	assert.Zero(t, n)

	// The failing block was dropped and the position moved back to it.
	pos, err := s.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Zero(t, pos)
	require.NoError(t, s.Release())
}

func TestWriteMisalignedPosition(t *testing.T) {
	d, sim := newTestDevice(t, chip.FamilySST)
	s := openSession(t, d)

	_, err := s.Seek(10, io.SeekStart)
	require.NoError(t, err)

	_, err = s.Write(pattern(10))
	assert.ErrorIs(t, err, ErrMisaligned)
	assert.Equal(t, chipsim.Counters{}, sim.Counters())
}

func TestWritePastEnd(t *testing.T) {
	d, sim := newTestDevice(t, chip.FamilySST)
	s := openSession(t, d)

	_, err := s.Seek(testSize-testBlock, io.SeekStart)
	require.NoError(t, err)

	n, err := s.Write(pattern(testBlock + 1))
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, testBlock, n)
	assert.Equal(t, 1, sim.Counters().Erases)

	_, err = s.Write(pattern(1))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestReleaseContextInterrupted(t *testing.T) {
	d, _ := newTestDevice(t, chip.FamilySST)
	s := openSession(t, d)

	require.NoError(t, d.gate.Acquire(context.Background(), 1))
	ctx, cancel := context.WithTimeout(testContext(t), 20*time.Millisecond)
	defer cancel()

	err := s.ReleaseContext(ctx)
	require.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, 1, d.users, "session still open")

	d.gate.Release(1)
	require.NoError(t, s.ReleaseContext(testContext(t)))
	assert.Zero(t, d.users)
}

func TestWriteFrom(t *testing.T) {
	d, sim := newTestDevice(t, chip.FamilySST)
	s := openSession(t, d)

	data := pattern(2*testBlock + 100)
	n, err := s.WriteFrom(testContext(t), iotest.OneByteReader(bytes.NewReader(data)), testBlock, len(data))
	require.NoError(t, err)
	assert.Equal(t, 3*testBlock, n)
	assert.Equal(t, data, sim.Image()[testBlock:testBlock+len(data)])
}

func TestWriteFromCopyFault(t *testing.T) {
	errDisk := errors.New("disk gone")

	tests := []struct {
		name    string
		r       io.Reader
		wantErr error
	}{
		{
			name:    "reader error",
			r:       io.MultiReader(bytes.NewReader(pattern(testBlock+5)), iotest.ErrReader(errDisk)),
			wantErr: errDisk,
		},
		{
			name:    "short reader",
			r:       bytes.NewReader(pattern(testBlock + 5)),
			wantErr: io.ErrUnexpectedEOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, sim := newTestDevice(t, chip.FamilySST)
			s := openSession(t, d)

			n, err := s.WriteFrom(testContext(t), tt.r, 0, 2*testBlock)
			assert.Equal(t, testBlock, n)
			require.ErrorIs(t, err, ErrCopyFault)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, KindCopyFault, KindOf(err))

			var ce *CopyError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, int64(testBlock), ce.Offset)

			// The second block was never touched.
			c := sim.Counters()
			assert.Equal(t, 1, c.Erases)
			assert.Equal(t, 1, c.Unlocks)
			assert.True(t, sim.Locked(testBlock))
		})
	}
}

type failingWriter struct {
	limit int
	n     int
}

var errPipe = errors.New("broken pipe")

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.limit {
		return 0, errPipe
	}
	w.n += len(p)
	return len(p), nil
}

func TestReadTo(t *testing.T) {
	d, _ := newTestDevice(t, chip.FamilySST)
	s := openSession(t, d)

	data := pattern(testBlock + 3)
	_, err := s.WriteAt(testContext(t), data, 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := s.ReadTo(testContext(t), &buf, 0, len(data))
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, buf.Bytes())

	// Stops at the end of the device.
	buf.Reset()
	n, err = s.ReadTo(testContext(t), &buf, testSize-10, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = s.ReadTo(testContext(t), &failingWriter{limit: testBlock}, 0, 3*testBlock)
	assert.Equal(t, testBlock, n)
	assert.ErrorIs(t, err, errPipe)
	assert.Equal(t, KindCopyFault, KindOf(err))
}
