package fwhub

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	_ io.ReadWriteSeeker = (*Session)(nil)
	_ io.Closer          = (*Session)(nil)
)

// Session is the single open handle of a Device. It owns the block sized
// write buffer and a file position used by Read, Write and Seek.
//
// Read, Write, Seek and Release wait for the device without a deadline
// because their signatures carry no context. ReadAt, WriteAt, ReadTo,
// WriteFrom, Flush and ReleaseContext take a context that bounds the wait.
type Session struct {
	dev *Device

	// guarded by dev.gate
	buf      []byte
	pos      int64
	pending  int // bytes of the block at pos-pending held in buf by Write
	released bool
}

// Release flushes any partial block held by Write and ends the session.
// Releasing a session twice is a no-op.
func (s *Session) Release() error {
	return s.ReleaseContext(context.Background())
}

// ReleaseContext is Release with a wait bounded by ctx. If ctx ends first it
// returns ErrInterrupted and the session stays open.
func (s *Session) ReleaseContext(ctx context.Context) error {
	d := s.dev
	if err := d.acquire(ctx); err != nil {
		return err
	}
	defer d.gate.Release(1)

	if s.released {
		return nil
	}
	var err error
	if !d.closed {
		err = s.flushLocked()
	}
	s.released = true
	s.buf = nil
	d.releaseLocked(s)
	return err
}

// Close is Release.
func (s *Session) Close() error {
	return s.Release()
}

// begin takes the device gate, checks the session is still usable and
// writes out a partial block held by Write. On success the caller must call
// s.dev.gate.Release(1).
func (s *Session) begin(ctx context.Context) error {
	if err := s.dev.acquire(ctx); err != nil {
		return err
	}
	switch {
	case s.released:
		s.dev.gate.Release(1)
		return ErrSessionClosed
	case s.dev.closed:
		s.dev.gate.Release(1)
		return ErrDeviceClosed
	}
	if err := s.flushLocked(); err != nil {
		s.dev.gate.Release(1)
		return err
	}
	return nil
}

// Flush writes out the partial block held by Write, padded with 0xFF.
func (s *Session) Flush(ctx context.Context) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	s.dev.gate.Release(1)
	return nil
}

// flushLocked writes the pending partial block. The pending bytes are
// dropped whether or not the write succeeds. The caller holds the gate.
func (s *Session) flushLocked() error {
	if s.pending == 0 {
		return nil
	}
	n := s.pending
	s.pending = 0
	_, err := s.dev.write(s.buf, s.pos-int64(n), n, func([]byte, int) error { return nil })
	return err
}

// ReadAt reads up to len(p) bytes from the device at off. Reads are clamped
// to the end of the device; a read starting at or past the end returns
// 0, io.EOF.
func (s *Session) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := s.begin(ctx); err != nil {
		return 0, err
	}
	defer s.dev.gate.Release(1)

	return s.dev.read(p, off)
}

// WriteAt writes p to the device starting at the block aligned offset off.
// A final partial block is padded with 0xFF. It returns the number of bytes
// of whole blocks written and verified, which on success is len(p) rounded
// up to the block size. On failure blocks already written are not restored.
func (s *Session) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := s.begin(ctx); err != nil {
		return 0, err
	}
	defer s.dev.gate.Release(1)

	return s.dev.write(s.buf, off, len(p), func(dst []byte, pos int) error {
		copy(dst, p[pos:])
		return nil
	})
}

// WriteFrom writes n bytes read from r to the device starting at the block
// aligned offset off, one block at a time. A failure reading r is returned
// as a CopyError; the block being copied is left untouched.
func (s *Session) WriteFrom(ctx context.Context, r io.Reader, off int64, n int) (int, error) {
	if err := s.begin(ctx); err != nil {
		return 0, err
	}
	defer s.dev.gate.Release(1)

	return s.dev.write(s.buf, off, n, func(dst []byte, _ int) error {
		_, err := io.ReadFull(r, dst)
		return err
	})
}

// ReadTo copies n bytes of the device starting at off to w. It stops at the
// end of the device. A failure writing to w is returned as a CopyError.
func (s *Session) ReadTo(ctx context.Context, w io.Writer, off int64, n int) (int, error) {
	if err := s.begin(ctx); err != nil {
		return 0, err
	}
	defer s.dev.gate.Release(1)

	copied := 0
	for copied < n {
		chunk := s.buf[:min(len(s.buf), n-copied)]
		m, err := s.dev.read(chunk, off+int64(copied))
		if m > 0 {
			if _, werr := w.Write(chunk[:m]); werr != nil {
				return copied, &CopyError{Op: "copy out", Offset: off + int64(copied), Err: werr}
			}
			copied += m
		}
		if err == io.EOF {
			return copied, nil
		}
		if err != nil {
			return copied, err
		}
	}
	return copied, nil
}

// Read reads from the current position and advances it.
func (s *Session) Read(p []byte) (int, error) {
	if err := s.begin(context.Background()); err != nil {
		return 0, err
	}
	defer s.dev.gate.Release(1)

	n, err := s.dev.read(p, s.pos)
	s.pos += int64(n)
	return n, err
}

// Write writes p at the current position, which must be block aligned when
// the previous Write ended on a block boundary. Bytes are collected into
// whole blocks; each full block is written as soon as it is complete. A
// trailing partial block is held until the next Write completes it or until
// Flush, Release or any other operation on the session writes it out padded
// with 0xFF.
//
// On failure the returned count covers the blocks written and nothing of
// the failing block, and the position moves back to that block's start.
func (s *Session) Write(p []byte) (int, error) {
	if err := s.dev.acquire(context.Background()); err != nil {
		return 0, err
	}
	defer s.dev.gate.Release(1)

	switch {
	case s.released:
		return 0, ErrSessionClosed
	case s.dev.closed:
		return 0, ErrDeviceClosed
	}

	bs := int64(len(s.buf))
	if s.pending == 0 && s.pos%bs != 0 {
		return 0, fmt.Errorf("%w: offset 0x%X, block size 0x%X", ErrMisaligned, s.pos, bs)
	}
	if len(p) > 0 && s.pos >= int64(s.dev.config.Size) {
		return 0, fmt.Errorf("%w: 0x%X bytes at 0x%X, device size 0x%X", ErrOutOfRange, len(p), s.pos, s.dev.config.Size)
	}

	n := 0
	for n < len(p) {
		base := s.pos - int64(s.pending)
		if base+bs > int64(s.dev.config.Size) {
			return n, fmt.Errorf("%w: 0x%X bytes at 0x%X, device size 0x%X",
				ErrOutOfRange, len(p)-n, s.pos, s.dev.config.Size)
		}

		m := copy(s.buf[s.pending:], p[n:])
		s.pending += m
		s.pos += int64(m)
		n += m
		if s.pending < int(bs) {
			break
		}

		held := s.pending
		s.pending = 0
		if _, err := s.dev.write(s.buf, base, int(bs), func([]byte, int) error { return nil }); err != nil {
			s.pos = base
			return max(n-held, 0), err
		}
	}
	return n, nil
}

// Seek sets the position for the next Read or Write.
func (s *Session) Seek(offset int64, whence int) (int64, error) {
	if err := s.begin(context.Background()); err != nil {
		return 0, err
	}
	defer s.dev.gate.Release(1)

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.pos + offset
	case io.SeekEnd:
		abs = int64(s.dev.config.Size) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("seek: negative position")
	}
	s.pos = abs
	return abs, nil
}
