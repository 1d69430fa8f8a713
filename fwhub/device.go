package fwhub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/moffa90/go-fwhub/chip"
	"github.com/moffa90/go-fwhub/mmio"
)

// Device is a detected firmware hub.
//
// Device is safe for concurrent use. Every operation holds the device for
// its whole duration, so a write of several blocks completes before any
// other operation starts.
type Device struct {
	data   mmio.Region
	regs   mmio.Region
	proto  chip.Protocol
	locks  *chip.LockController
	id     chip.ID
	config Config

	// gate serializes operations; the fields below are guarded by it
	gate   *semaphore.Weighted
	users  int
	active *Session
	closed bool
}

// Info describes a detected device.
type Info struct {
	Family    chip.Family
	ID        chip.ID
	Size      int
	BlockSize int
}

func (i Info) String() string {
	return fmt.Sprintf("%v (%v), %d KiB in %d KiB blocks", i.Family, i.ID, i.Size>>10, i.BlockSize>>10)
}

// Open maps the data and register windows through m and detects the chip.
// On failure nothing stays mapped.
//
// Example:
//
//	dev, err := fwhub.Open(mmio.DevMem{Path: mmio.DefaultDevMem},
//	    fwhub.WithLogger(logger),
//	)
func Open(m mmio.Mapper, opts ...Option) (*Device, error) {
	if m == nil {
		panic("mapper cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	data, err := mapWindow(m, "data", cfg.DataPhys, cfg.Size)
	if err != nil {
		return nil, err
	}
	regs, err := mapWindow(m, "register", cfg.LockPhys, cfg.Size)
	if err != nil {
		data.Close()
		return nil, err
	}

	d, err := newDevice(data, regs, cfg)
	if err != nil {
		return nil, errors.Join(err, data.Close(), regs.Close())
	}
	return d, nil
}

// New detects the chip behind already mapped windows. On success the
// Device owns both regions and Close releases them.
func New(data, regs mmio.Region, opts ...Option) (*Device, error) {
	if data == nil || regs == nil {
		panic("regions cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newDevice(data, regs, cfg)
}

func mapWindow(m mmio.Mapper, name string, phys uint64, size int) (mmio.Region, error) {
	r, err := m.Map(phys, size)
	if err == nil {
		return r, nil
	}
	if errors.Is(err, ErrMapFailed) {
		return nil, fmt.Errorf("map %s window: %w", name, err)
	}
	return nil, fmt.Errorf("%w: %s window at 0x%08X: %w", ErrMapFailed, name, phys, err)
}

func newDevice(data, regs mmio.Region, cfg Config) (*Device, error) {
	if cfg.BlockSize <= 0 || cfg.Size <= 0 || cfg.Size%cfg.BlockSize != 0 {
		return nil, fmt.Errorf("size 0x%X is not a multiple of block size 0x%X", cfg.Size, cfg.BlockSize)
	}
	if data.Size() < cfg.Size {
		return nil, fmt.Errorf("data window is 0x%X bytes, need 0x%X", data.Size(), cfg.Size)
	}

	proto, id, err := chip.Detect(data, regs, cfg.Timing)
	if err != nil {
		return nil, err
	}

	d := &Device{
		data:   data,
		regs:   regs,
		proto:  proto,
		locks:  chip.NewLockController(regs),
		id:     id,
		config: cfg,
		gate:   semaphore.NewWeighted(1),
	}

	d.logInfo("firmware hub detected",
		"chip", proto.Family().String(),
		"manufacturer", fmt.Sprintf("0x%02X", id.Manufacturer),
		"device", fmt.Sprintf("0x%02X", id.Device),
		"size", cfg.Size,
	)
	return d, nil
}

// Info returns the detected chip and the device geometry.
func (d *Device) Info() Info {
	return Info{
		Family:    d.proto.Family(),
		ID:        d.id,
		Size:      d.config.Size,
		BlockSize: d.config.BlockSize,
	}
}

// Close writes out a partial block held by the open session, then unmaps
// both windows. It waits for the operation in progress, if any. Sessions
// still open fail with ErrDeviceClosed afterwards.
func (d *Device) Close() error {
	_ = d.gate.Acquire(context.Background(), 1)
	defer d.gate.Release(1)

	if d.closed {
		return nil
	}
	var flushErr error
	if d.active != nil {
		flushErr = d.active.flushLocked()
	}
	d.closed = true
	d.active = nil
	d.users = 0
	return errors.Join(flushErr, d.data.Close(), d.regs.Close())
}

// OpenSession opens the single session of the device. It fails with
// ErrBusy while another session is open, and with ErrInterrupted if ctx
// ends while waiting for an operation in progress.
func (d *Device) OpenSession(ctx context.Context) (*Session, error) {
	if err := d.acquire(ctx); err != nil {
		return nil, err
	}
	defer d.gate.Release(1)

	if d.closed {
		return nil, ErrDeviceClosed
	}
	if d.users > 0 {
		return nil, ErrBusy
	}

	s := &Session{
		dev: d,
		buf: make([]byte, d.config.BlockSize),
	}
	d.users++
	d.active = s
	d.logDebug("session opened")
	return s, nil
}

// acquire takes the operation gate.
func (d *Device) acquire(ctx context.Context) error {
	if err := d.gate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	return nil
}

// releaseLocked ends a session. The user count never drops below zero.
func (d *Device) releaseLocked(s *Session) {
	if d.users > 0 {
		d.users--
	}
	if d.active == s {
		d.active = nil
	}
	d.logDebug("session released")
}

// write programs n bytes starting at the block aligned offset off. fill
// copies the caller's bytes for the block at position pos of the write into
// dst; the rest of the block is padded with chip.ErasedByte. It returns the
// number of bytes of whole blocks written and verified. The caller holds
// the gate.
func (d *Device) write(buf []byte, off int64, n int, fill func(dst []byte, pos int) error) (int, error) {
	bs := d.config.BlockSize
	if off < 0 || off%int64(bs) != 0 {
		return 0, fmt.Errorf("%w: offset 0x%X, block size 0x%X", ErrMisaligned, off, bs)
	}
	if n < 0 || off+int64(n) > int64(d.config.Size) {
		return 0, fmt.Errorf("%w: 0x%X bytes at 0x%X, device size 0x%X", ErrOutOfRange, n, off, d.config.Size)
	}
	if n == 0 {
		return 0, nil
	}

	startTime := time.Now()
	total := (n + bs - 1) / bs
	written := 0

	for i := 0; i < total; i++ {
		addr := int(off) + i*bs
		chunk := min(bs, n-i*bs)

		if err := fill(buf[:chunk], i*bs); err != nil {
			d.logError("copy in failed", "block", hexAddr(addr), "error", err)
			return written, &CopyError{Op: "copy in", Offset: int64(addr), Err: err}
		}
		for j := chunk; j < bs; j++ {
			buf[j] = chip.ErasedByte
		}

		progress := func(phase string) {
			d.reportProgress(Progress{
				Phase:        phase,
				Block:        addr,
				CurrentBlock: i,
				TotalBlocks:  total,
				Percentage:   float64(i) / float64(total) * 100,
				BytesWritten: written,
				ElapsedTime:  time.Since(startTime),
			})
		}
		if err := d.writeBlock(addr, buf, progress); err != nil {
			return written, err
		}
		written += bs
	}

	d.reportProgress(Progress{
		Phase:        PhaseComplete,
		Block:        int(off) + (total-1)*bs,
		CurrentBlock: total - 1,
		TotalBlocks:  total,
		Percentage:   100,
		BytesWritten: written,
		ElapsedTime:  time.Since(startTime),
	})
	return written, nil
}

// writeBlock runs unlock, erase, program, lock and verify on one block.
func (d *Device) writeBlock(addr int, buf []byte, progress func(phase string)) error {
	if err := d.locks.Unlock(addr); err != nil {
		d.logError("unlock failed", "block", hexAddr(addr), "error", err)
		return err
	}

	progress(PhaseErasing)
	if err := d.proto.EraseBlock(addr); err != nil {
		d.logError("erase failed", "block", hexAddr(addr), "error", err)
		return err
	}

	progress(PhaseProgramming)
	if err := d.proto.ProgramBlock(addr, buf); err != nil {
		d.logError("program failed", "block", hexAddr(addr), "error", err)
		return err
	}

	if err := d.locks.Lock(addr); err != nil {
		d.logError("lock failed", "block", hexAddr(addr), "error", err)
		return err
	}
	d.logDebug("block programmed", "block", hexAddr(addr))

	progress(PhaseVerifying)
	for i, want := range buf {
		if got := d.data.Load(addr + i); got != want {
			err := &VerifyError{Block: addr, Offset: addr + i, Want: want, Got: got}
			d.logError("verify failed", "block", hexAddr(addr), "error", err)
			return err
		}
	}
	d.logDebug("block verified", "block", hexAddr(addr))
	return nil
}

// read copies from the data window at off into p. The length is clamped to
// the end of the device; at or past the end it returns 0, io.EOF. The caller
// holds the gate.
func (d *Device) read(p []byte, off int64) (int, error) {
	size := int64(d.config.Size)
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrOutOfRange, off)
	}
	if off >= size {
		return 0, io.EOF
	}
	if remain := size - off; int64(len(p)) > remain {
		p = p[:remain]
	}

	n, err := d.data.ReadAt(p, off)
	if err == io.EOF && n == len(p) {
		err = nil
	}
	return n, err
}

func hexAddr(addr int) string {
	return fmt.Sprintf("0x%08X", addr)
}

func (d *Device) reportProgress(progress Progress) {
	if d.config.ProgressCallback != nil {
		d.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (d *Device) logDebug(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (d *Device) logInfo(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (d *Device) logError(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Error(msg, keysAndValues...)
	}
}
