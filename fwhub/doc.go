// Package fwhub exposes a memory-mapped firmware hub flash chip as a
// block-erasable, byte-readable device.
//
// # Overview
//
// A Device owns the two mapped windows of a firmware hub (the flash array and
// the block lock registers) and the chip protocol detected on them. All access
// goes through a Session; at most one Session is open at a time and every
// operation is serialized against the Device.
//
// Writes are block granular. For each block the Device performs, in order:
//   - Unlock the block
//   - Erase it
//   - Program it (bytes equal to 0xFF are skipped)
//   - Lock it again
//   - Read it back and compare
//
// The first failure aborts the write. Blocks already written stay written.
//
// # Basic Usage
//
//	dev, err := fwhub.Open(mmio.DevMem{Path: mmio.DefaultDevMem})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	s, err := dev.OpenSession(ctx)
//	if err != nil {
//	    log.Fatal(err) // fwhub.ErrBusy if another session is open
//	}
//	defer s.Release()
//
//	n, err := s.WriteAt(ctx, rom, 0)
//
// # Errors
//
// Every failure can be classified with KindOf:
//
//	if fwhub.KindOf(err) == fwhub.KindEraseFailed {
//	    var se *chip.StatusError
//	    errors.As(err, &se)
//	    fmt.Printf("status 0x%02X\n", se.Status)
//	}
//
// # Progress Tracking
//
//	dev, err := fwhub.Open(mapper,
//	    fwhub.WithProgressCallback(func(p fwhub.Progress) {
//	        fmt.Printf("[%s] %.1f%% - Block %d/%d\n",
//	            p.Phase, p.Percentage, p.CurrentBlock+1, p.TotalBlocks)
//	    }),
//	)
package fwhub
