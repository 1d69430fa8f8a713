// Package chip implements the command protocols of the supported firmware hub
// flash parts and their block lock registers.
//
// # Families
//
// Two families are supported behind the Protocol interface:
//   - Intel 82802AC: status-register driven, erase and program report errors
//   - SST 49LF008A: JEDEC unlock sequences, completion by data polling only
//
// Detect probes for them in a fixed order (SST, then Intel) and returns the
// first match:
//
//	proto, id, err := chip.Detect(data, regs, chip.DefaultTiming())
//	if err != nil {
//	    return err // wraps chip.ErrNoSupportedChip
//	}
//	fmt.Printf("%s (mfr 0x%02X, dev 0x%02X)\n", proto.Family(), id.Manufacturer, id.Device)
//
// # Programming Model
//
// Addresses are byte offsets into the data window. EraseBlock and
// ProgramBlock take a block-aligned address; ProgramBlock skips bytes equal
// to ErasedByte since an erased cell already holds that value. Both leave the
// chip in read-array mode, so the data window can be read directly afterwards.
//
// Block lock registers are handled by LockController, which is the same for
// both families.
//
// # Limitations
//
// The SST parts have no status register. A failed erase or program shows up
// only as a poll that never completes; Timing.PollTimeout turns that into
// ErrTimeout instead of hanging.
package chip
