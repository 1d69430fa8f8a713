// Package romimage loads firmware images for writing to a firmware hub.
//
// Two formats are supported:
//   - Raw binary, the byte-for-byte contents of the flash array
//   - Intel HEX with data, end of file, extended segment and extended
//     linear address records
//
// Intel HEX records carry absolute addresses. They are placed in the image
// relative to a base address, usually the physical address of the flash
// window, and gaps between records are filled with 0xFF, the value of an
// erased cell:
//
//	img, err := romimage.Load("bios.hex", 0xFFF00000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := img.Fit(1 << 20); err != nil {
//	    log.Fatal(err)
//	}
package romimage
