package romimage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxSize bounds the size of a loaded image.
const MaxSize = 16 << 20

// ErasedByte fills the gaps of an image.
const ErasedByte = 0xFF

// Format identifies an image file format.
type Format int

const (
	FormatRaw Format = iota
	FormatIntelHex
)

func (f Format) String() string {
	switch f {
	case FormatRaw:
		return "raw"
	case FormatIntelHex:
		return "ihex"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Image is a firmware image.
type Image struct {
	// Data is the image contents starting at offset 0 of the flash
	Data []byte

	// Format is the format the image was loaded from
	Format Format
}

// TooLargeError indicates that an image does not fit the target.
type TooLargeError struct {
	Size  int
	Limit int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("image is %d bytes, exceeds %d bytes", e.Size, e.Limit)
}

// Load reads an image from path. Files named *.hex, *.ihx or *.ihex are
// parsed as Intel HEX relative to base; anything else is raw binary.
func Load(path string, base uint32) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f, FormatOf(path), base)
}

// FormatOf guesses the format of a file from its name.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihx", ".ihex":
		return FormatIntelHex
	default:
		return FormatRaw
	}
}

// Parse reads an image in the given format from r.
func Parse(r io.Reader, format Format, base uint32) (*Image, error) {
	switch format {
	case FormatRaw:
		return ParseRaw(r)
	case FormatIntelHex:
		return ParseIntelHex(r, base)
	default:
		return nil, fmt.Errorf("unknown image format %v", format)
	}
}

// ParseRaw reads a raw binary image.
func ParseRaw(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxSize {
		return nil, &TooLargeError{Size: len(data), Limit: MaxSize}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	return &Image{Data: data, Format: FormatRaw}, nil
}

// Fit reports a TooLargeError if the image is larger than size.
func (img *Image) Fit(size int) error {
	if len(img.Data) > size {
		return &TooLargeError{Size: len(img.Data), Limit: size}
	}
	return nil
}

// Padded returns the image extended with ErasedByte to a multiple of
// blockSize. The image itself is not modified.
func (img *Image) Padded(blockSize int) []byte {
	n := len(img.Data)
	if rem := n % blockSize; rem != 0 {
		n += blockSize - rem
	}
	out := bytes.Repeat([]byte{ErasedByte}, n)
	copy(out, img.Data)
	return out
}
